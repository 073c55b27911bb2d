package voicelog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// csvHeader is the fixed export column order. Downstream spreadsheets key
// on position, so this never changes.
var csvHeader = []string{
	"Timestamp", "Session ID", "Event Type", "Transcript", "Confidence",
	"Intent Type", "Action", "Track", "Success", "Latency", "Error",
}

// ExportJSON renders the full-fidelity entry stream.
func (l *Logger) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(l.Entries(), "", "  ")
}

// ExportCSV renders the flattened stream. encoding/csv handles quoting, so
// transcripts with commas or quotes survive round trips.
func (l *Logger) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, entry := range l.Entries() {
		record := []string{
			entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			entry.SessionID,
			string(entry.Kind),
			entry.Transcript,
			"", "", "", "",
			"",
			"",
			entry.Error,
		}
		if entry.Intent != nil {
			record[4] = strconv.FormatFloat(entry.Intent.Confidence, 'f', 2, 64)
			record[5] = string(entry.Intent.Type)
			record[6] = entry.Intent.Action
			if entry.Intent.Track != nil {
				record[7] = strconv.Itoa(*entry.Intent.Track)
			}
		}
		if entry.Action != "" {
			record[6] = entry.Action
		}
		if entry.Success != nil {
			record[8] = strconv.FormatBool(*entry.Success)
		}
		if entry.LatencyMS > 0 {
			record[9] = strconv.FormatInt(entry.LatencyMS, 10)
		}

		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

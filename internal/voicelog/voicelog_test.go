package voicelog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rhea-voice/rhea/internal/intent"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) step(d time.Duration) { c.now = c.now.Add(d) }

func openTestLogger(t *testing.T, clock *stepClock) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.jsonl")
	logger, err := Open(path, clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, path
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	require.NoError(t, logger.Append(Entry{Kind: Kind("transcript"), Transcript: "first"}))
	clock.step(time.Second)
	require.NoError(t, logger.Append(Entry{Kind: KindExecution, Action: "mute"}))
	clock.step(time.Second)
	require.NoError(t, logger.Append(Entry{Kind: KindContext, Detail: "view=mcp"}))

	entries := logger.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "first", entries[0].Transcript)
	require.Equal(t, KindExecution, entries[1].Kind)
	require.Equal(t, KindContext, entries[2].Kind)
}

func TestEntriesShareSessionWithinRun(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "a"}))
	clock.step(SessionGap * 2) // no boundary mid-run, even after a long gap
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "b"}))

	entries := logger.Entries()
	require.Equal(t, entries[0].SessionID, entries[1].SessionID)
}

func TestNewSessionForcesBoundary(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "a"}))
	first := logger.SessionID()
	second := logger.NewSession()
	require.NotEqual(t, first, second)

	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "b"}))
	require.Len(t, logger.Sessions(), 2)
}

func TestLoadDetectsSessionBoundariesByGap(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	path := filepath.Join(t.TempDir(), "voice.jsonl")

	logger, err := Open(path, clock.Now)
	require.NoError(t, err)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "a"}))
	clock.step(time.Minute)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "b"}))
	clock.step(45 * time.Minute)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "c"}))
	require.NoError(t, logger.Close())

	reloaded, err := Open(path, clock.Now)
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()

	sessions := reloaded.Sessions()
	require.Len(t, sessions, 2)
	entries := reloaded.Entries()
	require.Equal(t, entries[0].SessionID, entries[1].SessionID)
	require.NotEqual(t, entries[1].SessionID, entries[2].SessionID)
}

func TestOpenContinuesRecentSession(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	path := filepath.Join(t.TempDir(), "voice.jsonl")

	logger, err := Open(path, clock.Now)
	require.NoError(t, err)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "a"}))
	require.NoError(t, logger.Close())

	clock.step(5 * time.Minute)
	reopened, err := Open(path, clock.Now)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	require.NoError(t, reopened.Append(Entry{Kind: KindTranscript, Transcript: "b"}))
	require.Len(t, reopened.Sessions(), 1)
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "a"}))
	clock.step(time.Second)
	require.NoError(t, logger.Append(Entry{Kind: KindError, Error: "bad"}))
	clock.step(time.Second)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "b"}))

	transcripts := logger.Query("", KindTranscript, time.Time{}, time.Time{})
	require.Len(t, transcripts, 2)

	late := logger.Query("", "", time.Unix(1001, 0), time.Time{})
	require.Len(t, late, 2)

	errs := logger.Query(logger.SessionID(), KindError, time.Time{}, time.Time{})
	require.Len(t, errs, 1)
	require.Equal(t, "bad", errs[0].Error)
}

func TestExportCSVFixedColumnsAndQuoting(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	track := 3
	ok := true
	require.NoError(t, logger.Append(Entry{
		Kind:       KindIntent,
		Transcript: `say "mute", track 3`,
		Intent: &intent.Intent{
			Type:       intent.TypeTrack,
			Action:     "mute",
			Track:      &track,
			Confidence: 0.90,
		},
		Success:   &ok,
		LatencyMS: 12,
	}))

	raw, err := logger.ExportCSV()
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, []string{
		"Timestamp", "Session ID", "Event Type", "Transcript", "Confidence",
		"Intent Type", "Action", "Track", "Success", "Latency", "Error",
	}, records[0])

	row := records[1]
	require.Equal(t, `say "mute", track 3`, row[3])
	require.Equal(t, "0.90", row[4])
	require.Equal(t, "track", row[5])
	require.Equal(t, "mute", row[6])
	require.Equal(t, "3", row[7])
	require.Equal(t, "true", row[8])
	require.Equal(t, "12", row[9])
}

func TestExportJSONRoundTrips(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	logger, _ := openTestLogger(t, clock)

	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "hello"}))

	raw, err := logger.ExportJSON()
	require.NoError(t, err)
	require.Contains(t, string(raw), `"hello"`)
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1000, 0)}
	path := filepath.Join(t.TempDir(), "voice.jsonl")

	logger, err := Open(path, clock.Now)
	require.NoError(t, err)
	require.NoError(t, logger.Append(Entry{Kind: KindTranscript, Transcript: "good"}))
	require.NoError(t, logger.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{torn line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reloaded, err := Open(path, clock.Now)
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()
	require.Len(t, reloaded.Entries(), 1)
}

// Package voicelog records every pipeline event in one append-only stream,
// in strict arrival order, for offline causal reconstruction.
package voicelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhea-voice/rhea/internal/intent"
)

// Kind classifies one log entry.
type Kind string

const (
	KindTranscript Kind = "transcript"
	KindIntent     Kind = "intent"
	KindExecution  Kind = "execution"
	KindState      Kind = "state"
	KindError      Kind = "error"
	KindContext    Kind = "context"
)

// Entry is one observed event. Entries are immutable once appended.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"sessionId"`
	Kind       Kind           `json:"kind"`
	Transcript string         `json:"transcript,omitempty"`
	Intent     *intent.Intent `json:"intent,omitempty"`
	Action     string         `json:"action,omitempty"`
	Success    *bool          `json:"success,omitempty"`
	LatencyMS  int64          `json:"latencyMs,omitempty"`
	Error      string         `json:"error,omitempty"`
	Detail     string         `json:"detail,omitempty"`
}

// SessionGap is the inactivity window that demarcates sessions when the
// log is replayed at load time.
const SessionGap = 30 * time.Minute

// Logger appends entries to a JSONL file and keeps an in-memory index for
// querying and export. Session boundaries are only ever drawn at load time
// from inactivity gaps, or explicitly via NewSession.
type Logger struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	file      *os.File
	entries   []Entry
	sessionID string
}

// Open loads the log at path, regrouping historical entries into sessions
// by inactivity gap, and starts a fresh session for this run when the gap
// since the last recorded entry demands one.
func Open(path string, now func() time.Time) (*Logger, error) {
	if now == nil {
		now = time.Now
	}
	l := &Logger{path: path, now: now}

	if err := l.loadExisting(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open voice log: %w", err)
	}
	l.file = file

	// Continue the last session when this run starts inside its gap window,
	// otherwise begin a new one.
	if n := len(l.entries); n > 0 && now().Sub(l.entries[n-1].Timestamp) < SessionGap {
		l.sessionID = l.entries[n-1].SessionID
	} else {
		l.sessionID = uuid.NewString()
	}
	return l, nil
}

// loadExisting replays the JSONL file and re-derives session grouping.
// Unreadable lines are skipped: a partially written tail must not take the
// logger down.
func (l *Logger) loadExisting() error {
	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read voice log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan voice log: %w", err)
	}

	sessionID := ""
	var prev time.Time
	for i := range entries {
		if sessionID == "" || entries[i].Timestamp.Sub(prev) >= SessionGap {
			sessionID = uuid.NewString()
		}
		entries[i].SessionID = sessionID
		prev = entries[i].Timestamp
	}
	l.entries = entries
	return nil
}

// Append records one entry, stamping time and session.
func (l *Logger) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = l.now()
	entry.SessionID = l.sessionID

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	if l.file != nil {
		if _, err := l.file.Write(append(raw, '\n')); err != nil {
			return fmt.Errorf("append log entry: %w", err)
		}
	}
	l.entries = append(l.entries, entry)
	return nil
}

// NewSession starts a fresh session boundary and returns its ID.
func (l *Logger) NewSession() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = uuid.NewString()
	return l.sessionID
}

// SessionID returns the active session identifier.
func (l *Logger) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Entries returns a copy of the full entry stream in arrival order.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Query filters entries by optional session, kind, and time range. Zero
// values mean don't-care.
func (l *Logger) Query(sessionID string, kind Kind, from, to time.Time) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, entry := range l.entries {
		if sessionID != "" && entry.SessionID != sessionID {
			continue
		}
		if kind != "" && entry.Kind != kind {
			continue
		}
		if !from.IsZero() && entry.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && entry.Timestamp.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Sessions lists distinct session IDs in first-seen order.
func (l *Logger) Sessions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := map[string]struct{}{}
	var out []string
	for _, entry := range l.entries {
		if _, ok := seen[entry.SessionID]; ok {
			continue
		}
		seen[entry.SessionID] = struct{}{}
		out = append(out, entry.SessionID)
	}
	return out
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

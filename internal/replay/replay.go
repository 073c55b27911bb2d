// Package replay stores voice-command fixtures and re-runs them through
// intent parsing, scoring each case for transcript accuracy, intent match,
// and latency.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhea-voice/rhea/internal/intent"
	"github.com/rhea-voice/rhea/internal/metrics"
)

// Case is a persisted input fixture: a reference transcript plus the
// intent and action the parser is expected to derive from it. AudioPath
// optionally points at a recorded utterance; with a transcriber wired in,
// recognition of that audio supplies the hypothesis the case is scored on.
type Case struct {
	ID             string         `json:"id"`
	Transcript     string         `json:"transcript"`
	AudioPath      string         `json:"audio_path,omitempty"`
	ExpectedIntent *intent.Intent `json:"expected_intent,omitempty"`
	ExpectedAction string         `json:"expected_action,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// Transcriber converts recorded fixture audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Result is the scored output for one case. Results live only for the
// duration of a run; each run replaces the previous results wholesale.
type Result struct {
	CaseID          string         `json:"case_id"`
	Transcript      string         `json:"transcript"`
	ActualIntent    *intent.Intent `json:"actual_intent,omitempty"`
	WER             float64        `json:"wer"`
	TranscriptMatch bool           `json:"transcript_match"`
	IntentMatch     bool           `json:"intent_match"`
	Passed          bool           `json:"passed"`
	LatencyMS       float64        `json:"latency_ms"`
}

// Summary aggregates one run's results.
type Summary struct {
	Total              int     `json:"total"`
	Passed             int     `json:"passed"`
	PassRate           float64 `json:"pass_rate"`
	AverageWER         float64 `json:"average_wer"`
	AverageLatencyMS   float64 `json:"average_latency_ms"`
	IntentAccuracy     float64 `json:"intent_accuracy"`
	TranscriptAccuracy float64 `json:"transcript_accuracy"`
}

// Runner owns the fixture set and the in-memory results of the most
// recent run.
type Runner struct {
	path        string
	logger      *slog.Logger
	transcriber Transcriber

	mu      sync.RWMutex
	cases   []Case
	results []Result
}

// NewRunner loads the fixture file at path. A missing file yields an
// empty fixture set; a malformed one is logged and treated as empty.
func NewRunner(path string, logger *slog.Logger) *Runner {
	r := &Runner{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r
	}
	if err != nil {
		logger.Warn("replay fixtures unreadable", "path", path, "error", err.Error())
		return r
	}
	var cases []Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		logger.Warn("replay fixtures malformed, starting empty", "path", path, "error", err.Error())
		return r
	}
	r.cases = cases
	return r
}

// Add stores a new fixture and persists the set.
func (r *Runner) Add(c Case) (Case, error) {
	c.ID = uuid.NewString()

	r.mu.Lock()
	r.cases = append(r.cases, c)
	err := r.save()
	r.mu.Unlock()

	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// Delete removes the fixture with the given ID.
func (r *Runner) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.cases {
		if c.ID == id {
			r.cases = append(r.cases[:i], r.cases[i+1:]...)
			return r.save()
		}
	}
	return fmt.Errorf("replay case %s not found", id)
}

// Cases returns a copy of the fixture set.
func (r *Runner) Cases() []Case {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Case, len(r.cases))
	copy(out, r.cases)
	return out
}

// SetTranscriber wires a speech recognizer for audio-backed fixtures.
// Without one, cases score on their stored transcript alone.
func (r *Runner) SetTranscriber(t Transcriber) {
	r.transcriber = t
}

// RunAll replays every fixture through intent parsing and replaces the
// in-memory results with the new run's scores.
func (r *Runner) RunAll(ctx context.Context) Summary {
	cases := r.Cases()

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		results = append(results, r.runCase(ctx, c))
	}

	r.mu.Lock()
	r.results = results
	r.mu.Unlock()

	return summarize(results)
}

// Results returns the scores from the most recent run.
func (r *Runner) Results() []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// runCase scores a single fixture. The stored transcript is the WER
// reference; the hypothesis comes from recognizing the case's audio when
// a transcriber is wired, otherwise the transcript doubles as the
// hypothesis and WER is zero for text-only fixtures.
func (r *Runner) runCase(ctx context.Context, c Case) Result {
	hypothesis := r.hypothesis(ctx, c)

	start := time.Now()
	actual := intent.Parse(hypothesis)
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	res := Result{
		CaseID:       c.ID,
		Transcript:   c.Transcript,
		ActualIntent: actual,
		WER:          metrics.WER(c.Transcript, hypothesis),
		LatencyMS:    latency,
	}
	res.TranscriptMatch = res.WER == 0

	switch {
	case c.ExpectedIntent != nil:
		res.IntentMatch = metrics.IntentsMatch(c.ExpectedIntent, actual)
	case c.ExpectedAction != "":
		res.IntentMatch = actual != nil && strings.EqualFold(actual.Action, c.ExpectedAction)
	default:
		// A fixture with no expectation asserts that nothing parses.
		res.IntentMatch = actual == nil
	}
	res.Passed = res.TranscriptMatch && res.IntentMatch
	return res
}

// hypothesis returns the recognized text for an audio-backed case, falling
// back to the stored transcript when recognition is unavailable or fails.
func (r *Runner) hypothesis(ctx context.Context, c Case) string {
	if r.transcriber == nil || c.AudioPath == "" {
		return c.Transcript
	}
	audio, err := os.ReadFile(c.AudioPath)
	if err != nil {
		r.logger.Warn("replay audio unreadable, scoring transcript only", "case", c.ID, "error", err.Error())
		return c.Transcript
	}
	text, err := r.transcriber.Transcribe(ctx, audio)
	if err != nil {
		r.logger.Warn("replay transcription failed, scoring transcript only", "case", c.ID, "error", err.Error())
		return c.Transcript
	}
	return text
}

func summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	if s.Total == 0 {
		return s
	}

	var werSum, latencySum float64
	var intentHits, transcriptHits int
	for _, r := range results {
		werSum += r.WER
		latencySum += r.LatencyMS
		if r.Passed {
			s.Passed++
		}
		if r.IntentMatch {
			intentHits++
		}
		if r.TranscriptMatch {
			transcriptHits++
		}
	}
	n := float64(s.Total)
	s.PassRate = float64(s.Passed) / n * 100
	s.AverageWER = werSum / n
	s.AverageLatencyMS = latencySum / n
	s.IntentAccuracy = float64(intentHits) / n * 100
	s.TranscriptAccuracy = float64(transcriptHits) / n * 100
	return s
}

// Export writes the fixture set as a JSON array.
func (r *Runner) Export() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.MarshalIndent(r.cases, "", "  ")
}

// Import appends fixtures from a JSON array. IDs are always regenerated
// so imported cases never collide with existing ones.
func (r *Runner) Import(raw []byte) (int, error) {
	var incoming []Case
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return 0, fmt.Errorf("decode replay cases: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range incoming {
		incoming[i].ID = uuid.NewString()
		r.cases = append(r.cases, incoming[i])
	}
	if err := r.save(); err != nil {
		return 0, err
	}
	return len(incoming), nil
}

// save persists the fixture set. Callers hold r.mu.
func (r *Runner) save() error {
	raw, err := json.MarshalIndent(r.cases, "", "  ")
	if err != nil {
		return fmt.Errorf("encode replay cases: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create replay directory: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o600); err != nil {
		return fmt.Errorf("write replay cases: %w", err)
	}
	return nil
}

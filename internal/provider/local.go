package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rhea-voice/rhea/internal/transcript"
)

// LocalCompleter is the offline heuristic the pipeline falls back to when
// the cloud completer is unavailable or rate limited. It answers the
// classify prompt with a keyword scan over the utterance.
type LocalCompleter struct{}

type localIntent struct {
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

var localKeywords = []struct {
	word   string
	typ    string
	action string
}{
	{"stop", "transport", "stop"},
	{"pause", "transport", "stop"},
	{"play", "transport", "play"},
	{"record", "transport", "record"},
	{"undo", "edit", "undo"},
	{"redo", "edit", "redo"},
	{"save", "project", "save"},
	{"mute", "track", "mute"},
	{"solo", "track", "solo"},
	{"louder", "mixer", "adjust_volume"},
	{"quieter", "mixer", "adjust_volume"},
}

// Complete scans the user text for command keywords. Confidence is fixed
// low so downstream display distinguishes heuristic guesses from parsed
// commands.
func (LocalCompleter) Complete(_ context.Context, _, user string) (string, error) {
	text := transcript.Normalize(user)
	for _, kw := range localKeywords {
		if strings.Contains(text, kw.word) {
			raw, err := json.Marshal(localIntent{Type: kw.typ, Action: kw.action, Confidence: 0.5})
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	return `{"type":"","action":""}`, nil
}

// LogSynthesizer writes announcements to the log instead of speaking
// them. It stands in when no speech backend is configured.
type LogSynthesizer struct {
	Logger *slog.Logger
}

func (s LogSynthesizer) Speak(_ context.Context, text string) error {
	s.Logger.Info("announcement", "text", text)
	return nil
}

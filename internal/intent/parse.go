package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rhea-voice/rhea/internal/transcript"
)

// Rule confidence constants. These are design constants shared with the
// replay harness thresholds; do not recompute them.
const (
	confidenceExact     = 0.95
	confidenceWithTrack = 0.90
	confidenceInferred  = 0.70
	confidenceDelta     = 0.85
	confidenceGotoBar   = 0.90
)

var (
	gotoBarPattern  = regexp.MustCompile(`(?:go to|jump to)\s+(?:bar|measure)?\s*(\d+)`)
	trackNumPattern = regexp.MustCompile(`track\s+(\d+)`)
	deltaPattern    = regexp.MustCompile(`(raise|up|lower|down)\b.*?(\d+(?:\.\d+)?)\s*(db)?`)
)

// Parse maps a raw transcript to an intent, or nil when no rule matches.
// Matching is first-match-wins in fixed rule priority: exact transport and
// project verbs, then navigation, then track toggles, then mixer deltas.
// Parse is a pure function of its input.
func Parse(raw string) *Intent {
	text := transcript.ReplaceNumberWords(transcript.Normalize(raw))
	if text == "" {
		return nil
	}

	// "stop" must be checked before any broader pattern can see it.
	if containsWord(text, "stop") || containsWord(text, "halt") {
		return &Intent{Type: TypeTransport, Action: "stop", Confidence: confidenceExact}
	}
	if containsWord(text, "play") || containsWord(text, "start") || containsWord(text, "resume") {
		return &Intent{Type: TypeTransport, Action: "play", Confidence: confidenceExact}
	}
	if containsWord(text, "record") {
		return &Intent{Type: TypeTransport, Action: "record", Confidence: confidenceExact}
	}
	if containsWord(text, "undo") {
		return &Intent{Type: TypeEdit, Action: "undo", Confidence: confidenceExact}
	}
	if containsWord(text, "redo") {
		return &Intent{Type: TypeEdit, Action: "redo", Confidence: confidenceExact}
	}
	if containsWord(text, "save") {
		return &Intent{Type: TypeProject, Action: "save", Confidence: confidenceExact}
	}

	if m := gotoBarPattern.FindStringSubmatch(text); m != nil {
		bar, err := strconv.Atoi(m[1])
		if err == nil {
			return &Intent{Type: TypeNavigation, Action: "goto_bar", Bar: &bar, Confidence: confidenceGotoBar}
		}
	}

	if in := parseTrackToggle(text); in != nil {
		return in
	}

	if in := parseMixerDelta(text); in != nil {
		return in
	}

	return nil
}

// parseTrackToggle handles mute/unmute/solo/unsolo with an optional explicit
// track number. Confidence drops when the track must be inferred from
// session context downstream.
func parseTrackToggle(text string) *Intent {
	var action string
	switch {
	case containsWord(text, "unmute"):
		action = "unmute"
	case containsWord(text, "mute"):
		action = "mute"
	case containsWord(text, "unsolo"):
		action = "unsolo"
	case containsWord(text, "solo"):
		action = "solo"
	default:
		return nil
	}

	in := &Intent{Type: TypeTrack, Action: action, Confidence: confidenceInferred}
	if m := trackNumPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			in.Track = &n
			in.Confidence = confidenceWithTrack
		}
	}
	return in
}

// parseMixerDelta handles "raise track 2 by 3 db" style volume moves. A
// track number is required; the direction word maps to the delta sign and
// the unit defaults to dB.
func parseMixerDelta(text string) *Intent {
	tm := trackNumPattern.FindStringSubmatch(text)
	if tm == nil {
		return nil
	}
	track, err := strconv.Atoi(tm[1])
	if err != nil {
		return nil
	}

	// Strip the track reference first so its number cannot be mistaken for
	// the delta amount.
	remainder := strings.Replace(text, tm[0], "", 1)
	m := deltaPattern.FindStringSubmatch(remainder)
	if m == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	if m[1] == "lower" || m[1] == "down" {
		amount = -amount
	}

	return &Intent{
		Type:       TypeMixer,
		Action:     "volume_delta",
		Track:      &track,
		Delta:      &amount,
		Unit:       UnitDB,
		Confidence: confidenceDelta,
	}
}

func containsWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		leftOK := idx == 0 || text[idx-1] == ' '
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

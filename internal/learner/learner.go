// Package learner passively observes the action stream, classifies the
// current workflow mode, spots repeated sequences, and offers tips.
package learner

import (
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rhea-voice/rhea/internal/sched"
)

// Mode is the inferred workflow the user is in.
type Mode string

const (
	ModeUnknown    Mode = "unknown"
	ModeRecording  Mode = "recording"
	ModeMixing     Mode = "mixing"
	ModeMastering  Mode = "mastering"
	ModeBeatmaking Mode = "beatmaking"
	ModeEditing    Mode = "editing"
	ModeComposing  Mode = "composing"
)

// SessionState is the process-wide session snapshot. It resets on Stop;
// Preferences persist across sessions.
type SessionState struct {
	Mode         Mode      `json:"mode"`
	Phase        string    `json:"phase"`
	ActiveView   string    `json:"activeView"`
	FocusedTrack int       `json:"focusedTrack"`
	StartTime    time.Time `json:"startTime"`
}

// Classification thresholds. Mode switches need clear evidence so sparse
// signal cannot flap the state back and forth.
const (
	keywordWeight      = 2
	viewWeight         = 1
	switchThreshold    = 5
	scanWindow         = 20
	announceChance     = 0.30
	patternMinLen      = 3
	patternMaxLen      = 5
	patternOfferAfter  = 3
	stuckFloor         = 30 * time.Second
	stuckRatio         = 3
	longPauseRatio     = 6
	frustrationUndos   = 3
	suggestionCooldown = 30 * time.Second
)

type modeIndicators struct {
	keywords []string
	views    []string
}

var indicators = map[Mode]modeIndicators{
	ModeRecording:  {keywords: []string{"record", "arm", "input", "monitor"}, views: []string{"tcp", "transport"}},
	ModeMixing:     {keywords: []string{"volume", "pan", "fader", "send", "mute", "solo"}, views: []string{"mcp", "mixer"}},
	ModeMastering:  {keywords: []string{"master", "limiter", "loudness", "lufs"}, views: []string{"master"}},
	ModeBeatmaking: {keywords: []string{"midi", "drum", "quantize", "sample"}, views: []string{"midi_editor"}},
	ModeEditing:    {keywords: []string{"cut", "split", "trim", "fade", "glue"}, views: []string{"tcp"}},
	ModeComposing:  {keywords: []string{"chord", "note", "insert", "virtual instrument"}, views: []string{"midi_editor", "tcp"}},
}

type observed struct {
	action string
	at     time.Time
}

// Learner watches actions without ever initiating them. Suggestions go out
// through the injected callback under a global cooldown.
type Learner struct {
	clock   sched.Clock
	rng     *rand.Rand
	logger  *slog.Logger
	suggest func(text string)

	cooldowns *cache.Cache

	mu              sync.Mutex
	state           SessionState
	prefs           Preferences
	prefsPath       string
	actions         []observed
	patternCounts   map[string]int
	offeredPatterns map[string]struct{}
}

// New constructs a learner. The random source drives announce probability
// and must be seeded by the caller; preferences load from prefsPath when
// present.
func New(prefsPath string, clock sched.Clock, rng *rand.Rand, logger *slog.Logger, suggest func(string)) *Learner {
	if clock == nil {
		clock = sched.Real()
	}
	if suggest == nil {
		suggest = func(string) {}
	}
	l := &Learner{
		clock:           clock,
		rng:             rng,
		logger:          logger,
		suggest:         suggest,
		cooldowns:       cache.New(suggestionCooldown, time.Minute),
		prefsPath:       prefsPath,
		patternCounts:   map[string]int{},
		offeredPatterns: map[string]struct{}{},
	}
	l.state = SessionState{Mode: ModeUnknown, StartTime: clock.Now()}
	l.prefs = loadPreferences(prefsPath, logger)
	return l
}

// State returns the current session snapshot.
func (l *Learner) State() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Preferences returns the cross-session preference snapshot.
func (l *Learner) Preferences() Preferences {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefs.clone()
}

// Observe feeds one executed action and the view it happened in.
func (l *Learner) Observe(action, view string) {
	l.mu.Lock()

	now := l.clock.Now()
	l.updateInterval(now)
	l.actions = append(l.actions, observed{action: strings.ToLower(action), at: now})
	if len(l.actions) > 200 {
		l.actions = l.actions[len(l.actions)-200:]
	}
	l.state.ActiveView = view

	modeTip := l.classify(view)
	patternTip := l.detectPattern()

	l.mu.Unlock()

	if modeTip != "" {
		l.offerSuggestion("mode", modeTip)
	}
	if patternTip != "" {
		l.offerSuggestion("pattern", patternTip)
	}
}

// ObservePlugin counts one fx-chain insertion toward the cross-session
// favorite-plugin profile.
func (l *Learner) ObservePlugin(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.prefs.FavoritePlugins == nil {
		l.prefs.FavoritePlugins = map[string]int{}
	}
	l.prefs.FavoritePlugins[name]++
	l.savePreferences()
}

// classify rescans the recent window and switches mode only past the
// evidence threshold. Returns an announcement, or empty.
func (l *Learner) classify(view string) string {
	weights := map[Mode]int{}

	window := l.actions
	if len(window) > scanWindow {
		window = window[len(window)-scanWindow:]
	}
	for mode, ind := range indicators {
		for _, entry := range window {
			for _, keyword := range ind.keywords {
				if strings.Contains(entry.action, keyword) {
					weights[mode] += keywordWeight
					break
				}
			}
		}
		for _, v := range ind.views {
			if v == view {
				weights[mode] += viewWeight
				break
			}
		}
	}

	var best Mode
	bestWeight := 0
	for _, mode := range []Mode{ModeRecording, ModeMixing, ModeMastering, ModeBeatmaking, ModeEditing, ModeComposing} {
		if weights[mode] > bestWeight {
			best = mode
			bestWeight = weights[mode]
		}
	}

	if bestWeight <= switchThreshold || best == l.state.Mode {
		return ""
	}
	previous := l.state.Mode
	l.state.Mode = best
	l.logger.Info("session mode changed", "from", string(previous), "to", string(best), "weight", bestWeight)

	// Most switches stay silent; constant narration is worse than none.
	if l.rng.Float64() < announceChance {
		return "Looks like you're " + string(best) + " now. I'll keep my tips relevant."
	}
	return ""
}

// detectPattern compares the trailing N actions against the N before them
// for each candidate length. The third exact repeat earns a shortcut offer,
// once, and the sequence is remembered in preferences.
func (l *Learner) detectPattern() string {
	for n := patternMinLen; n <= patternMaxLen; n++ {
		if len(l.actions) < 2*n {
			continue
		}
		tail := l.actions[len(l.actions)-n:]
		prior := l.actions[len(l.actions)-2*n : len(l.actions)-n]
		if !sameActions(tail, prior) {
			continue
		}

		key := joinActions(tail)
		l.patternCounts[key]++
		if l.patternCounts[key] < patternOfferAfter {
			continue
		}
		if _, offered := l.offeredPatterns[key]; offered {
			continue
		}
		l.offeredPatterns[key] = struct{}{}
		l.prefs.CommonSequences = append(l.prefs.CommonSequences, strings.Split(key, "|"))
		l.savePreferences()
		return "You've repeated that " + key + " sequence a few times. Want me to save it as a shortcut?"
	}
	return ""
}

// CheckStuck inspects idle time against the rolling action interval. Call
// it periodically; it emits at most one tip per cooldown window.
func (l *Learner) CheckStuck() {
	l.mu.Lock()
	if len(l.actions) == 0 {
		l.mu.Unlock()
		return
	}

	avg := l.averageInterval()
	threshold := avg * stuckRatio
	if threshold < stuckFloor {
		threshold = stuckFloor
	}
	idle := l.clock.Now().Sub(l.actions[len(l.actions)-1].at)
	if idle < threshold {
		l.mu.Unlock()
		return
	}

	undoLoop := l.recentUndoCount() >= frustrationUndos
	longPause := idle >= avg*longPauseRatio
	l.mu.Unlock()

	switch {
	case undoLoop:
		l.offerSuggestion("stuck", "Lots of undo in a row. Want to A/B against the last saved version instead?")
	case longPause:
		l.offerSuggestion("stuck", "Been quiet for a while. Want a fresh ear? Try muting everything but the drums.")
	}
}

// Stop resets the session snapshot and persists preferences.
func (l *Learner) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = SessionState{Mode: ModeUnknown, StartTime: l.clock.Now()}
	l.actions = nil
	l.patternCounts = map[string]int{}
	l.savePreferences()
}

// offerSuggestion routes one tip through the shared cooldown gate.
func (l *Learner) offerSuggestion(source, text string) {
	if err := l.cooldowns.Add("suggestion", source, cache.DefaultExpiration); err != nil {
		l.logger.Debug("suggestion suppressed by cooldown", "source", source)
		return
	}
	l.suggest(text)
}

// updateInterval folds the gap since the previous action into the rolling
// average kept in preferences.
func (l *Learner) updateInterval(now time.Time) {
	if len(l.actions) == 0 {
		return
	}
	gap := now.Sub(l.actions[len(l.actions)-1].at).Seconds()
	if gap <= 0 {
		return
	}
	if l.prefs.AverageActionIntervalSec == 0 {
		l.prefs.AverageActionIntervalSec = gap
		return
	}
	l.prefs.AverageActionIntervalSec = l.prefs.AverageActionIntervalSec*0.8 + gap*0.2
}

func (l *Learner) averageInterval() time.Duration {
	if l.prefs.AverageActionIntervalSec <= 0 {
		return stuckFloor
	}
	return time.Duration(l.prefs.AverageActionIntervalSec * float64(time.Second))
}

// recentUndoCount counts undos in the last five actions.
func (l *Learner) recentUndoCount() int {
	window := l.actions
	if len(window) > 5 {
		window = window[len(window)-5:]
	}
	count := 0
	for _, entry := range window {
		if strings.Contains(entry.action, "undo") {
			count++
		}
	}
	return count
}

func sameActions(a, b []observed) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].action != b[i].action {
			return false
		}
	}
	return true
}

func joinActions(entries []observed) string {
	parts := make([]string, len(entries))
	for i, entry := range entries {
		parts[i] = entry.action
	}
	return strings.Join(parts, "|")
}

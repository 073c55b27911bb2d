// Package speak owns the single voice output stream. Every announcement
// path funnels through one Gate so the assistant never talks over itself.
package speak

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhea-voice/rhea/internal/daw"
	"github.com/rhea-voice/rhea/internal/sched"
)

// Synthesizer turns announcement text into audible speech. Speak blocks
// until playback finishes or fails.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, text string) error

func (f SynthesizerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

const (
	duplicateWindow = 400 * time.Millisecond
	debounceFloor   = 200 * time.Millisecond
)

// Gate serializes announcements: it drops a new one while a previous one is
// still being spoken, drops exact-duplicate text inside the duplicate
// window, and enforces a hard debounce floor between any two utterances.
// The speaking flag and last-text/last-time pair are the sole shared
// mutable state; Gate is their only owner.
type Gate struct {
	synth  Synthesizer
	clock  sched.Clock
	logger *slog.Logger

	mu        sync.Mutex
	speaking  bool
	lastText  string
	lastSpoke time.Time
}

// NewGate constructs the voice gate around a synthesizer backend.
func NewGate(synth Synthesizer, clock sched.Clock, logger *slog.Logger) *Gate {
	if clock == nil {
		clock = sched.Real()
	}
	return &Gate{synth: synth, clock: clock, logger: logger}
}

// Say dispatches text to the synthesizer unless a gate rule blocks it.
// It reports whether the utterance was actually dispatched.
func (g *Gate) Say(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	g.mu.Lock()
	now := g.clock.Now()
	switch {
	case g.speaking:
		g.mu.Unlock()
		g.logger.Debug("announcement blocked: still speaking", "text", text)
		return false
	case !g.lastSpoke.IsZero() && text == g.lastText && now.Sub(g.lastSpoke) < duplicateWindow:
		g.mu.Unlock()
		g.logger.Debug("announcement blocked: duplicate", "text", text)
		return false
	case !g.lastSpoke.IsZero() && now.Sub(g.lastSpoke) < debounceFloor:
		g.mu.Unlock()
		g.logger.Debug("announcement blocked: debounce floor", "text", text)
		return false
	}
	g.speaking = true
	g.lastText = text
	g.lastSpoke = now
	g.mu.Unlock()

	go func() {
		if err := g.synth.Speak(ctx, text); err != nil {
			g.logger.Warn("speech synthesis failed", "error", err.Error())
		}
		g.mu.Lock()
		g.speaking = false
		g.mu.Unlock()
	}()
	return true
}

// Speaking reports whether an utterance is currently in flight.
func (g *Gate) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}

// MapTerminology rewrites track references to mixer terminology when the
// signal came from the mixer panel. The substitution is applied to the
// pre-formatted announcement text, not re-derived.
func MapTerminology(text string, view daw.ViewContext) string {
	if view != daw.ViewMixer {
		return text
	}
	text = strings.ReplaceAll(text, "Track", "Channel")
	return strings.ReplaceAll(text, "track", "channel")
}

package vocab

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/rhea-voice/rhea/internal/intent"
)

// Context is the live session snapshot symbolic targets resolve against.
type Context struct {
	SelectedTrack  int
	ActiveTrack    int
	FocusedElement string
	View           string
}

// PlannedAction is one runtime-resolved action ready for execution.
type PlannedAction struct {
	Spec                  ActionSpec
	ResolvedTrack         int
	ResolvedElement       string
	NeedsClarification    bool
	ClarificationQuestion string
}

// ActionPlan is the transient, per-utterance resolution of a vocabulary
// match. It is built fresh every time and never persisted.
type ActionPlan struct {
	Item                  Item
	Actions               []PlannedAction
	NeedsClarification    bool
	ClarificationQuestion string
	Confirmation          string
}

// Resolver builds action plans from vocabulary matches. The random source
// is injected so confirmation phrasing is deterministic under test.
type Resolver struct {
	rng *rand.Rand
}

// NewResolver constructs a resolver around the given random source.
func NewResolver(rng *rand.Rand) *Resolver {
	return &Resolver{rng: rng}
}

// BuildPlan resolves item against ctx. It returns nil for pure vibe
// phrases: items with no enabled action mapping carry no DAW work.
func (r *Resolver) BuildPlan(item Item, ctx Context) *ActionPlan {
	if !item.ActionMapping.Enabled || len(item.ActionMapping.Actions) == 0 {
		return nil
	}

	plan := &ActionPlan{Item: item}
	for _, spec := range item.ActionMapping.Actions {
		planned := r.resolveAction(spec, ctx, item.ClarificationRule)
		if planned.NeedsClarification {
			plan.NeedsClarification = true
			if plan.ClarificationQuestion == "" {
				plan.ClarificationQuestion = planned.ClarificationQuestion
			}
		}
		plan.Actions = append(plan.Actions, planned)
	}

	plan.Confirmation = r.confirmation(item)
	return plan
}

// resolveAction resolves one spec's target symbol and flags missing
// parameters. The item's clarification rule governs parameter questions
// only: an unresolved hover target always asks, since there is nothing
// to execute against.
func (r *Resolver) resolveAction(spec ActionSpec, ctx Context, rule ClarificationRule) PlannedAction {
	planned := PlannedAction{Spec: spec}

	switch spec.Target {
	case TargetSelectedTrack:
		switch {
		case ctx.SelectedTrack > 0:
			planned.ResolvedTrack = ctx.SelectedTrack
		case ctx.ActiveTrack > 0:
			planned.ResolvedTrack = ctx.ActiveTrack
		default:
			planned.ResolvedTrack = 1
		}
	case TargetFocusedUIElement:
		if ctx.FocusedElement == "" {
			planned.NeedsClarification = true
			planned.ClarificationQuestion = "Which control do you mean? Hover over it and ask again."
		} else {
			planned.ResolvedElement = ctx.FocusedElement
		}
	case TargetMaster, TargetTransport, TargetRegion:
		// Fixed targets need no context.
	}

	if spec.Type == ActionParameterDelta {
		switch {
		case rule == AlwaysAsk:
			planned.NeedsClarification = true
			planned.ClarificationQuestion = clarificationQuestion(spec.Payload.Param)
		case spec.Payload.Amount == nil && rule == NeverAsk:
			amount := defaultMagnitude
			planned.Spec.Payload.Amount = &amount
		case spec.Payload.Amount == nil:
			planned.NeedsClarification = true
			planned.ClarificationQuestion = clarificationQuestion(spec.Payload.Param)
		}
	}
	return planned
}

// defaultMagnitude is the "medium" answer a neverAsk item executes with
// when its amount is missing.
const defaultMagnitude = 3.0

// clarificationQuestion is the parameter-specific follow-up for a missing
// amount.
func clarificationQuestion(param string) string {
	switch param {
	case "volume":
		return "How much? 1dB, 3dB, or 5dB?"
	case "pan":
		return "How far? A little, medium, or hard?"
	default:
		return fmt.Sprintf("How much %s?", param)
	}
}

var confirmationPools = map[Sentiment][]string{
	SentimentPositive: {
		"Love it, done.",
		"On it, sounds great.",
		"Done. That's the move.",
	},
	SentimentNeutral: {
		"Done.",
		"Okay, done.",
		"Got it.",
	},
	SentimentNegative: {
		"Alright, fixing that.",
		"Yeah, let's clean that up.",
		"Okay, dialing it back.",
	},
}

// confirmation picks the spoken acknowledgment: an explicit override on any
// action spec wins, otherwise a random draw from the sentiment pool.
func (r *Resolver) confirmation(item Item) string {
	for _, spec := range item.ActionMapping.Actions {
		if spec.Confirmation != "" {
			return spec.Confirmation
		}
	}
	pool, ok := confirmationPools[item.Sentiment]
	if !ok || len(pool) == 0 {
		pool = confirmationPools[SentimentNeutral]
	}
	return pool[r.rng.Intn(len(pool))]
}

// VibeReply picks the spoken response for a pure vibe phrase, drawn from
// the same sentiment pools as action confirmations.
func (r *Resolver) VibeReply(item Item) string {
	pool, ok := confirmationPools[item.Sentiment]
	if !ok || len(pool) == 0 {
		pool = confirmationPools[SentimentNeutral]
	}
	return pool[r.rng.Intn(len(pool))]
}

var clarificationNumberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(db|percent|%|ms)?`)

var descriptiveMagnitudes = map[string]float64{
	"light": 1, "little": 1, "subtle": 1,
	"medium": 3, "moderate": 3,
	"heavy": 5, "lot": 5, "hard": 5,
}

// ParseClarification interprets the user's answer to a missing-amount
// question. Numeric answers take priority; descriptive terms map to fixed
// magnitudes in the parameter's default unit.
func ParseClarification(reply string, defaultUnit intent.Unit) (float64, intent.Unit, bool) {
	reply = strings.ToLower(strings.TrimSpace(reply))
	if reply == "" {
		return 0, "", false
	}

	if m := clarificationNumberPattern.FindStringSubmatch(reply); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			unit := defaultUnit
			switch m[2] {
			case "db":
				unit = intent.UnitDB
			case "percent", "%":
				unit = intent.UnitPercent
			case "ms":
				unit = intent.UnitMS
			}
			return amount, unit, true
		}
	}

	for word, magnitude := range descriptiveMagnitudes {
		if strings.Contains(reply, word) {
			return magnitude, defaultUnit, true
		}
	}
	return 0, "", false
}

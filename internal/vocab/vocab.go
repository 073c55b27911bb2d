// Package vocab stores studio-slang vocabulary and resolves matched phrases
// into executable action plans.
package vocab

import (
	"time"

	"github.com/rhea-voice/rhea/internal/intent"
)

// IntentType separates conversational phrases from actionable ones.
type IntentType string

const (
	IntentVibe   IntentType = "vibe"
	IntentAction IntentType = "action"
)

// Sentiment keys the confirmation phrase pool a response is drawn from.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ClarificationRule controls when a matched item asks before executing.
type ClarificationRule string

const (
	NeverAsk       ClarificationRule = "neverAsk"
	AskIfAmbiguous ClarificationRule = "askIfAmbiguous"
	AlwaysAsk      ClarificationRule = "alwaysAsk"
)

// Target is the symbolic recipient of one action, resolved against live
// session context at plan-build time.
type Target string

const (
	TargetSelectedTrack    Target = "selectedTrack"
	TargetMaster           Target = "master"
	TargetFocusedUIElement Target = "focusedUIElement"
	TargetTransport        Target = "transport"
	TargetRegion           Target = "region"
)

// ActionType selects the execution path for one action spec.
type ActionType string

const (
	ActionReaperAction   ActionType = "reaperAction"
	ActionReaperScript   ActionType = "reaperScript"
	ActionFXChain        ActionType = "fxChain"
	ActionParameterDelta ActionType = "parameterDelta"
)

// Payload carries the type-specific arguments of an action spec. Amount is
// a pointer because its absence is meaningful: a parameterDelta without an
// amount triggers a clarification turn.
type Payload struct {
	ActionID string      `json:"actionId,omitempty"`
	Script   string      `json:"script,omitempty"`
	Chain    string      `json:"chain,omitempty"`
	Param    string      `json:"param,omitempty"`
	Amount   *float64    `json:"amount,omitempty"`
	Unit     intent.Unit `json:"unit,omitempty"`
}

// ActionSpec is the stored template for one DAW action.
type ActionSpec struct {
	Target       Target     `json:"target"`
	Type         ActionType `json:"type"`
	Payload      Payload    `json:"payload"`
	Confirmation string     `json:"confirmation,omitempty"`
}

// ActionMapping attaches zero or more action specs to a vocabulary item.
type ActionMapping struct {
	Enabled bool         `json:"enabled"`
	Actions []ActionSpec `json:"actions"`
}

// Item is one persisted vocabulary record.
type Item struct {
	ID                string            `json:"id"`
	Phrase            string            `json:"phrase"`
	Category          string            `json:"category"`
	Definition        string            `json:"definition"`
	IntentType        IntentType        `json:"intentType"`
	Sentiment         Sentiment         `json:"sentiment"`
	Tags              []string          `json:"tags,omitempty"`
	ClarificationRule ClarificationRule `json:"clarificationRule"`
	ActionMapping     ActionMapping     `json:"actionMapping"`
}

// SchemaVersion is the current persisted document version. Migration is
// forward-only; documents are never downgraded.
const SchemaVersion = 2

// Document is the versioned on-disk form of the vocabulary.
type Document struct {
	SchemaVersion int       `json:"schemaVersion"`
	LastModified  time.Time `json:"lastModified"`
	Items         []Item    `json:"items"`
}

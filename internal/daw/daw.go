// Package daw defines the action-execution contract with the DAW and the
// bridge client that carries control-touch signals and commands.
package daw

import (
	"context"
	"errors"
)

// ErrUnavailable marks a command attempted without a connected DAW bridge.
var ErrUnavailable = errors.New("daw action interface unavailable")

// Actions is the narrow command surface the executor depends on. The DAW
// promises nothing beyond eventual success or failure per call.
type Actions interface {
	ExecuteAction(ctx context.Context, actionID string) error
	ExecuteTrackCommand(ctx context.Context, param string, target int, delta float64) error
}

// ViewContext identifies which DAW surface produced a signal.
type ViewContext string

const (
	ViewMixer     ViewContext = "mcp"
	ViewArrange   ViewContext = "tcp"
	ViewTransport ViewContext = "transport"
)

// ControlTouchEvent is one raw hover/touch signal from the DAW bridge.
// Events arrive push-only and may be arbitrarily bursty during drags; they
// are never persisted, only the derived settled announcement is.
type ControlTouchEvent struct {
	TrackNumber    int         `json:"track_number"`
	ControlType    string      `json:"control_type"`
	Value          float64     `json:"value"`
	ValueFormatted string      `json:"value_formatted"`
	Context        ViewContext `json:"context"`
	Success        bool        `json:"success"`
}

// IsTransport reports whether the event came from a transport control,
// which is exempt from menu-noise invalidation.
func (e ControlTouchEvent) IsTransport() bool {
	return e.Context == ViewTransport
}

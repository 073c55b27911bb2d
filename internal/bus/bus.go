// Package bus carries pipeline events to UI collaborators over a typed
// publish/subscribe channel with a closed set of event kinds.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Kind is one event topic. The set is closed: it is the integration
// contract with the HUD/overlay layer and must not grow ad hoc.
type Kind string

const (
	KindStateChange       Kind = "state-change"
	KindInterimTranscript Kind = "interim-transcript"
	KindIntent            Kind = "intent"
	KindCancelWindowStart Kind = "cancel-window-start"
	KindExecutionComplete Kind = "execution-complete"
	KindContextUpdate     Kind = "context-update"
	KindLog               Kind = "log"
)

var knownKinds = map[Kind]struct{}{
	KindStateChange:       {},
	KindInterimTranscript: {},
	KindIntent:            {},
	KindCancelWindowStart: {},
	KindExecutionComplete: {},
	KindContextUpdate:     {},
	KindLog:               {},
}

// Valid reports whether k belongs to the closed event vocabulary.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Bus is an in-process publish/subscribe channel with JSON payloads.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// New constructs an in-memory bus.
func New() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
	}
}

// Publish marshals payload as JSON and publishes it under the kind topic.
// Unknown kinds are rejected so subscribers can rely on the closed set.
func (b *Bus) Publish(kind Kind, payload any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown event kind %q", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	return b.pubsub.Publish(string(kind), message.NewMessage(watermill.NewUUID(), body))
}

// Subscribe returns the message stream for one event kind.
func (b *Bus) Subscribe(ctx context.Context, kind Kind) (<-chan *message.Message, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	return b.pubsub.Subscribe(ctx, string(kind))
}

// Close shuts the underlying channel down and closes subscriber streams.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

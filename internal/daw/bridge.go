package daw

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// commandFrame is one outbound action request on the bridge socket.
type commandFrame struct {
	Op       string  `json:"op"`
	ActionID string  `json:"action_id,omitempty"`
	Param    string  `json:"param,omitempty"`
	Target   int     `json:"target,omitempty"`
	Delta    float64 `json:"delta,omitempty"`
}

// Bridge is a websocket client to the DAW-side helper. Inbound frames are
// control-touch events delivered to the registered consumer; outbound
// frames are action commands, making Bridge the live Actions backend.
type Bridge struct {
	url       string
	logger    *slog.Logger
	reconnect uint

	mu   sync.Mutex
	conn *ws.Conn
}

// DialBridge connects to the DAW bridge endpoint.
func DialBridge(url string, reconnect uint, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{url: url, logger: logger, reconnect: reconnect}
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial daw bridge %q: %w", url, err)
	}
	b.conn = conn
	return b, nil
}

// Listen decodes inbound control-touch events and pushes each to consume
// until the context is cancelled or reconnect attempts are exhausted.
func (b *Bridge) Listen(ctx context.Context, consume func(ControlTouchEvent)) error {
	attempts := uint(0)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()
		if conn == nil {
			return ErrUnavailable
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempts >= b.reconnect {
				return fmt.Errorf("daw bridge read: %w", err)
			}
			attempts++
			b.logger.Warn("daw bridge read failed, reconnecting",
				"error", err.Error(), "attempt", attempts)
			if rerr := b.redial(); rerr != nil {
				return rerr
			}
			continue
		}
		attempts = 0

		var event ControlTouchEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			// Malformed frames are boundary noise, not fatal.
			b.logger.Debug("discarding malformed bridge frame", "error", err.Error())
			continue
		}
		consume(event)
	}
}

// ExecuteAction sends one named action command over the bridge.
func (b *Bridge) ExecuteAction(ctx context.Context, actionID string) error {
	return b.send(ctx, commandFrame{Op: "action", ActionID: actionID})
}

// ExecuteTrackCommand sends one parameter-delta command over the bridge.
func (b *Bridge) ExecuteTrackCommand(ctx context.Context, param string, target int, delta float64) error {
	return b.send(ctx, commandFrame{Op: "track_command", Param: param, Target: target, Delta: delta})
}

// Close tears down the socket.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Bridge) send(ctx context.Context, frame commandFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrUnavailable
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetWriteDeadline(deadline)
	} else {
		_ = b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal bridge command: %w", err)
	}
	if err := b.conn.WriteMessage(ws.TextMessage, payload); err != nil {
		return fmt.Errorf("write bridge command: %w", err)
	}
	return nil
}

func (b *Bridge) redial() error {
	conn, _, err := ws.DefaultDialer.Dial(b.url, nil)
	if err != nil {
		return fmt.Errorf("redial daw bridge %q: %w", b.url, err)
	}
	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()
	return nil
}

package daw

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startBridgeServer(t *testing.T, handle func(*ws.Conn)) string {
	t.Helper()

	upgrader := ws.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBridgeListenDeliversControlTouchEvents(t *testing.T) {
	t.Parallel()

	sent := ControlTouchEvent{
		TrackNumber:    3,
		ControlType:    "volume_fader",
		Value:          0.72,
		ValueFormatted: "-6.0 dB",
		Context:        ViewMixer,
		Success:        true,
	}
	url := startBridgeServer(t, func(conn *ws.Conn) {
		payload, err := json.Marshal(sent)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(ws.TextMessage, payload))
		time.Sleep(100 * time.Millisecond)
	})

	bridge, err := DialBridge(url, 0, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer func() { _ = bridge.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan ControlTouchEvent, 1)
	go func() {
		_ = bridge.Listen(ctx, func(event ControlTouchEvent) {
			received <- event
			cancel()
		})
	}()

	select {
	case event := <-received:
		require.Equal(t, sent, event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridge event")
	}
}

func TestBridgeExecuteActionWritesCommandFrame(t *testing.T) {
	t.Parallel()

	frames := make(chan []byte, 1)
	url := startBridgeServer(t, func(conn *ws.Conn) {
		_, payload, err := conn.ReadMessage()
		if err == nil {
			frames <- payload
		}
	})

	bridge, err := DialBridge(url, 0, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer func() { _ = bridge.Close() }()

	require.NoError(t, bridge.ExecuteAction(context.Background(), "40044"))

	select {
	case payload := <-frames:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(payload, &frame))
		require.Equal(t, "action", frame["op"])
		require.Equal(t, "40044", frame["action_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command frame")
	}
}

func TestBridgeSendAfterCloseIsUnavailable(t *testing.T) {
	t.Parallel()

	url := startBridgeServer(t, func(conn *ws.Conn) {
		time.Sleep(50 * time.Millisecond)
	})

	bridge, err := DialBridge(url, 0, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, bridge.Close())

	err = bridge.ExecuteAction(context.Background(), "40044")
	require.ErrorIs(t, err, ErrUnavailable)
}

package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// echoHub минимальный relay: пересылает сообщение всем остальным соединениям.
type echoHub struct {
	upgrader websocket.Upgrader
	conns    map[*websocket.Conn]struct{}
	headers  []string
	paths    []string
	mu       sync.Mutex
}

func newEchoHub() *echoHub {
	return &echoHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *echoHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns[ws] = struct{}{}
	h.headers = append(h.headers, r.Header.Get("Authorization"))
	h.paths = append(h.paths, r.URL.Path)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, ws)
		h.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		h.mu.Lock()
		for other := range h.conns {
			if other != ws {
				_ = other.WriteMessage(websocket.TextMessage, data)
			}
		}
		h.mu.Unlock()
	}
}

// dropAll разрывает все соединения со стороны сервера.
func (h *echoHub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns {
		_ = ws.Close()
	}
}

func (h *echoHub) connCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

func TestRelay_RoomURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/ws/project-1-doc-2"},
		{base: "https://relay.example.com/", want: "wss://relay.example.com/ws/project-1-doc-2"},
		{base: "ws://host/prefix", want: "ws://host/prefix/ws/project-1-doc-2"},
		{base: "ftp://host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			r := NewRelay(tt.base, setupTestLogger())
			got, err := r.RoomURL("project-1-doc-2")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelay_SendReceive(t *testing.T) {
	hub := newEchoHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	relay := NewRelay(server.URL, setupTestLogger(), WithToken("secret-token"), WithBackOff(fastBackOff))
	assert.Equal(t, KindRelayed, relay.Kind())

	inA, inB := &inbox{}, &inbox{}
	a, err := relay.Join(context.Background(), "room", "a", inA.callbacks())
	require.NoError(t, err)
	b, err := relay.Join(context.Background(), "room", "b", inB.callbacks())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return inA.lastState() == StateConnected && inB.lastState() == StateConnected && hub.connCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	msg := &api.RelayMessage{Type: api.MessageUpdate, Room: "room", From: "a", Payload: []byte("delta")}
	require.NoError(t, a.Send(context.Background(), msg))

	require.Eventually(t, func() bool { return inB.messageCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	inB.mu.Lock()
	assert.Equal(t, msg, inB.messages[0])
	inB.mu.Unlock()

	hub.mu.Lock()
	assert.Equal(t, []string{"Bearer secret-token", "Bearer secret-token"}, hub.headers)
	assert.True(t, strings.HasSuffix(hub.paths[0], "/ws/room"))
	hub.mu.Unlock()

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, StateDisconnected, inA.lastState())
	assert.ErrorIs(t, a.Send(context.Background(), msg), ErrClosed)
}

func TestRelay_Reconnect(t *testing.T) {
	hub := newEchoHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	relay := NewRelay(server.URL, setupTestLogger(), WithBackOff(fastBackOff))
	in := &inbox{}
	conn, err := relay.Join(context.Background(), "room", "a", in.callbacks())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return hub.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.dropAll()

	require.Eventually(t, func() bool {
		in.mu.Lock()
		defer in.mu.Unlock()
		connected := 0
		for _, s := range in.states {
			if s == StateConnected {
				connected++
			}
		}
		return connected >= 2
	}, 2*time.Second, 10*time.Millisecond, "transport must reconnect after the link drops")
}

func TestRelay_NotConnected(t *testing.T) {
	// сервер недоступен: канал остается в Connecting, Send возвращает ErrNotConnected
	relay := NewRelay("http://127.0.0.1:1", setupTestLogger(), WithBackOff(fastBackOff))
	in := &inbox{}
	conn, err := relay.Join(context.Background(), "room", "a", in.callbacks())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return in.lastState() == StateConnecting }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, conn.Send(context.Background(), &api.RelayMessage{}), ErrNotConnected)

	require.NoError(t, conn.Close())
	assert.Equal(t, StateDisconnected, in.lastState())
}

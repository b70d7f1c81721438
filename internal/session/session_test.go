package session

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/pkg/api"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func fastOptions() Options {
	return Options{
		PresenceInterval: 10 * time.Millisecond,
		PeerTTL:          100 * time.Millisecond,
	}
}

func openPeer(t *testing.T, mesh *transport.Mesh, room, node string) (*Manager, *Session) {
	t.Helper()
	m := NewManager(mesh, setupTestLogger(), fastOptions())
	engine := document.NewEngine(setupTestLogger(), document.WithNodeID(node))
	s, err := m.Open(context.Background(), room, engine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(s) })
	return m, s
}

func textOf(s *Session) string {
	text, err := s.Engine().PlainText()
	if err != nil {
		return ""
	}
	return text
}

func TestSession_PropagatesEdits(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "project-1-doc-1", "a")
	_, b := openPeer(t, mesh, "project-1-doc-1", "b")

	require.Eventually(t, func() bool { return a.PeerCount() == 2 && b.PeerCount() == 2 }, waitFor, tick)
	assert.True(t, a.Connected())

	require.NoError(t, a.Engine().ApplyLocalEdit(document.Insert(0, "hello")))
	require.Eventually(t, func() bool { return textOf(b) == "hello" }, waitFor, tick)

	require.NoError(t, b.Engine().ApplyLocalEdit(document.Insert(5, " world")))
	require.Eventually(t, func() bool { return textOf(a) == "hello world" }, waitFor, tick)
}

func TestSession_LateJoinerReceivesState(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "room", "a")
	require.Eventually(t, a.Connected, waitFor, tick)
	require.NoError(t, a.Engine().ApplyLocalEdit(document.Insert(0, "written before b joined")))

	_, b := openPeer(t, mesh, "room", "b")
	require.Eventually(t, func() bool { return textOf(b) == "written before b joined" }, waitFor, tick)
}

func TestSession_QueuesWhileDisconnected(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "room", "a")
	_, b := openPeer(t, mesh, "room", "b")
	require.Eventually(t, func() bool { return a.PeerCount() == 2 && b.PeerCount() == 2 }, waitFor, tick)

	mesh.SetOnline("room", "a", false)
	require.Eventually(t, func() bool { return a.State() == transport.StateConnecting }, waitFor, tick)

	require.NoError(t, a.Engine().ApplyLocalEdit(document.Insert(0, "offline edit")))
	assert.Equal(t, 1, a.Pending())
	assert.Equal(t, "", textOf(b))

	mesh.SetOnline("room", "a", true)
	require.Eventually(t, func() bool { return textOf(b) == "offline edit" }, waitFor, tick)
	require.Eventually(t, func() bool { return a.Pending() == 0 }, waitFor, tick)
}

func TestSession_PresenceAndExpiry(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "room", "a")
	_, b := openPeer(t, mesh, "room", "b")
	require.Eventually(t, func() bool { return a.PeerCount() == 2 }, waitFor, tick)
	assert.True(t, a.LastRemoteActivity().IsZero(), "b has not edited yet")

	require.NoError(t, b.Engine().ApplyLocalEdit(document.Insert(0, "x")))
	require.Eventually(t, func() bool { return !a.LastRemoteActivity().IsZero() }, waitFor, tick)

	peers := a.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "b", peers[0].NodeID)

	// b пропадает без leave: a забывает его по TTL
	mesh.SetOnline("room", "b", false)
	require.Eventually(t, func() bool { return a.PeerCount() == 1 }, waitFor, tick)
}

func TestSession_LeaveRemovesPeer(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "room", "a")
	mb, b := openPeer(t, mesh, "room", "b")
	require.Eventually(t, func() bool { return a.PeerCount() == 2 }, waitFor, tick)

	require.NoError(t, mb.Close(b))
	require.Eventually(t, func() bool { return a.PeerCount() == 1 }, waitFor, tick)
}

func TestManager_RoomSwitch(t *testing.T) {
	mesh := transport.NewMesh()
	_, peer := openPeer(t, mesh, "project-P1-doc-D1", "peer")

	m := NewManager(mesh, setupTestLogger(), fastOptions())
	oldEngine := document.NewEngine(setupTestLogger(), document.WithNodeID("me-1"))
	oldSession, err := m.Open(context.Background(), "project-P1-doc-D1", oldEngine)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return oldSession.PeerCount() == 2 }, waitFor, tick)

	newEngine := document.NewEngine(setupTestLogger(), document.WithNodeID("me-2"))
	newSession, err := m.Open(context.Background(), "project-P1-doc-D2", newEngine)
	require.NoError(t, err)
	defer func() { _ = m.Close(newSession) }()

	// старая сессия закрыта полностью до открытия новой
	assert.Equal(t, transport.StateDisconnected, oldSession.State())
	_, err = oldEngine.PlainText()
	assert.ErrorIs(t, err, document.ErrDestroyed)
	assert.Same(t, newSession, m.Current())
	assert.Equal(t, 1, mesh.Members("project-P1-doc-D1"), "only the peer remains in D1")

	require.NoError(t, peer.Engine().ApplyLocalEdit(document.Insert(0, "for D1 only")))
	time.Sleep(50 * time.Millisecond)

	text, err := newEngine.PlainText()
	require.NoError(t, err)
	assert.Equal(t, "", text, "no D1 message may reach the D2 engine")
}

func TestManager_CloseIdempotent(t *testing.T) {
	mesh := transport.NewMesh()
	m := NewManager(mesh, setupTestLogger(), fastOptions())
	engine := document.NewEngine(setupTestLogger())
	s, err := m.Open(context.Background(), "room", engine)
	require.NoError(t, err)

	require.NoError(t, m.Close(s))
	require.NoError(t, m.Close(s))
	require.NoError(t, m.Close(nil))
	assert.Nil(t, m.Current())
	assert.Equal(t, 0, mesh.Members("room"))
	assert.ErrorIs(t, engine.ApplyLocalEdit(document.Insert(0, "x")), document.ErrDestroyed)
}

// fakeTransport отдает callbacks тесту, чтобы подавать произвольные сообщения.
type fakeTransport struct {
	cb   transport.Callbacks
	sent []*api.RelayMessage
	mu   sync.Mutex
}

func (f *fakeTransport) Kind() transport.Kind { return transport.KindRelayed }

func (f *fakeTransport) Join(_ context.Context, _, _ string, cb transport.Callbacks) (transport.Conn, error) {
	f.cb = cb
	return f, nil
}

func (f *fakeTransport) Send(_ context.Context, msg *api.RelayMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) sentTypes() []api.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]api.MessageType, 0, len(f.sent))
	for _, msg := range f.sent {
		result = append(result, msg.Type)
	}
	return result
}

func TestSession_DropsForeignRoomMessages(t *testing.T) {
	fake := &fakeTransport{}
	m := NewManager(fake, setupTestLogger(), Options{PresenceInterval: time.Hour})
	engine := document.NewEngine(setupTestLogger(), document.WithNodeID("me"))
	s, err := m.Open(context.Background(), "project-P1-doc-D2", engine)
	require.NoError(t, err)
	defer func() { _ = m.Close(s) }()

	fake.cb.OnState(transport.StateConnected)
	assert.Equal(t, []api.MessageType{api.MessageSyncRequest}, fake.sentTypes())

	source := document.NewEngine(setupTestLogger(), document.WithNodeID("peer"))
	require.NoError(t, source.ApplyLocalEdit(document.Insert(0, "stale")))
	state, err := source.EncodeFullState()
	require.NoError(t, err)

	fake.cb.OnMessage(&api.RelayMessage{Type: api.MessageUpdate, Room: "project-P1-doc-D1", From: "peer", Payload: state})
	assert.Equal(t, "", textOf(s))
	assert.Equal(t, 1, s.PeerCount(), "foreign-room sender is not a peer")

	fake.cb.OnMessage(&api.RelayMessage{Type: api.MessageSyncRequest, Room: "project-P1-doc-D2", From: "peer", Payload: state})
	assert.Equal(t, "stale", textOf(s))
	assert.Equal(t, 2, s.PeerCount())
	assert.Equal(t, []api.MessageType{api.MessageSyncRequest, api.MessageSyncReply}, fake.sentTypes())

	// повреждённый update логируется и не ломает сессию
	fake.cb.OnMessage(&api.RelayMessage{Type: api.MessageUpdate, Room: "project-P1-doc-D2", From: "peer", Payload: []byte("junk")})
	assert.Equal(t, "stale", textOf(s))
}

func TestSession_RemoteUpdatesNotRebroadcast(t *testing.T) {
	fake := &fakeTransport{}
	m := NewManager(fake, setupTestLogger(), Options{PresenceInterval: time.Hour})
	engine := document.NewEngine(setupTestLogger(), document.WithNodeID("me"))
	s, err := m.Open(context.Background(), "room", engine)
	require.NoError(t, err)
	defer func() { _ = m.Close(s) }()
	fake.cb.OnState(transport.StateConnected)

	source := document.NewEngine(setupTestLogger(), document.WithNodeID("peer"))
	require.NoError(t, source.ApplyLocalEdit(document.Insert(0, "remote")))
	state, err := source.EncodeFullState()
	require.NoError(t, err)

	fake.cb.OnMessage(&api.RelayMessage{Type: api.MessageUpdate, Room: "room", From: "peer", Payload: state})
	require.NoError(t, engine.ApplyLocalEdit(document.Insert(0, "local ")))

	assert.Equal(t, []api.MessageType{api.MessageSyncRequest, api.MessageUpdate}, fake.sentTypes())
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "project-P1-doc-D1", RoomName(models.DocumentMeta{ID: "D1", ProjectID: "P1"}))
}

func TestSession_SyncedAfterReply(t *testing.T) {
	mesh := transport.NewMesh()
	_, a := openPeer(t, mesh, "room", "a")
	require.Eventually(t, a.Connected, waitFor, tick)

	// в пустой комнате отвечать некому
	select {
	case <-a.Synced():
		t.Fatal("session synced without peers")
	case <-time.After(50 * time.Millisecond):
	}

	_, b := openPeer(t, mesh, "room", "b")
	select {
	case <-b.Synced():
	case <-time.After(waitFor):
		t.Fatal("late joiner never received sync reply")
	}
}

func TestSession_OnCloseRunsOnRoomSwitch(t *testing.T) {
	mesh := transport.NewMesh()
	m := NewManager(mesh, setupTestLogger(), fastOptions())

	first := document.NewEngine(setupTestLogger(), document.WithNodeID("a"))
	s1, err := m.Open(context.Background(), "project-P1-doc-D1", first)
	require.NoError(t, err)

	var calls int
	var engineAlive bool
	s1.OnClose(func() {
		calls++
		_, err := first.PlainText()
		engineAlive = err == nil
	})

	second := document.NewEngine(setupTestLogger(), document.WithNodeID("a"))
	s2, err := m.Open(context.Background(), "project-P1-doc-D2", second)
	require.NoError(t, err)
	defer func() { _ = m.Close(s2) }()

	assert.Equal(t, 1, calls)
	assert.True(t, engineAlive)

	require.NoError(t, m.Close(s1))
	assert.Equal(t, 1, calls)

	// регистрация на закрытой сессии срабатывает сразу
	var late bool
	s1.OnClose(func() { late = true })
	assert.True(t, late)
}

func TestManager_OnStateChange(t *testing.T) {
	mesh := transport.NewMesh()

	var mu sync.Mutex
	var states []transport.State
	var lastPeers int
	opts := fastOptions()
	opts.OnStateChange = func(state transport.State, peers int) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
		lastPeers = peers
	}

	m := NewManager(mesh, setupTestLogger(), opts)
	s, err := m.Open(context.Background(), "room", document.NewEngine(setupTestLogger(), document.WithNodeID("a")))
	require.NoError(t, err)
	defer func() { _ = m.Close(s) }()

	_, _ = openPeer(t, mesh, "room", "b")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == transport.StateConnected && lastPeers == 2
	}, waitFor, tick)
}

package docview

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/activity"
	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/client/storage/boltdb"
	"github.com/iudanet/gophboard/internal/diff"
	"github.com/iudanet/gophboard/internal/directory"
	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/session"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/internal/versions"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	mesh     *transport.Mesh
	bus      *eventbus.Memory
	versions *versions.Service
	dir      *directory.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "versions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := eventbus.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })

	return &fixture{
		mesh:     transport.NewMesh(),
		bus:      bus,
		versions: versions.NewService(store, setupTestLogger()),
		dir:      directory.New(),
	}
}

func (f *fixture) open(t *testing.T, userID string, doc models.DocumentMeta) *View {
	t.Helper()
	user, ok := f.dir.User(userID)
	require.True(t, ok)

	deps := Deps{
		Sessions: session.NewManager(f.mesh, setupTestLogger(), session.Options{
			UserID:           userID,
			PresenceInterval: 10 * time.Millisecond,
			PeerTTL:          200 * time.Millisecond,
		}),
		Versions: f.versions,
		Bus:      f.bus,
		Differ:   diff.NewDiffer(setupTestLogger()),
		Logger:   setupTestLogger(),
	}
	v, err := Open(context.Background(), deps, Config{
		Document:       doc,
		User:           user,
		Role:           f.dir.Role(doc.ProjectID, userID),
		ThrottleWindow: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func textOf(v *View) string {
	text, err := v.Text()
	if err != nil {
		return ""
	}
	return text
}

func meetingNotes(t *testing.T, f *fixture) models.DocumentMeta {
	doc, ok := f.dir.Document("doc-1")
	require.True(t, ok)
	return doc
}

func TestView_CollaborativeEditing(t *testing.T) {
	f := newFixture(t)
	doc := meetingNotes(t, f)

	alice := f.open(t, "userA", doc)
	bob := f.open(t, "userB", doc)

	require.Eventually(t, func() bool {
		return alice.Status() == "Connected (2 online)" && bob.Status() == "Connected (2 online)"
	}, waitFor, tick)

	require.NoError(t, alice.Edit(document.Insert(0, "hello world")))
	require.Eventually(t, func() bool { return textOf(bob) == "hello world" }, waitFor, tick)

	require.NoError(t, bob.Edit(document.Format(0, 5, models.MarkBold)))
	require.Eventually(t, func() bool {
		html, err := alice.HTML()
		return err == nil && html == "<p><strong>hello</strong> world</p>\n"
	}, waitFor, tick)
}

func TestView_ReadOnly(t *testing.T) {
	f := newFixture(t)
	doc, ok := f.dir.Document("doc-3")
	require.True(t, ok)

	// Charlie - viewer в проекте 2
	charlie := f.open(t, "userC", doc)
	assert.False(t, charlie.Editable())

	assert.ErrorIs(t, charlie.Edit(document.Insert(0, "x")), ErrReadOnly)
	assert.ErrorIs(t, charlie.Restore(context.Background(), "any"), ErrReadOnly)
	assert.ErrorIs(t, charlie.ClearVersions(context.Background()), ErrReadOnly)

	_, err := charlie.SaveVersion(context.Background(), "viewer snapshot")
	assert.NoError(t, err)
}

func TestView_VersionsRestoreAndCompare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := meetingNotes(t, f)

	alice := f.open(t, "userA", doc)
	bob := f.open(t, "userB", doc)
	require.Eventually(t, func() bool { return alice.Session().PeerCount() == 2 }, waitFor, tick)

	require.NoError(t, alice.Edit(document.Insert(0, "hello world")))
	v1, err := alice.SaveVersion(ctx, "first")
	require.NoError(t, err)
	assert.False(t, v1.IsAutoSaved)
	assert.Equal(t, "Alice", v1.CreatedBy)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, alice.Edit(document.Insert(6, "brave ")))
	v2, err := alice.SaveVersion(ctx, "second")
	require.NoError(t, err)

	list, err := bob.Versions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, v2.ID, list[0].ID)

	require.Eventually(t, func() bool { return textOf(bob) == "hello brave world" }, waitFor, tick)

	cmp, err := bob.Compare(ctx, v2.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, cmp.Older.ID)
	assert.Equal(t, []diff.Segment{
		{Type: diff.Unchanged, Text: "hello"},
		{Type: diff.Unchanged, Text: " "},
		{Type: diff.Added, Text: "brave"},
		{Type: diff.Added, Text: " "},
		{Type: diff.Unchanged, Text: "world"},
	}, cmp.Segments)

	require.NoError(t, bob.Restore(ctx, v1.ID))
	assert.Equal(t, "hello world", textOf(bob))
	require.Eventually(t, func() bool { return textOf(alice) == "hello world" }, waitFor, tick)

	require.NoError(t, bob.DeleteVersion(ctx, v2.ID))
	list, err = alice.Versions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, alice.ClearVersions(ctx))
	list, err = alice.Versions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestView_RestoreForeignVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	foreign, err := f.versions.AddVersion(ctx, models.NewVersion{DocumentID: "doc-2", Content: []byte("x")})
	require.NoError(t, err)

	alice := f.open(t, "userA", meetingNotes(t, f))
	assert.ErrorIs(t, alice.Restore(ctx, foreign.ID), ErrForeignVersion)
}

func TestView_PublishesThrottledUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := meetingNotes(t, f)

	store := activity.NewStore(0)
	bridge := activity.NewBridge(store, f.dir, setupTestLogger(), activity.WithDebounce(0))
	detach, err := bridge.Attach(ctx, f.bus, doc.ProjectID)
	require.NoError(t, err)
	defer detach()

	alice := f.open(t, "userA", doc)

	for i := 0; i < 10; i++ {
		require.NoError(t, alice.Edit(document.Insert(0, "x")))
	}

	// первый сигнал сразу, остальные сливаются в одно отложенное событие
	require.Eventually(t, func() bool { return store.Len() == 2 }, waitFor, tick)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, store.Len())

	ev := store.List()[0]
	assert.Equal(t, models.ActivityDocumentEdit, ev.Type)
	assert.Equal(t, "Meeting notes", ev.Data.DocumentTitle)
	assert.Equal(t, "Alice", ev.UserName)
}

func TestView_InitialState(t *testing.T) {
	f := newFixture(t)

	seed := document.NewEngine(setupTestLogger())
	require.NoError(t, seed.ApplyLocalEdit(document.Insert(0, "restored draft")))
	state, err := seed.EncodeFullState()
	require.NoError(t, err)
	seed.Destroy()

	deps := Deps{
		Sessions: session.NewManager(f.mesh, setupTestLogger(), session.Options{}),
		Versions: f.versions,
		Differ:   diff.NewDiffer(setupTestLogger()),
		Logger:   setupTestLogger(),
	}
	v, err := Open(context.Background(), deps, Config{
		Document:     meetingNotes(t, f),
		User:         models.User{ID: "userA", Name: "Alice"},
		Role:         models.RoleOwner,
		InitialState: state,
	})
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, "restored draft", textOf(v))

	_, err = Open(context.Background(), deps, Config{
		Document:     meetingNotes(t, f),
		Role:         models.RoleOwner,
		InitialState: []byte("garbage"),
	})
	assert.ErrorIs(t, err, document.ErrDecode)
}

func TestView_Close(t *testing.T) {
	f := newFixture(t)
	alice := f.open(t, "userA", meetingNotes(t, f))

	require.NoError(t, alice.Close())
	require.NoError(t, alice.Close())

	assert.ErrorIs(t, alice.Edit(document.Insert(0, "x")), ErrClosed)
	assert.Equal(t, "Disconnected", alice.Status())
	_, err := alice.SaveVersion(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, f.mesh.Members(session.RoomName(alice.Document())))
}

// mockedDeps собирает Deps поверх мока хранилища версий.
func mockedDeps(f *fixture, st *storage.VersionStorageMock) Deps {
	return Deps{
		Sessions: session.NewManager(f.mesh, setupTestLogger(), session.Options{
			UserID:           "userA",
			PresenceInterval: 10 * time.Millisecond,
			PeerTTL:          200 * time.Millisecond,
		}),
		Versions: versions.NewService(st, setupTestLogger()),
		Bus:      f.bus,
		Differ:   diff.NewDiffer(setupTestLogger()),
		Logger:   setupTestLogger(),
	}
}

func fastConfig(t *testing.T, f *fixture, docID string) Config {
	t.Helper()
	doc, ok := f.dir.Document(docID)
	require.True(t, ok)
	user, ok := f.dir.User("userA")
	require.True(t, ok)
	return Config{
		Document:         doc,
		User:             user,
		Role:             models.RoleOwner,
		AutoSaveInterval: 10 * time.Millisecond,
		ThrottleWindow:   30 * time.Millisecond,
	}
}

func savesOf(st *storage.VersionStorageMock, docID string) int {
	n := 0
	for _, call := range st.SaveVersionCalls() {
		if call.Version.DocumentID == docID {
			n++
		}
	}
	return n
}

func TestView_RoomSwitchClosesPreviousView(t *testing.T) {
	f := newFixture(t)
	st := &storage.VersionStorageMock{
		SaveVersionFunc: func(ctx context.Context, version *models.Version) error { return nil },
	}
	deps := mockedDeps(f, st)

	first, err := Open(context.Background(), deps, fastConfig(t, f, "doc-1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })
	require.Eventually(t, func() bool { return savesOf(st, "doc-1") > 0 }, waitFor, tick)
	assert.Equal(t, 1, f.bus.Subscribers("1"))

	second, err := Open(context.Background(), deps, fastConfig(t, f, "doc-2"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	assert.Equal(t, "Disconnected", first.Status())
	assert.ErrorIs(t, first.Edit(document.Insert(0, "x")), ErrClosed)
	_, err = first.SaveVersion(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, f.bus.Subscribers("1"))

	saved := savesOf(st, "doc-1")
	require.Eventually(t, func() bool { return savesOf(st, "doc-2") > 0 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, saved, savesOf(st, "doc-1"))

	require.NoError(t, second.Edit(document.Insert(0, "roadmap")))
	text, err := second.Text()
	require.NoError(t, err)
	assert.Equal(t, "roadmap", text)
}

func TestView_NoCallsAfterClose(t *testing.T) {
	f := newFixture(t)
	st := &storage.VersionStorageMock{
		SaveVersionFunc: func(ctx context.Context, version *models.Version) error { return nil },
	}
	v, err := Open(context.Background(), mockedDeps(f, st), fastConfig(t, f, "doc-1"))
	require.NoError(t, err)

	var mu sync.Mutex
	var updates int
	unsub, err := f.bus.Subscribe(context.Background(), "1", func(e eventbus.Event) {
		if e.Type != eventbus.DocumentUpdate {
			return
		}
		mu.Lock()
		updates++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsub()

	// первая правка уходит сразу, вторая ждет конца окна
	require.NoError(t, v.Edit(document.Insert(0, "a")))
	require.NoError(t, v.Edit(document.Insert(1, "b")))
	require.NoError(t, v.Close())

	saves := len(st.SaveVersionCalls())
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, saves, len(st.SaveVersionCalls()))
	assert.Empty(t, st.DeleteVersionCalls())
	assert.Empty(t, st.ClearVersionsCalls())
	assert.ErrorIs(t, v.DeleteVersion(context.Background(), "any"), ErrClosed)
	assert.ErrorIs(t, v.ClearVersions(context.Background()), ErrClosed)
	assert.Empty(t, st.DeleteVersionCalls())

	mu.Lock()
	assert.Equal(t, 1, updates)
	mu.Unlock()
	assert.Equal(t, 1, f.bus.Subscribers("1"))
}

package versions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/client/storage/boltdb"
	"github.com/iudanet/gophboard/internal/models"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClock возвращает заданное время и сдвигается на step при каждом вызове
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newBoltService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "versions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, setupTestLogger(), WithNow(clock.Now))
}

func TestService_AddAndGetVersions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000), step: time.Second}
	svc := newBoltService(t, clock)

	content := []byte{0x00, 0x01, 0xfe, 0xff}
	first, err := svc.AddVersion(ctx, models.NewVersion{
		DocumentID: "doc-1",
		ProjectID:  "project-1",
		Title:      "Draft",
		CreatedBy:  "alice",
		Content:    content,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, int64(1_700_000_000_000), first.Timestamp)
	assert.Equal(t, content, first.Content)

	// мутация исходного буфера не затрагивает сохраненную версию
	content[0] = 0x7f

	second, err := svc.AddVersion(ctx, models.NewVersion{
		DocumentID:  "doc-1",
		ProjectID:   "project-1",
		CreatedBy:   "alice",
		Content:     []byte("x"),
		IsAutoSaved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, TitleAutoSave, second.Title)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = svc.AddVersion(ctx, models.NewVersion{DocumentID: "doc-2", Content: []byte("y")})
	require.NoError(t, err)

	list, err := svc.GetVersions(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, []byte{0x00, 0x01, 0xfe, 0xff}, list[1].Content)

	got, err := svc.GetVersion(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
	assert.False(t, got.IsAutoSaved)
}

func TestService_AddVersion_DefaultTitles(t *testing.T) {
	tests := []struct {
		name string
		auto bool
		want string
	}{
		{name: "manual", auto: false, want: TitleManualSave},
		{name: "auto", auto: true, want: TitleAutoSave},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newBoltService(t, &fakeClock{now: time.Now()})
			v, err := svc.AddVersion(context.Background(), models.NewVersion{
				DocumentID:  "doc-1",
				IsAutoSaved: tt.auto,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Title)
		})
	}
}

func TestService_AddVersion_RequiresDocument(t *testing.T) {
	mock := &storage.VersionStorageMock{}
	svc := NewService(mock, setupTestLogger())

	_, err := svc.AddVersion(context.Background(), models.NewVersion{})
	require.Error(t, err)
	assert.Empty(t, mock.SaveVersionCalls())
}

func TestService_DeleteVersion(t *testing.T) {
	ctx := context.Background()
	svc := newBoltService(t, &fakeClock{now: time.Now(), step: time.Millisecond})

	v, err := svc.AddVersion(ctx, models.NewVersion{DocumentID: "doc-1", Content: []byte("a")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVersion(ctx, v.ID))
	// повторное удаление - no-op
	require.NoError(t, svc.DeleteVersion(ctx, v.ID))

	_, err = svc.GetVersion(ctx, v.ID)
	assert.ErrorIs(t, err, storage.ErrVersionNotFound)
}

func TestService_DeleteVersion_StorageError(t *testing.T) {
	boom := errors.New("boom")
	mock := &storage.VersionStorageMock{
		DeleteVersionFunc: func(ctx context.Context, id string) error {
			return boom
		},
	}
	svc := NewService(mock, setupTestLogger())

	err := svc.DeleteVersion(context.Background(), "v1")
	assert.ErrorIs(t, err, boom)
}

func TestService_ClearVersions(t *testing.T) {
	ctx := context.Background()
	svc := newBoltService(t, &fakeClock{now: time.Now(), step: time.Millisecond})

	for i := 0; i < 3; i++ {
		_, err := svc.AddVersion(ctx, models.NewVersion{DocumentID: "doc-1", Content: []byte{byte(i)}})
		require.NoError(t, err)
	}
	_, err := svc.AddVersion(ctx, models.NewVersion{DocumentID: "doc-2", Content: []byte("keep")})
	require.NoError(t, err)

	require.NoError(t, svc.ClearVersions(ctx, "doc-1"))

	list, err := svc.GetVersions(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.GetVersions(ctx, "doc-2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{name: "seconds", ago: 30 * time.Second, want: "Just now"},
		{name: "minutes", ago: 5 * time.Minute, want: "5m ago"},
		{name: "hours", ago: 3*time.Hour + 10*time.Minute, want: "3h ago"},
		{name: "days", ago: 50 * time.Hour, want: "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(now.Add(-tt.ago).UnixMilli(), now))
		})
	}
}

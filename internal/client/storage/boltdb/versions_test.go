package boltdb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/models"
)

// createTestStorage создает временное хранилище для тестов
func createTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func createTestVersion(id, documentID string, timestamp int64) *models.Version {
	return &models.Version{
		ID:          id,
		DocumentID:  documentID,
		ProjectID:   "project-1",
		Title:       "Version " + id,
		CreatedBy:   "user-1",
		Content:     []byte{0x01, 0x00, 0xff, byte(timestamp)},
		Timestamp:   timestamp,
		IsAutoSaved: timestamp%2 == 0,
	}
}

func TestStorage_SaveAndGetVersion(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	original := createTestVersion("v1", "doc-1", 100)
	require.NoError(t, store.SaveVersion(ctx, original))

	got, err := store.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, original, got, "binary content must round-trip exactly")

	// изменение исходного среза не влияет на сохраненную версию
	original.Content[0] = 0x42
	got, err = store.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), got.Content[0])
}

func TestStorage_GetVersion_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetVersion(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrVersionNotFound)
}

func TestStorage_ListVersions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, v := range []*models.Version{
		createTestVersion("a", "doc-1", 100),
		createTestVersion("b", "doc-1", 300),
		createTestVersion("c", "doc-1", 200),
		createTestVersion("d", "doc-1", 300),
		createTestVersion("x", "doc-2", 999),
	} {
		require.NoError(t, store.SaveVersion(ctx, v))
	}

	versions, err := store.ListVersions(ctx, "doc-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids)

	empty, err := store.ListVersions(ctx, "doc-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_DeleteVersion(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v1", "doc-1", 1)))
	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v2", "doc-1", 2)))

	require.NoError(t, store.DeleteVersion(ctx, "v1"))
	assert.ErrorIs(t, store.DeleteVersion(ctx, "v1"), storage.ErrVersionNotFound)

	_, err := store.GetVersion(ctx, "v1")
	assert.ErrorIs(t, err, storage.ErrVersionNotFound)

	versions, err := store.ListVersions(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v2", versions[0].ID)
}

func TestStorage_ClearVersions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v1", "doc-1", 1)))
	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v2", "doc-1", 2)))
	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v3", "doc-2", 3)))

	removed, err := store.ClearVersions(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	versions, err := store.ListVersions(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, versions)
	_, err = store.GetVersion(ctx, "v2")
	assert.ErrorIs(t, err, storage.ErrVersionNotFound)

	other, err := store.ListVersions(ctx, "doc-2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other documents are untouched")

	removed, err = store.ClearVersions(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStorage_ChecksumMismatch(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.SaveVersion(ctx, createTestVersion("v1", "doc-1", 1)))

	// портим содержимое в обход API
	err := store.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVersions).Bucket([]byte("doc-1"))
		var rec versionRecord
		if err := json.Unmarshal(bucket.Get([]byte("v1")), &rec); err != nil {
			return err
		}
		rec.Content = []byte("tampered")
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put([]byte("v1"), data)
	})
	require.NoError(t, err)

	_, err = store.GetVersion(ctx, "v1")
	assert.ErrorIs(t, err, storage.ErrChecksumMismatch)
	_, err = store.ListVersions(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrChecksumMismatch)
}

func TestStorage_Closed(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveVersion(ctx, createTestVersion("v1", "doc", 1)), storage.ErrStorageClosed)
	_, err = store.GetVersion(ctx, "v1")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = store.ListVersions(ctx, "doc")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, store.DeleteVersion(ctx, "v1"), storage.ErrStorageClosed)
	_, err = store.ClearVersions(ctx, "doc")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestNew_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "testdb.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() {
		require.NoError(t, store.Close())
	}()

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что бакеты существуют
	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVersions, bucketVersionIndex, bucketAuth} {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	ctx := context.Background()
	// каталог вместо файла открыть как БД нельзя
	store, err := New(ctx, t.TempDir())
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	// После закрытия поле db должно стать nil
	assert.Nil(t, store.db)
	// Второй вызов Close не должен падать
	assert.NoError(t, store.Close())
}

func TestNew_ReopenKeepsBuckets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketVersions) == nil {
			return os.ErrNotExist
		}
		return nil
	})
	assert.NoError(t, err)
}

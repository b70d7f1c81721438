package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/client/api"
	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/client/storage/boltdb"
	pkgapi "github.com/iudanet/gophboard/pkg/api"
)

type issuerFunc func(ctx context.Context, userID string) (*pkgapi.TokenResponse, error)

func (f issuerFunc) IssueToken(ctx context.Context, userID string) (*pkgapi.TokenResponse, error) {
	return f(ctx, userID)
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupStore(t *testing.T) *boltdb.Storage {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestService_TokenCaching(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	calls := 0
	issuer := issuerFunc(func(ctx context.Context, userID string) (*pkgapi.TokenResponse, error) {
		calls++
		assert.Equal(t, "userA", userID)
		return &pkgapi.TokenResponse{AccessToken: "token-" + string(rune('0'+calls)), ExpiresIn: 3600}, nil
	})

	svc := NewService("http://relay", issuer, store, setupTestLogger())
	svc.now = func() time.Time { return now }

	token, err := svc.Token(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// из кеша
	token, err = svc.Token(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, calls)

	// почти истек: запрашивается новый
	now = now.Add(time.Hour - 30*time.Second)
	token, err = svc.Token(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, calls)

	require.NoError(t, svc.Logout(ctx, "userA"))
	_, err = store.GetAuth(ctx, "http://relay", "userA")
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestService_AuthDisabled(t *testing.T) {
	store := setupStore(t)
	issuer := issuerFunc(func(ctx context.Context, userID string) (*pkgapi.TokenResponse, error) {
		return nil, &api.StatusError{Code: http.StatusNotImplemented, Message: "disabled"}
	})

	token, err := NewService("http://relay", issuer, store, setupTestLogger()).Token(context.Background(), "userA")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestService_IssueError(t *testing.T) {
	store := setupStore(t)
	boom := errors.New("unreachable")
	issuer := issuerFunc(func(ctx context.Context, userID string) (*pkgapi.TokenResponse, error) {
		return nil, boom
	})

	_, err := NewService("http://relay", issuer, store, setupTestLogger()).Token(context.Background(), "userA")
	assert.ErrorIs(t, err, boom)
}

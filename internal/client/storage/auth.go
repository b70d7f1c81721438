package storage

import (
	"context"
	"time"
)

// AuthData закешированный токен доступа к relay-серверу
type AuthData struct {
	ExpiresAt   time.Time `json:"expires_at"`
	ServerURL   string    `json:"server_url"`
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
}

// AuthStorage хранит токены, ключ - пара сервер/пользователь
type AuthStorage interface {
	SaveAuth(ctx context.Context, auth *AuthData) error
	// GetAuth returns ErrAuthNotFound if nothing is cached
	GetAuth(ctx context.Context, serverURL, userID string) (*AuthData, error)
	DeleteAuth(ctx context.Context, serverURL, userID string) error
}

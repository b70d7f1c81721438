package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophboard/internal/client/api"
	"github.com/iudanet/gophboard/internal/client/storage"
	pkgapi "github.com/iudanet/gophboard/pkg/api"
)

// expiryMargin токен, истекающий раньше, чем через этот интервал, запрашивается заново
const expiryMargin = time.Minute

// TokenIssuer выпускает токены; реализуется api.Client
type TokenIssuer interface {
	IssueToken(ctx context.Context, userID string) (*pkgapi.TokenResponse, error)
}

// Service выдает токен для подключения к relay, кешируя его локально
type Service struct {
	issuer    TokenIssuer
	store     storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
	serverURL string
}

// NewService создает новый сервис авторизации
func NewService(serverURL string, issuer TokenIssuer, store storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		serverURL: serverURL,
		issuer:    issuer,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Token возвращает действующий токен пользователя.
// Пустая строка без ошибки означает, что авторизация на сервере отключена.
func (s *Service) Token(ctx context.Context, userID string) (string, error) {
	cached, err := s.store.GetAuth(ctx, s.serverURL, userID)
	switch {
	case err == nil:
		if cached.ExpiresAt.After(s.now().Add(expiryMargin)) {
			return cached.AccessToken, nil
		}
		s.logger.Debug("cached token expired", slog.String("user_id", userID))
	case errors.Is(err, storage.ErrAuthNotFound):
	default:
		return "", fmt.Errorf("failed to read cached token: %w", err)
	}

	resp, err := s.issuer.IssueToken(ctx, userID)
	if err != nil {
		if api.IsStatus(err, http.StatusNotImplemented) {
			s.logger.Debug("server does not issue tokens, connecting anonymously")
			return "", nil
		}
		return "", err
	}

	auth := &storage.AuthData{
		ServerURL:   s.serverURL,
		UserID:      userID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   s.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		// токен рабочий, просто не будет переиспользован
		s.logger.Warn("failed to cache token", slog.Any("error", err))
	}
	return resp.AccessToken, nil
}

// Logout удаляет закешированный токен пользователя
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.DeleteAuth(ctx, s.serverURL, userID); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

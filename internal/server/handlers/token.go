package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/validation"
	"github.com/iudanet/gophboard/pkg/api"
)

// UserLookup справочник пользователей
type UserLookup interface {
	User(id string) (models.User, bool)
}

// TokenHandler выдает dev-токены для подключения к relay.
// Пароля нет: токен получает любой известный пользователь.
type TokenHandler struct {
	logger    *slog.Logger
	users     UserLookup
	jwtConfig JWTConfig
}

// NewTokenHandler создает handler выдачи токенов
func NewTokenHandler(logger *slog.Logger, users UserLookup, jwtConfig JWTConfig) *TokenHandler {
	return &TokenHandler{
		logger:    logger,
		users:     users,
		jwtConfig: jwtConfig,
	}
}

// Issue обрабатывает POST /api/v1/token
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode token request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateID("user_id", req.UserID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	user, ok := h.users.User(req.UserID)
	if !ok {
		h.logger.WarnContext(ctx, "token requested for unknown user", slog.String("user_id", req.UserID))
		sendError(h.logger, w, "unknown user", http.StatusNotFound)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, user.ID, user.Name)
	if errors.Is(err, ErrAuthDisabled) {
		sendError(h.logger, w, "token issuing is disabled", http.StatusNotImplemented)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "relay token issued", slog.String("user_id", user.ID))
	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}

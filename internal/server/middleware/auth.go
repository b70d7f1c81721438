package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/gophboard/internal/server/handlers"
)

// tokenQueryParam параметр запроса с токеном для WebSocket-клиентов,
// которые не умеют выставлять заголовки
const tokenQueryParam = "token"

// bearerToken извлекает токен из заголовка Authorization или параметра token.
// present=false, если токен не передан вовсе.
func bearerToken(r *http.Request) (token string, present bool, ok bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Ожидаем формат: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", true, false
		}
		return parts[1], true, true
	}

	if token := r.URL.Query().Get(tokenQueryParam); token != "" {
		return token, true, true
	}
	return "", false, false
}

// AuthMiddleware создает middleware для проверки JWT токена.
// Без секрета в jwtConfig проверка выключена. Если required=false, запрос
// без токена проходит анонимно, но переданный невалидный токен отклоняется.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !jwtConfig.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, present, ok := bearerToken(r)
			switch {
			case !present && !required:
				next.ServeHTTP(w, r)
				return
			case !present:
				logger.Warn("Missing access token", "path", r.URL.Path)
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			case !ok:
				logger.Warn("Invalid Authorization header format", "path", r.URL.Path)
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			// Валидируем токен
			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.UsernameKey, claims.Username)

			logger.Debug("User authenticated", "user_id", claims.UserID, "username", claims.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

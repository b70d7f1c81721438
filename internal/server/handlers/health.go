package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophboard/pkg/api"
)

const healthPingTimeout = 2 * time.Second

// HubStats счетчики relay для health check
type HubStats interface {
	Rooms() int
	Clients() int
}

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	stats   HubStats
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check.
// db может быть nil.
func NewHealthHandler(logger *slog.Logger, stats HubStats, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		stats:   stats,
		db:      db,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Rooms:   h.stats.Rooms(),
		Clients: h.stats.Clients(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.ErrorContext(ctx, "database ping failed", slog.Any("error", err))
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	sendJSON(h.logger, w, resp, status)
}

// Package server собирает relay-сервер: хранилище снимков, хаб комнат,
// HTTP-маршруты и метрики.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophboard/internal/config"
	"github.com/iudanet/gophboard/internal/directory"
	"github.com/iudanet/gophboard/internal/server/handlers"
	"github.com/iudanet/gophboard/internal/server/middleware"
	"github.com/iudanet/gophboard/internal/server/relay"
	"github.com/iudanet/gophboard/internal/server/storage/sqlite"
)

const readHeaderTimeout = 10 * time.Second

// Server relay-сервер
type Server struct {
	cfg        config.Server
	logger     *slog.Logger
	store      *sqlite.Storage
	hub        *relay.Hub
	registry   *prometheus.Registry
	httpServer *http.Server
	stopLimits func()
}

// New открывает хранилище и собирает сервер
func New(ctx context.Context, cfg config.Server, version string, logger *slog.Logger) (*Server, error) {
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open room storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := relay.NewHub(store, relay.NewMetrics(registry), logger.With("component", "relay"), relay.Options{
		SnapshotInterval: cfg.SnapshotInterval.Std(),
		MessageRate:      cfg.MessageRate,
		MessageBurst:     cfg.MessageBurst,
	})

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		hub:      hub,
		registry: registry,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(version),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler возвращает корневой HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub возвращает хаб комнат
func (s *Server) Hub() *relay.Hub {
	return s.hub
}

func (s *Server) routes(version string) http.Handler {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(s.cfg.JWTSecret),
		AccessTokenTTL: s.cfg.TokenTTL.Std(),
	}

	healthHandler := handlers.NewHealthHandler(s.logger, s.hub, s.store, version)
	tokenHandler := handlers.NewTokenHandler(s.logger, directory.New(), jwtConfig)
	roomsHandler := handlers.NewRoomsHandler(s.logger, s.hub)

	rateLimit, stopLimits := middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{
		{Prefix: "/api/v1/token", Requests: s.cfg.TokenRateLimit, Window: time.Minute},
	}, s.cfg.RateLimit, time.Minute, s.logger)
	s.stopLimits = stopLimits

	r := mux.NewRouter()
	r.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingWithSkip(s.logger, []string{"/metrics", "/api/v1/health"}),
		rateLimit,
	)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/token", tokenHandler.Issue).Methods(http.MethodPost)

	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(middleware.AuthMiddleware(s.logger, jwtConfig, s.cfg.RequireAuth))
	rooms.HandleFunc("", roomsHandler.List).Methods(http.MethodGet)
	rooms.HandleFunc("/{room}", roomsHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{room}", roomsHandler.Delete).Methods(http.MethodDelete)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(middleware.AuthMiddleware(s.logger, jwtConfig, s.cfg.RequireAuth))
	ws.HandleFunc("/{room}", roomsHandler.Connect).Methods(http.MethodGet)

	return r
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер:
// HTTP, хаб (с сохранением комнат) и хранилище.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(gctx)
	})

	g.Go(func() error {
		s.logger.Info("Relay server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down relay server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
		defer cancel()

		// Shutdown не ждет WebSocket-соединений: их закрывает хаб
		httpErr := s.httpServer.Shutdown(shutdownCtx)
		hubErr := s.hub.Close(shutdownCtx)
		return errors.Join(httpErr, hubErr)
	})

	err := g.Wait()
	return errors.Join(err, s.Close())
}

// Close освобождает ресурсы, не затрагивая HTTP-сервер
func (s *Server) Close() error {
	if s.stopLimits != nil {
		s.stopLimits()
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close room storage: %w", err)
	}
	return nil
}

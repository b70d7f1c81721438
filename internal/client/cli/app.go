// Package cli команды клиента gophboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/gophboard/internal/activity"
	"github.com/iudanet/gophboard/internal/client/api"
	"github.com/iudanet/gophboard/internal/client/auth"
	"github.com/iudanet/gophboard/internal/client/docview"
	"github.com/iudanet/gophboard/internal/client/iocli"
	"github.com/iudanet/gophboard/internal/client/storage/boltdb"
	"github.com/iudanet/gophboard/internal/config"
	"github.com/iudanet/gophboard/internal/diff"
	"github.com/iudanet/gophboard/internal/directory"
	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/session"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/internal/versions"
)

var (
	ErrNoAccess        = errors.New("user has no access to project")
	ErrUnknownUser     = errors.New("unknown user")
	ErrUnknownDocument = errors.New("document not found in project")
)

// App зависимости клиента, общие для всех команд
type App struct {
	io        iocli.IO
	logger    *slog.Logger
	store     *boltdb.Storage
	versions  *versions.Service
	differ    *diff.Differ
	directory *directory.Directory
	bus       eventbus.Bus
	activity  *activity.Store
	bridge    *activity.Bridge
	api       *api.Client
	auth      *auth.Service
	sessions  *session.Manager
	transport transport.Transport
	user      models.User
	cfg       config.Client
	conn      connStatus
}

// connStatus последняя смена состояния сессии, еще не показанная пользователю.
// Пишется из горутины транспорта, читается циклом редактора.
type connStatus struct {
	line    string
	mu      sync.Mutex
	changed bool
}

func (c *connStatus) set(state transport.State, peers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := statusLine(state, peers)
	if line == c.line {
		return
	}
	c.line = line
	c.changed = true
}

// take возвращает новую строку состояния, если она менялась с прошлого вызова.
func (c *connStatus) take() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.changed {
		return "", false
	}
	c.changed = false
	return c.line, true
}

func statusLine(state transport.State, peers int) string {
	switch state {
	case transport.StateConnected:
		return fmt.Sprintf("Connected (%d online)", peers)
	case transport.StateConnecting:
		return "Connecting..."
	default:
		return "Disconnected"
	}
}

// NewApp открывает локальное хранилище и шину событий.
// Транспорт создается лениво: командам без документа сеть не нужна.
func NewApp(ctx context.Context, cfg config.Client, io iocli.IO, logger *slog.Logger) (*App, error) {
	dir := directory.New()
	user, ok := dir.User(cfg.UserID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, cfg.UserID)
	}

	algorithm, err := diff.ParseAlgorithm(cfg.DiffAlgorithm)
	if err != nil {
		return nil, err
	}

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bus, err := newBus(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	feed := activity.NewStore(cfg.ActivityCapacity)
	apiClient := api.NewClient(cfg.ServerURL)

	return &App{
		io:        io,
		logger:    logger,
		cfg:       cfg,
		user:      user,
		store:     store,
		versions:  versions.NewService(store, logger),
		differ:    diff.NewDiffer(logger, diff.WithAlgorithm(algorithm)),
		directory: dir,
		bus:       bus,
		activity:  feed,
		bridge:    activity.NewBridge(feed, dir, logger, activity.WithDebounce(cfg.ActivityDebounce.Std())),
		api:       apiClient,
		auth:      auth.NewService(cfg.ServerURL, apiClient, store, logger),
	}, nil
}

func newBus(ctx context.Context, cfg config.Client, logger *slog.Logger) (eventbus.Bus, error) {
	if cfg.RedisAddr == "" {
		return eventbus.NewMemory(), nil
	}
	bus := eventbus.NewRedis(&redis.Options{Addr: cfg.RedisAddr}, logger)
	if err := bus.Ping(ctx); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return bus, nil
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	var errs []error
	if a.sessions != nil {
		if err := a.sessions.Close(a.sessions.Current()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// token возвращает токен relay: явный из конфигурации или закешированный/выпущенный сервером
func (a *App) token(ctx context.Context) string {
	if a.cfg.Token != "" {
		return a.cfg.Token
	}
	token, err := a.auth.Token(ctx, a.user.ID)
	if err != nil {
		a.logger.Warn("Failed to obtain relay token, connecting anonymously", "error", err)
		return ""
	}
	return token
}

func (a *App) sessionManager(ctx context.Context) (*session.Manager, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}

	kind, err := transport.ParseKind(a.cfg.Transport)
	if err != nil {
		return nil, err
	}
	switch kind {
	case transport.KindRelayed:
		a.transport = transport.NewRelay(a.cfg.ServerURL, a.logger, transport.WithToken(a.token(ctx)))
	case transport.KindPeerToPeer:
		a.transport = transport.NewMesh()
	}

	a.sessions = session.NewManager(a.transport, a.logger, session.Options{
		UserID:        a.user.ID,
		OnStateChange: a.conn.set,
	})
	return a.sessions, nil
}

// document находит документ проекта и роль текущего пользователя в нем
func (a *App) document(projectID, documentID string) (models.DocumentMeta, models.Role, error) {
	if _, ok := a.directory.Project(projectID); !ok {
		return models.DocumentMeta{}, models.RoleNone, fmt.Errorf("%w: %s", directory.ErrProjectNotFound, projectID)
	}
	role := a.directory.Role(projectID, a.user.ID)
	if role == models.RoleNone {
		return models.DocumentMeta{}, models.RoleNone, fmt.Errorf("%w %s", ErrNoAccess, projectID)
	}
	doc, ok := a.directory.Document(documentID)
	if !ok || doc.ProjectID != projectID {
		return models.DocumentMeta{}, models.RoleNone, fmt.Errorf("%w: %s/%s", ErrUnknownDocument, projectID, documentID)
	}
	return doc, role, nil
}

type viewOptions struct {
	disableAutoSave bool
}

// openView открывает документ и ждет состояния комнаты.
// Последняя локальная версия служит начальным состоянием: в CRDT она
// сливается с состоянием комнаты без потери чужих правок.
func (a *App) openView(ctx context.Context, doc models.DocumentMeta, role models.Role, opts viewOptions) (*docview.View, error) {
	sessions, err := a.sessionManager(ctx)
	if err != nil {
		return nil, err
	}

	var initial []byte
	if list, err := a.versions.GetVersions(ctx, doc.ID); err == nil && len(list) > 0 {
		initial = list[0].Content
	}

	view, err := docview.Open(ctx, docview.Deps{
		Sessions: sessions,
		Versions: a.versions,
		Bus:      a.bus,
		Differ:   a.differ,
		Logger:   a.logger,
	}, docview.Config{
		Document:         doc,
		User:             a.user,
		Role:             role,
		InitialState:     initial,
		AutoSaveInterval: a.cfg.AutoSaveInterval.Std(),
		ActivityWindow:   a.cfg.ActivityWindow.Std(),
		ThrottleWindow:   a.cfg.ThrottleWindow.Std(),
		DisableAutoSave:  opts.disableAutoSave,
	})
	if err != nil {
		return nil, err
	}

	waitSynced(ctx, view.Session(), a.cfg.SyncTimeout.Std(), a.logger)
	return view, nil
}

func waitSynced(ctx context.Context, sess *session.Session, timeout time.Duration, logger *slog.Logger) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-sess.Synced():
	case <-ctx.Done():
	case <-timer.C:
		logger.Warn("Room state not received, continuing with local state", "room", sess.Room())
	}
}

// waitFlushed ждет отправки локальных изменений перед закрытием документа
func waitFlushed(ctx context.Context, sess *session.Session, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if sess.Connected() && sess.Pending() == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d updates not delivered to room %s", sess.Pending(), sess.Room())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

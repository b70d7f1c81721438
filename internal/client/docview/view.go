// Package docview связывает открытый документ: CRDT-движок, сессию
// транспорта, автосохранение версий и события проекта.
package docview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophboard/internal/diff"
	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/permissions"
	"github.com/iudanet/gophboard/internal/session"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/internal/versions"
)

// DefaultThrottleWindow минимальный интервал между событиями document:update.
const DefaultThrottleWindow = 5 * time.Second

const publishTimeout = 5 * time.Second

// Deps общие для всех открытых документов сервисы.
type Deps struct {
	Sessions *session.Manager
	Versions *versions.Service
	Bus      eventbus.Bus // может быть nil
	Differ   *diff.Differ
	Logger   *slog.Logger
}

// Config параметры открываемого документа.
type Config struct {
	Now      func() time.Time
	Document models.DocumentMeta
	User     models.User
	Role     models.Role
	// InitialState состояние, с которым документ открывается до синхронизации
	InitialState     []byte
	AutoSaveInterval time.Duration
	ActivityWindow   time.Duration
	ThrottleWindow   time.Duration
	DisableAutoSave  bool
}

// View открытый документ. Менеджер сессий держит одну сессию, поэтому
// одновременно через один Deps.Sessions живет один View: открытие
// следующего документа закрывает предыдущий View.
type View struct {
	deps        Deps
	cfg         Config
	logger      *slog.Logger
	engine      *document.Engine
	session     *session.Session
	autosaver   *versions.AutoSaver
	throttle    *throttle
	unsubChange func()
	unsubBus    func()
	mu          sync.Mutex
	closed      bool
}

// Open открывает документ: создает движок, входит в комнату,
// запускает автосохранение и подписку на события проекта.
func Open(ctx context.Context, deps Deps, cfg Config) (*View, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = DefaultThrottleWindow
	}

	room := session.RoomName(cfg.Document)
	logger := deps.Logger.With("room", room, "user_id", cfg.User.ID)

	v := &View{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		engine: document.NewEngine(logger),
	}

	if len(cfg.InitialState) > 0 {
		if err := v.engine.ApplyRemoteUpdate(cfg.InitialState); err != nil {
			v.engine.Destroy()
			return nil, fmt.Errorf("failed to load initial state: %w", err)
		}
	}

	v.throttle = newThrottle(cfg.ThrottleWindow, cfg.Now, v.publishUpdate)

	unsubChange, err := v.engine.OnChange(func() {
		v.throttle.trigger()
	})
	if err != nil {
		v.engine.Destroy()
		return nil, fmt.Errorf("failed to subscribe to document changes: %w", err)
	}
	v.unsubChange = unsubChange

	sess, err := deps.Sessions.Open(ctx, room, v.engine)
	if err != nil {
		v.throttle.stop()
		unsubChange()
		v.engine.Destroy()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	v.session = sess

	if deps.Bus != nil {
		unsubBus, err := deps.Bus.Subscribe(ctx, cfg.Document.ProjectID, v.onProjectEvent)
		if err != nil {
			logger.Warn("Failed to subscribe to project events", "error", err)
		} else {
			v.unsubBus = unsubBus
		}
	}

	if !cfg.DisableAutoSave && v.Editable() {
		v.autosaver = versions.NewAutoSaver(deps.Versions, v.engine.EncodeFullState, sess, versions.AutoSaverConfig{
			Now:            cfg.Now,
			DocumentID:     cfg.Document.ID,
			ProjectID:      cfg.Document.ProjectID,
			CreatedBy:      cfg.User.Name,
			Interval:       cfg.AutoSaveInterval,
			ActivityWindow: cfg.ActivityWindow,
		}, logger)
		v.autosaver.Start()
	}

	// менеджер закрывает сессию при открытии другой комнаты
	sess.OnClose(func() {
		if v.release() {
			logger.Info("Document closed by room switch")
		}
	})

	logger.Info("Document opened", "document_id", cfg.Document.ID, "role", cfg.Role, "editable", v.Editable())
	return v, nil
}

// Document метаданные открытого документа
func (v *View) Document() models.DocumentMeta {
	return v.cfg.Document
}

// Engine CRDT-движок документа
func (v *View) Engine() *document.Engine {
	return v.engine
}

// Session сессия транспорта документа
func (v *View) Session() *session.Session {
	return v.session
}

// Editable сообщает, может ли пользователь менять документ.
func (v *View) Editable() bool {
	return permissions.CanEdit(v.cfg.Role)
}

func (v *View) checkOpen() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	return nil
}

// Edit применяет локальную правку.
func (v *View) Edit(op document.EditOp) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if !v.Editable() {
		return ErrReadOnly
	}
	return v.engine.ApplyLocalEdit(op)
}

// Text текущий текст документа
func (v *View) Text() (string, error) {
	return v.engine.PlainText()
}

// HTML текущий документ в виде HTML.
func (v *View) HTML() (string, error) {
	tree, err := v.engine.Tree()
	if err != nil {
		return "", err
	}
	return document.RenderHTML(tree)
}

// Status строка состояния подключения.
func (v *View) Status() string {
	if v.checkOpen() != nil {
		return "Disconnected"
	}
	if v.session.State() == transport.StateConnected {
		return fmt.Sprintf("Connected (%d online)", v.session.PeerCount())
	}
	return "Connecting..."
}

// SaveVersion сохраняет ручную версию. Ручное сохранение не подавляется
// присутствием других участников.
func (v *View) SaveVersion(ctx context.Context, title string) (*models.Version, error) {
	if err := v.checkOpen(); err != nil {
		return nil, err
	}
	state, err := v.engine.EncodeFullState()
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return v.deps.Versions.AddVersion(ctx, models.NewVersion{
		DocumentID: v.cfg.Document.ID,
		ProjectID:  v.cfg.Document.ProjectID,
		Title:      title,
		CreatedBy:  v.cfg.User.Name,
		Content:    state,
	})
}

// Versions версии документа, самые новые первыми.
func (v *View) Versions(ctx context.Context) ([]*models.Version, error) {
	return v.deps.Versions.GetVersions(ctx, v.cfg.Document.ID)
}

func (v *View) version(ctx context.Context, id string) (*models.Version, error) {
	version, err := v.deps.Versions.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if version.DocumentID != v.cfg.Document.ID {
		return nil, fmt.Errorf("%w: %s", ErrForeignVersion, id)
	}
	return version, nil
}

// Restore заменяет содержимое документа содержимым версии.
// Замена атомарна: участники получают одно обновление.
func (v *View) Restore(ctx context.Context, versionID string) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if !v.Editable() {
		return ErrReadOnly
	}

	version, err := v.version(ctx, versionID)
	if err != nil {
		return err
	}
	if err := v.engine.ClearAndReplace(version.Content); err != nil {
		return fmt.Errorf("failed to restore version %s: %w", versionID, err)
	}

	v.logger.Info("Version restored", "version_id", versionID)
	return nil
}

// DeleteVersion удаляет версию документа.
func (v *View) DeleteVersion(ctx context.Context, versionID string) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if !v.Editable() {
		return ErrReadOnly
	}
	return v.deps.Versions.DeleteVersion(ctx, versionID)
}

// ClearVersions удаляет всю историю документа.
func (v *View) ClearVersions(ctx context.Context) error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if !v.Editable() {
		return ErrReadOnly
	}
	return v.deps.Versions.ClearVersions(ctx, v.cfg.Document.ID)
}

// Compare сравнивает две версии документа от старой к новой.
func (v *View) Compare(ctx context.Context, firstID, secondID string) (diff.Comparison, error) {
	first, err := v.version(ctx, firstID)
	if err != nil {
		return diff.Comparison{}, err
	}
	second, err := v.version(ctx, secondID)
	if err != nil {
		return diff.Comparison{}, err
	}
	return v.deps.Differ.Compare(first, second), nil
}

// publishUpdate отправляет document:update в шину проекта.
func (v *View) publishUpdate() {
	if v.deps.Bus == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	event := eventbus.NewEvent(v.cfg.Document.ProjectID, eventbus.DocumentUpdate, map[string]any{
		"documentId":    v.cfg.Document.ID,
		"docId":         v.cfg.Document.ID,
		"documentTitle": v.cfg.Document.Title,
		"userName":      v.cfg.User.Name,
		"timestamp":     v.cfg.Now().UnixMilli(),
	}, v.cfg.User.ID)

	if err := v.deps.Bus.Publish(ctx, event); err != nil && !errors.Is(err, eventbus.ErrClosed) {
		v.logger.Warn("Failed to publish document update", "error", err)
	}
}

func (v *View) onProjectEvent(e eventbus.Event) {
	if e.Type != eventbus.DocumentUpdate || e.UserID == v.cfg.User.ID {
		return
	}
	docID := e.String("documentId")
	if docID == "" {
		docID = e.String("docId")
	}
	if docID != v.cfg.Document.ID {
		return
	}
	v.logger.Debug("Document updated by another user", "from_user", e.UserID)
}

// Close останавливает автосохранение, троттлинг, подписки и сессию.
// После возврата ни один таймер и обработчик документа не срабатывает.
func (v *View) Close() error {
	if !v.release() {
		return nil
	}
	if err := v.deps.Sessions.Close(v.session); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	v.logger.Info("Document closed")
	return nil
}

// release останавливает все, что View запустил поверх сессии.
// Возвращает false, если View уже закрыт.
func (v *View) release() bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	v.closed = true
	v.mu.Unlock()

	if v.autosaver != nil {
		v.autosaver.Stop()
	}
	v.throttle.stop()
	if v.unsubBus != nil {
		v.unsubBus()
	}
	v.unsubChange()
	return true
}

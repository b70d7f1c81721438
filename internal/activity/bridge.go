package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
)

// DefaultDebounce окно, в котором повторные правки одного документа
// не создают новых записей.
const DefaultDebounce = 10 * time.Second

const (
	UnknownUser     = "Unknown User"
	UnknownDocument = "Unknown Document"
	UnknownTask     = "Unknown Task"
	UnknownProject  = "Unknown Project"
	UnknownBoard    = "Unknown"

	unknownUserID = "unknown"
)

// Resolver разрешает ссылки из событий в человекочитаемые имена.
type Resolver interface {
	User(id string) (models.User, bool)
	Project(id string) (models.Project, bool)
	Document(id string) (models.DocumentMeta, bool)
	Task(id string) (models.Task, bool)
	Board(id string) (models.Board, bool)
}

// Bridge слушает события проекта и пишет записи в Store.
type Bridge struct {
	store    *Store
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
	lastEdit map[string]time.Time
	debounce time.Duration
	mu       sync.Mutex
}

// BridgeOption настраивает Bridge.
type BridgeOption func(*Bridge)

// WithDebounce задает окно подавления правок документа.
func WithDebounce(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.debounce = d
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.now = now
	}
}

// NewBridge создает мост событий в ленту активности.
func NewBridge(store *Store, resolver Resolver, logger *slog.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		store:    store,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
		lastEdit: make(map[string]time.Time),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach подписывает мост на события проекта. Возвращает функцию отписки.
func (b *Bridge) Attach(ctx context.Context, bus eventbus.Bus, projectID string) (func(), error) {
	unsubscribe, err := bus.Subscribe(ctx, projectID, func(e eventbus.Event) {
		b.OnEvent(e)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach activity bridge: %w", err)
	}
	return unsubscribe, nil
}

// OnEvent преобразует событие в запись активности.
// Возвращает true, если запись была добавлена.
func (b *Bridge) OnEvent(e eventbus.Event) bool {
	var (
		ev models.ActivityEvent
		ok bool
	)

	switch e.Type {
	case eventbus.DocumentUpdate:
		ev, ok = b.documentEdit(e)
	case eventbus.CardMove:
		ev, ok = b.taskMove(e), true
	case eventbus.ActivityLog:
		if e.String("activityType") == string(models.ActivityProjectShare) {
			ev, ok = b.projectShare(e), true
		}
	}
	if !ok {
		return false
	}

	ev.UserID, ev.UserName = b.user(e.UserID)
	recorded := b.store.Add(ev)
	b.logger.Debug("Activity recorded",
		"activity_id", recorded.ID,
		"type", recorded.Type,
		"project_id", e.ProjectID,
	)
	return true
}

func (b *Bridge) documentEdit(e eventbus.Event) (models.ActivityEvent, bool) {
	documentID := e.String("documentId")
	if documentID == "" {
		documentID = e.String("docId")
	}

	now := b.now()
	b.mu.Lock()
	last, seen := b.lastEdit[documentID]
	if seen && now.Sub(last) <= b.debounce {
		b.mu.Unlock()
		return models.ActivityEvent{}, false
	}
	b.lastEdit[documentID] = now
	b.mu.Unlock()

	title := e.String("documentTitle")
	if doc, ok := b.resolver.Document(documentID); ok {
		title = doc.Title
	}
	if title == "" {
		title = UnknownDocument
	}

	return models.ActivityEvent{
		Type: models.ActivityDocumentEdit,
		Data: models.ActivityData{
			ProjectID:     e.ProjectID,
			DocumentID:    documentID,
			DocumentTitle: title,
		},
	}, true
}

func (b *Bridge) taskMove(e eventbus.Event) models.ActivityEvent {
	taskID := e.String("taskId")
	title := e.String("taskTitle")
	if task, ok := b.resolver.Task(taskID); ok {
		title = task.Title
	}
	if title == "" {
		title = UnknownTask
	}

	fromID := e.String("fromBoardId")
	toID := e.String("toBoardId")

	return models.ActivityEvent{
		Type: models.ActivityTaskMove,
		Data: models.ActivityData{
			ProjectID:   e.ProjectID,
			TaskID:      taskID,
			TaskTitle:   title,
			FromBoardID: fromID,
			FromBoard:   b.board(fromID),
			ToBoardID:   toID,
			ToBoard:     b.board(toID),
		},
	}
}

func (b *Bridge) projectShare(e eventbus.Event) models.ActivityEvent {
	projectName := UnknownProject
	if p, ok := b.resolver.Project(e.ProjectID); ok {
		projectName = p.Name
	}

	targetID := e.String("targetUserId")
	_, targetName := b.user(targetID)

	return models.ActivityEvent{
		Type: models.ActivityProjectShare,
		Data: models.ActivityData{
			ProjectID:    e.ProjectID,
			ProjectName:  projectName,
			SharedWithID: targetID,
			SharedWith:   targetName,
			Role:         models.Role(e.String("role")),
		},
	}
}

func (b *Bridge) user(id string) (string, string) {
	name := UnknownUser
	if u, ok := b.resolver.User(id); ok {
		name = u.Name
	}
	if id == "" {
		id = unknownUserID
	}
	return id, name
}

func (b *Bridge) board(id string) string {
	if board, ok := b.resolver.Board(id); ok {
		return board.Title
	}
	return UnknownBoard
}

// Describe формирует строку ленты для записи.
func Describe(ev models.ActivityEvent) string {
	switch ev.Type {
	case models.ActivityDocumentEdit:
		return fmt.Sprintf("%s edited %q", ev.UserName, ev.Data.DocumentTitle)
	case models.ActivityTaskMove:
		return fmt.Sprintf("%s moved %q from %s to %s", ev.UserName, ev.Data.TaskTitle, ev.Data.FromBoard, ev.Data.ToBoard)
	case models.ActivityProjectShare:
		if ev.Data.Role != "" {
			return fmt.Sprintf("%s shared %s with %s as %s", ev.UserName, ev.Data.ProjectName, ev.Data.SharedWith, ev.Data.Role)
		}
		return fmt.Sprintf("%s shared %s with %s", ev.UserName, ev.Data.ProjectName, ev.Data.SharedWith)
	default:
		return fmt.Sprintf("%s: %s", ev.UserName, ev.Type)
	}
}

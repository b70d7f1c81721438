package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/transport"
)

// Manager держит не более одной открытой сессии. Открытие новой комнаты
// сначала полностью закрывает предыдущую сессию.
type Manager struct {
	transport transport.Transport
	logger    *slog.Logger
	current   *Session
	opts      Options
	mu        sync.Mutex
}

// NewManager создает менеджер сессий поверх транспорта.
func NewManager(t transport.Transport, logger *slog.Logger, opts Options) *Manager {
	return &Manager{
		transport: t,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Open открывает сессию комнаты room для документа engine.
// Предыдущая сессия (если есть) закрывается до создания новой,
// вместе с ее документом.
func (m *Manager) Open(ctx context.Context, room string, engine *document.Engine) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		old := m.current
		m.current = nil
		m.logger.Info("Closing previous session", "room", old.room, "next_room", room)
		if err := old.close(); err != nil {
			m.logger.Warn("Failed to close previous session", "room", old.room, "error", err)
		}
	}

	s := &Session{
		room:   room,
		nodeID: engine.NodeID(),
		engine: engine,
		logger: m.logger.With("room", room, "node_id", engine.NodeID()),
		opts:   m.opts,
		peers:  make(map[string]*PeerInfo),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
		synced: make(chan struct{}),
		state:  transport.StateDisconnected,
	}

	unsubscribe, err := engine.OnUpdate(s.onEngineUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to document: %w", err)
	}
	s.unsubscribe = unsubscribe

	conn, err := m.transport.Join(ctx, room, s.nodeID, transport.Callbacks{
		OnMessage: s.onMessage,
		OnState:   s.onState,
	})
	if err != nil {
		unsubscribe()
		s.closed = true
		close(s.ready)
		return nil, fmt.Errorf("failed to join room %s: %w", room, err)
	}
	s.conn = conn
	close(s.ready)

	go s.presenceLoop()

	m.current = s
	m.logger.Info("Session opened", "room", room, "transport", m.transport.Kind())
	return s, nil
}

// Close закрывает сессию. Закрытие уже закрытой сессии - no-op.
func (m *Manager) Close(s *Session) error {
	if s == nil {
		return nil
	}

	m.mu.Lock()
	if m.current == s {
		m.current = nil
	}
	m.mu.Unlock()

	return s.close()
}

// Current возвращает открытую сессию или nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// RoomName возвращает имя комнаты документа.
func RoomName(doc models.DocumentMeta) string {
	return fmt.Sprintf("project-%s-doc-%s", doc.ProjectID, doc.ID)
}

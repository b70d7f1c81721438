package eventbus

import (
	"context"
	"errors"
	"sync"
)

// Memory внутрипроцессная шина. Publish вызывает обработчики синхронно,
// вне блокировки.
type Memory struct {
	subs   map[string]map[int]Handler
	mu     sync.RWMutex
	nextID int
	closed bool
}

var _ Bus = (*Memory)(nil)

// NewMemory создает внутрипроцессную шину.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string]map[int]Handler),
	}
}

// Publish доставляет событие всем подписчикам проекта.
func (m *Memory) Publish(ctx context.Context, event Event) error {
	if event.ProjectID == "" {
		return errors.New("event project id is required")
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(m.subs[event.ProjectID]))
	for _, h := range m.subs[event.ProjectID] {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		h(event)
	}
	return nil
}

// Subscribe подписывает handler на события проекта.
func (m *Memory) Subscribe(_ context.Context, projectID string, handler Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	id := m.nextID
	m.nextID++
	if m.subs[projectID] == nil {
		m.subs[projectID] = make(map[int]Handler)
	}
	m.subs[projectID][id] = handler

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[projectID], id)
		if len(m.subs[projectID]) == 0 {
			delete(m.subs, projectID)
		}
	}, nil
}

// Subscribers число подписчиков проекта.
func (m *Memory) Subscribers(projectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[projectID])
}

// Close отписывает всех. Повторный вызов безопасен.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[string]map[int]Handler)
	return nil
}

// Package eventbus доставляет события проекта подписчикам.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed возвращается после Close шины.
var ErrClosed = errors.New("event bus closed")

// EventType тип события проекта
type EventType string

const (
	DocumentUpdate EventType = "document:update"
	CardMove       EventType = "kanban:card:move"
	CardAdd        EventType = "kanban:card:add"
	CardUpdate     EventType = "kanban:card:update"
	CardDelete     EventType = "kanban:card:delete"
	BoardAdd       EventType = "kanban:board:add"
	ActivityLog    EventType = "activity:log"
)

// Event событие проекта. Payload - произвольный JSON-объект.
type Event struct {
	Payload   map[string]any `json:"payload"`
	ProjectID string         `json:"projectId"`
	Type      EventType      `json:"eventType"`
	UserID    string         `json:"userId,omitempty"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
}

// NewEvent создает событие с текущим временем.
func NewEvent(projectID string, eventType EventType, payload map[string]any, userID string) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		Payload:   payload,
		ProjectID: projectID,
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// String возвращает строковое поле payload или "".
func (e Event) String(key string) string {
	if e.Payload == nil {
		return ""
	}
	s, _ := e.Payload[key].(string)
	return s
}

// Handler обработчик событий. Вызывается последовательно для одной подписки.
type Handler func(Event)

// Bus pub/sub событий, разделенный по проектам.
// Функцию отписки нельзя вызывать из обработчика той же подписки.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, projectID string, handler Handler) (func(), error)
	Close() error
}

// ChannelName имя канала проекта.
func ChannelName(projectID string) string {
	return fmt.Sprintf("project-%s", projectID)
}

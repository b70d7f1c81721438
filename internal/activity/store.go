// Package activity превращает события проекта в ленту активности.
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophboard/internal/models"
)

// DefaultCapacity сколько последних записей хранит лента.
const DefaultCapacity = 100

// Store ограниченная лента активности, самые новые записи первыми.
type Store struct {
	now      func() time.Time
	items    []models.ActivityEvent
	capacity int
	mu       sync.RWMutex
}

// NewStore создает ленту. capacity <= 0 означает DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		now:      time.Now,
		capacity: capacity,
	}
}

// Add присваивает записи ID и время и добавляет ее в начало ленты.
// Самые старые записи сверх емкости отбрасываются.
func (s *Store) Add(ev models.ActivityEvent) models.ActivityEvent {
	ev.ID = "activity-" + uuid.New().String()
	ev.Timestamp = s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.ActivityEvent, 0, min(len(s.items)+1, s.capacity))
	items = append(items, ev)
	for _, it := range s.items {
		if len(items) == s.capacity {
			break
		}
		items = append(items, it)
	}
	s.items = items
	return ev
}

// List возвращает копию всей ленты.
func (s *Store) List() []models.ActivityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ActivityEvent(nil), s.items...)
}

// ByProject возвращает записи проекта.
func (s *Store) ByProject(projectID string) []models.ActivityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ActivityEvent
	for _, it := range s.items {
		if it.Data.ProjectID == projectID {
			result = append(result, it)
		}
	}
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear очищает ленту.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

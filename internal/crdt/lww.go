package crdt

import (
	"sort"
	"sync"

	"github.com/iudanet/gophboard/internal/models"
)

// LWWSet представляет Last-Write-Wins Element Set отметок форматирования.
// Конфликты между версиями одной отметки разрешаются по models.Mark.IsNewerThan,
// удаление - soft delete (флаг Deleted), поэтому Merge коммутативен и идемпотентен.
type LWWSet struct {
	elements map[string]*models.Mark // map[id]mark
	mu       sync.RWMutex
}

// NewLWWSet создает новый экземпляр LWW-Element-Set.
func NewLWWSet() *LWWSet {
	return &LWWSet{
		elements: make(map[string]*models.Mark),
	}
}

// Apply добавляет отметку или заменяет существующую, если новая версия новее.
// Возвращает true, если состояние изменилось.
func (s *LWWSet) Apply(mark *models.Mark) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(mark)
}

func (s *LWWSet) applyLocked(mark *models.Mark) bool {
	existing, exists := s.elements[mark.ID]
	if exists && !mark.IsNewerThan(existing) {
		return false
	}
	s.elements[mark.ID] = mark.Clone()
	return true
}

// Remove помечает отметку удаленной с новым timestamp.
// Возвращает true, если удаление победило текущую версию.
func (s *LWWSet) Remove(id string, timestamp int64, nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.elements[id]
	if !exists {
		return false
	}

	deleted := existing.Clone()
	deleted.Deleted = true
	deleted.Timestamp = timestamp
	deleted.NodeID = nodeID
	return s.applyLocked(deleted)
}

// Get возвращает копию отметки по ID. nil - если не найдена или удалена.
func (s *LWWSet) Get(id string) *models.Mark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mark, exists := s.elements[id]
	if !exists || mark.Deleted {
		return nil
	}
	return mark.Clone()
}

// Active возвращает неудаленные отметки, отсортированные по ID.
func (s *LWWSet) Active() []*models.Mark {
	return s.collect(false)
}

// All возвращает все отметки, включая удаленные, отсортированные по ID.
// Используется для кодирования состояния и синхронизации.
func (s *LWWSet) All() []*models.Mark {
	return s.collect(true)
}

func (s *LWWSet) collect(includeDeleted bool) []*models.Mark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Mark, 0, len(s.elements))
	for _, mark := range s.elements {
		if mark.Deleted && !includeDeleted {
			continue
		}
		result = append(result, mark.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Merge объединяет текущий set с другим по правилу LWW.
// Возвращает количество изменившихся отметок.
func (s *LWWSet) Merge(other *LWWSet) int {
	// снимок берется до захвата своей блокировки: встречный Merge не приведет к deadlock
	incoming := other.All()

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, mark := range incoming {
		if s.applyLocked(mark) {
			changed++
		}
	}
	return changed
}

// MaxTimestamp возвращает наибольший timestamp среди всех версий отметок.
func (s *LWWSet) MaxTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var maxTS int64
	for _, mark := range s.elements {
		if mark.Timestamp > maxTS {
			maxTS = mark.Timestamp
		}
	}
	return maxTS
}

// Size возвращает количество неудаленных отметок.
func (s *LWWSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, mark := range s.elements {
		if !mark.Deleted {
			count++
		}
	}
	return count
}

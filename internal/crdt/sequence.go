package crdt

import (
	"sort"
	"strings"

	"github.com/iudanet/gophboard/internal/models"
)

// Sequence реализует RGA (Replicated Growable Array) в виде causal tree.
//
// Каждый элемент хранит origin - левого соседа на момент вставки.
// Линейный порядок - обход дерева в глубину (pre-order) от головы,
// дети каждого узла упорядочены по убыванию ItemID. Удаление - tombstone
// в grow-only множестве. Элемент с неизвестным origin хранится, но
// становится видимым только после прихода origin, поэтому порядок
// доставки операций не влияет на результат.
//
// Sequence не потокобезопасна: синхронизацию обеспечивает владелец (document.Engine).
type Sequence struct {
	items      map[models.ItemID]models.Item
	children   map[models.ItemID][]models.ItemID // origin -> дети по убыванию ID
	tombstones map[models.ItemID]struct{}
	order      []models.ItemID // кеш линейного порядка, nil - невалиден
}

// NewSequence создает пустую последовательность.
func NewSequence() *Sequence {
	return &Sequence{
		items:      make(map[models.ItemID]models.Item),
		children:   make(map[models.ItemID][]models.ItemID),
		tombstones: make(map[models.ItemID]struct{}),
	}
}

// Integrate добавляет элемент. Возвращает false, если элемент уже известен.
func (s *Sequence) Integrate(item models.Item) bool {
	if _, ok := s.items[item.ID]; ok {
		return false
	}
	s.items[item.ID] = item

	siblings := s.children[item.Origin]
	// дети отсортированы по убыванию: ищем первую позицию, где sibling < item.ID
	idx := sort.Search(len(siblings), func(i int) bool {
		return siblings[i].Less(item.ID)
	})
	siblings = append(siblings, models.ItemID{})
	copy(siblings[idx+1:], siblings[idx:])
	siblings[idx] = item.ID
	s.children[item.Origin] = siblings

	s.order = nil
	return true
}

// Delete помечает элемент как удаленный. Tombstone может прийти раньше
// самого элемента - он применится, когда элемент будет интегрирован.
// Возвращает false, если tombstone уже был.
func (s *Sequence) Delete(id models.ItemID) bool {
	if _, ok := s.tombstones[id]; ok {
		return false
	}
	s.tombstones[id] = struct{}{}
	return true
}

// Has проверяет, известен ли элемент.
func (s *Sequence) Has(id models.ItemID) bool {
	_, ok := s.items[id]
	return ok
}

// Item возвращает элемент по ID.
func (s *Sequence) Item(id models.ItemID) (models.Item, bool) {
	item, ok := s.items[id]
	return item, ok
}

// IsDeleted проверяет наличие tombstone.
func (s *Sequence) IsDeleted(id models.ItemID) bool {
	_, ok := s.tombstones[id]
	return ok
}

// Order возвращает линейный порядок всех достижимых элементов, включая удаленные.
// Возвращаемый срез нельзя изменять.
func (s *Sequence) Order() []models.ItemID {
	if s.order != nil {
		return s.order
	}

	order := make([]models.ItemID, 0, len(s.items))
	// итеративный обход: цепочка набранных подряд символов дает глубину дерева O(n)
	stack := make([]models.ItemID, 0, 16)
	pushChildren := func(parent models.ItemID) {
		kids := s.children[parent]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}

	pushChildren(models.ItemID{})
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		pushChildren(id)
	}

	s.order = order
	return order
}

// Visible возвращает видимые (достижимые и не удаленные) элементы в порядке документа.
func (s *Sequence) Visible() []models.Item {
	order := s.Order()
	result := make([]models.Item, 0, len(order))
	for _, id := range order {
		if _, deleted := s.tombstones[id]; deleted {
			continue
		}
		result = append(result, s.items[id])
	}
	return result
}

// Text возвращает видимый текст.
func (s *Sequence) Text() string {
	var b strings.Builder
	for _, item := range s.Visible() {
		b.WriteString(item.Value)
	}
	return b.String()
}

// Items возвращает все элементы (включая удаленные и ожидающие origin),
// отсортированные по ID. Используется для кодирования состояния.
func (s *Sequence) Items() []models.Item {
	result := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.Less(result[j].ID)
	})
	return result
}

// Tombstones возвращает все tombstone, отсортированные по ID.
func (s *Sequence) Tombstones() []models.ItemID {
	result := make([]models.ItemID, 0, len(s.tombstones))
	for id := range s.tombstones {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Less(result[j])
	})
	return result
}

// MaxClock возвращает наибольшее значение часов среди известных элементов.
func (s *Sequence) MaxClock() int64 {
	var maxClock int64
	for id := range s.items {
		if id.Clock > maxClock {
			maxClock = id.Clock
		}
	}
	return maxClock
}

package crdt

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/gophboard/internal/models"
)

// LamportClock логические часы Лампорта. Выдает идентификаторы элементов
// документа и timestamp'ы отметок форматирования, упорядоченные без
// синхронизации физического времени между редакторами.
type LamportClock struct {
	nodeID  string // уникальный идентификатор узла (редактора)
	counter int64
	mu      sync.Mutex
}

// NewLamportClock создает часы с уникальным идентификатором узла (UUID).
func NewLamportClock() *LamportClock {
	return NewLamportClockWithNodeID(uuid.New().String())
}

// NewLamportClockWithNodeID создает часы с заданным идентификатором узла.
// Используется в тестах, где нужен детерминированный порядок узлов.
func NewLamportClockWithNodeID(nodeID string) *LamportClock {
	return &LamportClock{nodeID: nodeID}
}

// Tick увеличивает счетчик и возвращает новое значение.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Next выдает новый идентификатор элемента последовательности.
func (lc *LamportClock) Next() models.ItemID {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return models.ItemID{Clock: lc.counter, Node: lc.nodeID}
}

// Witness учитывает timestamp, пришедший от другого узла:
// counter = max(counter, remote). Следующий Tick будет строго больше
// всех увиденных значений, поэтому новые элементы всегда "младше" своего origin.
func (lc *LamportClock) Witness(remote int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter {
		lc.counter = remote
	}
}

// Now возвращает текущее значение счетчика без изменения.
func (lc *LamportClock) Now() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}

// NodeID возвращает идентификатор узла.
func (lc *LamportClock) NodeID() string {
	return lc.nodeID
}

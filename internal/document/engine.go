package document

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/gophboard/internal/crdt"
	"github.com/iudanet/gophboard/internal/models"
)

// Origin источник изменения, о котором сообщает OnUpdate
type Origin int

const (
	OriginLocal   Origin = iota // локальное редактирование
	OriginRemote                // update, полученный от другого участника
	OriginRestore               // ClearAndReplace (восстановление версии)
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginRestore:
		return "restore"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// UpdateListener получает закодированную дельту каждого изменения состояния.
type UpdateListener func(update []byte, origin Origin)

// ChangeListener вызывается после локального изменения (редактирование или восстановление).
type ChangeListener func()

type listener[T any] struct {
	fn T
	id int
}

// Engine - CRDT-движок одного документа (Change-Log Engine).
//
// Все операции коммутативны, ассоциативны и идемпотентны: повторное применение
// update ничего не меняет, реплики сходятся при любом порядке доставки.
// Слушатели вызываются вне блокировки, в горутине, выполнившей изменение.
type Engine struct {
	clock    *crdt.LamportClock
	doc      *replica
	logger   *slog.Logger
	onUpdate []listener[UpdateListener]
	onChange []listener[ChangeListener]
	nextID   int
	mu       sync.Mutex

	destroyed bool
}

// Option настраивает Engine.
type Option func(*Engine)

// WithNodeID задает идентификатор узла (по умолчанию - случайный UUID).
func WithNodeID(nodeID string) Option {
	return func(e *Engine) {
		e.clock = crdt.NewLamportClockWithNodeID(nodeID)
	}
}

// NewEngine создает пустой документ.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		clock:  crdt.NewLamportClock(),
		doc:    newReplica(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NodeID возвращает идентификатор узла движка.
func (e *Engine) NodeID() string {
	return e.clock.NodeID()
}

// OnUpdate подписывает listener на все изменения состояния.
// Возвращает функцию отписки.
func (e *Engine) OnUpdate(fn UpdateListener) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	id := e.nextID
	e.nextID++
	e.onUpdate = append(e.onUpdate, listener[UpdateListener]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.onUpdate = removeListener(e.onUpdate, id)
	}, nil
}

// OnChange подписывает listener на локальные изменения.
func (e *Engine) OnChange(fn ChangeListener) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	id := e.nextID
	e.nextID++
	e.onChange = append(e.onChange, listener[ChangeListener]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.onChange = removeListener(e.onChange, id)
	}, nil
}

func removeListener[T any](list []listener[T], id int) []listener[T] {
	result := list[:0:0]
	for _, l := range list {
		if l.id != id {
			result = append(result, l)
		}
	}
	return result
}

// ApplyLocalEdit применяет локальную операцию, рассылает дельту (OriginLocal)
// и сигнализирует OnChange.
func (e *Engine) ApplyLocalEdit(op EditOp) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}

	delta, err := e.applyOpLocked(op)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	// снятие отсутствующего форматирования ничего не меняет
	if delta.empty() {
		e.mu.Unlock()
		return nil
	}

	update, err := encodeState(delta)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	updates, changes := e.snapshotListenersLocked()
	e.mu.Unlock()

	e.logger.Debug("Applied local edit", "op", op.String(), "node_id", e.clock.NodeID())
	notify(updates, changes, update, OriginLocal, true)
	return nil
}

// ApplyRemoteUpdate сливает update другого участника с текущим состоянием.
// Повторное применение - no-op. Повреждённый update логируется, возвращается
// как ErrDecode, состояние не меняется.
func (e *Engine) ApplyRemoteUpdate(update []byte) error {
	w, err := decodeState(update)
	if err != nil {
		e.logger.Warn("Failed to decode remote update", "error", err, "size", len(update))
		return err
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}
	maxClock, changed := e.doc.merge(w)
	e.clock.Witness(maxClock)
	if !changed {
		e.mu.Unlock()
		return nil
	}
	updates, _ := e.snapshotListenersLocked()
	e.mu.Unlock()

	notify(updates, nil, update, OriginRemote, false)
	return nil
}

// EncodeFullState возвращает полное закодированное состояние документа.
func (e *Engine) EncodeFullState() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	return encodeState(e.doc.state())
}

// PlainText возвращает видимый текст документа без форматирования.
func (e *Engine) PlainText() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return "", ErrDestroyed
	}
	return e.doc.seq.Text(), nil
}

// Tree возвращает документ в виде дерева doc -> paragraph -> text.
func (e *Engine) Tree() (*Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return nil, ErrDestroyed
	}
	items, sets := e.doc.layout()
	return buildTree(items, sets), nil
}

// ClearAndReplace заменяет содержимое документа содержимым state одной транзакцией:
// один исходящий update (OriginRestore) и один сигнал OnChange. Промежуточное
// пустое состояние никогда не наблюдается. Заменяется только отличающаяся середина
// текста, поэтому применение собственного состояния ничего не меняет.
func (e *Engine) ClearAndReplace(state []byte) error {
	w, err := decodeState(state)
	if err != nil {
		e.logger.Warn("Failed to decode state for replace", "error", err, "size", len(state))
		return err
	}
	target := replicaFromState(w)
	targetItems, targetSets := target.layout()

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrDestroyed
	}

	delta := &wireState{}
	current := e.doc.seq.Visible()

	prefix := 0
	for prefix < len(current) && prefix < len(targetItems) &&
		current[prefix].Value == targetItems[prefix].Value {
		prefix++
	}
	suffix := 0
	for suffix < len(current)-prefix && suffix < len(targetItems)-prefix &&
		current[len(current)-1-suffix].Value == targetItems[len(targetItems)-1-suffix].Value {
		suffix++
	}

	for _, item := range current[prefix : len(current)-suffix] {
		e.doc.seq.Delete(item.ID)
		delta.Tombstones = append(delta.Tombstones, item.ID)
	}

	origin := models.ItemID{}
	if prefix > 0 {
		origin = current[prefix-1].ID
	}
	for _, src := range targetItems[prefix : len(targetItems)-suffix] {
		item := models.Item{ID: e.clock.Next(), Origin: origin, Value: src.Value}
		e.doc.seq.Integrate(item)
		delta.Items = append(delta.Items, item)
		origin = item.ID
	}

	items, sets := e.doc.layout()
	if !sameLayout(sets, targetSets) {
		delta.Marks = append(delta.Marks, e.replaceMarksLocked(items, targetSets)...)
	}

	if delta.empty() {
		e.mu.Unlock()
		return nil
	}

	update, err := encodeState(delta)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	updates, changes := e.snapshotListenersLocked()
	e.mu.Unlock()

	e.logger.Info("Replaced document content",
		"removed", len(delta.Tombstones),
		"inserted", len(delta.Items),
		"marks", len(delta.Marks),
	)
	notify(updates, changes, update, OriginRestore, true)
	return nil
}

// Destroy освобождает слушателей. Любой последующий вызов вернет ErrDestroyed.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.destroyed = true
	e.onUpdate = nil
	e.onChange = nil
}

func (e *Engine) snapshotListenersLocked() ([]UpdateListener, []ChangeListener) {
	updates := make([]UpdateListener, 0, len(e.onUpdate))
	for _, l := range e.onUpdate {
		updates = append(updates, l.fn)
	}
	changes := make([]ChangeListener, 0, len(e.onChange))
	for _, l := range e.onChange {
		changes = append(changes, l.fn)
	}
	return updates, changes
}

func notify(updates []UpdateListener, changes []ChangeListener, update []byte, origin Origin, changed bool) {
	for _, fn := range updates {
		fn(update, origin)
	}
	if !changed {
		return
	}
	for _, fn := range changes {
		fn()
	}
}

func (e *Engine) applyOpLocked(op EditOp) (*wireState, error) {
	visible := e.doc.seq.Visible()
	delta := &wireState{}

	switch op.Kind {
	case OpInsert:
		if op.Pos < 0 || op.Pos > len(visible) || op.Text == "" {
			return nil, fmt.Errorf("%w: %s on document of length %d", ErrInvalidEdit, op, len(visible))
		}
		origin := models.ItemID{}
		if op.Pos > 0 {
			origin = visible[op.Pos-1].ID
		}
		for _, r := range op.Text {
			item := models.Item{ID: e.clock.Next(), Origin: origin, Value: string(r)}
			e.doc.seq.Integrate(item)
			delta.Items = append(delta.Items, item)
			origin = item.ID
		}

	case OpDelete:
		if err := checkRange(op, len(visible)); err != nil {
			return nil, err
		}
		for _, item := range visible[op.Pos : op.Pos+op.Length] {
			e.doc.seq.Delete(item.ID)
			delta.Tombstones = append(delta.Tombstones, item.ID)
		}

	case OpFormat:
		if err := checkRange(op, len(visible)); err != nil {
			return nil, err
		}
		if !op.Mark.IsValid() {
			return nil, fmt.Errorf("%w: unknown mark %q", ErrInvalidEdit, op.Mark)
		}
		mark := models.Mark{
			ID:        uuid.New().String(),
			Type:      op.Mark,
			NodeID:    e.clock.NodeID(),
			From:      visible[op.Pos].ID,
			To:        visible[op.Pos+op.Length-1].ID,
			Timestamp: e.clock.Tick(),
		}
		e.doc.marks.Apply(&mark)
		delta.Marks = append(delta.Marks, mark)

	case OpUnformat:
		if err := checkRange(op, len(visible)); err != nil {
			return nil, err
		}
		if !op.Mark.IsValid() {
			return nil, fmt.Errorf("%w: unknown mark %q", ErrInvalidEdit, op.Mark)
		}
		delta.Marks = e.unformatLocked(visible[op.Pos].ID, visible[op.Pos+op.Length-1].ID, op.Mark)

	default:
		return nil, fmt.Errorf("%w: unknown op kind %d", ErrInvalidEdit, int(op.Kind))
	}

	return delta, nil
}

func checkRange(op EditOp, length int) error {
	if op.Pos < 0 || op.Length <= 0 || op.Pos+op.Length > length {
		return fmt.Errorf("%w: %s on document of length %d", ErrInvalidEdit, op, length)
	}
	return nil
}

// unformatLocked снимает отметку типа markType с диапазона [from, to].
// Пересекающиеся отметки удаляются, а их части вне диапазона
// добавляются как новые отметки.
func (e *Engine) unformatLocked(from, to models.ItemID, markType models.MarkType) []models.Mark {
	order := e.doc.seq.Order()
	index := make(map[models.ItemID]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	start, end := index[from], index[to]

	var changes []models.Mark
	for _, mark := range e.doc.marks.Active() {
		if mark.Type != markType {
			continue
		}
		ms, okFrom := index[mark.From]
		me, okTo := index[mark.To]
		if !okFrom || !okTo || me < start || ms > end {
			continue
		}

		removed := mark.Clone()
		removed.Deleted = true
		removed.Timestamp = e.clock.Tick()
		removed.NodeID = e.clock.NodeID()
		e.doc.marks.Apply(removed)
		changes = append(changes, *removed)

		if ms < start {
			changes = append(changes, e.addMarkLocked(markType, mark.From, order[start-1]))
		}
		if me > end {
			changes = append(changes, e.addMarkLocked(markType, order[end+1], mark.To))
		}
	}
	return changes
}

func (e *Engine) addMarkLocked(markType models.MarkType, from, to models.ItemID) models.Mark {
	mark := models.Mark{
		ID:        uuid.New().String(),
		Type:      markType,
		NodeID:    e.clock.NodeID(),
		From:      from,
		To:        to,
		Timestamp: e.clock.Tick(),
	}
	e.doc.marks.Apply(&mark)
	return mark
}

// replaceMarksLocked удаляет все активные отметки и строит новые по раскладке target.
// items - текущие видимые элементы, уже совпадающие с target по тексту.
func (e *Engine) replaceMarksLocked(items []models.Item, target []markSet) []models.Mark {
	var changes []models.Mark
	for _, mark := range e.doc.marks.Active() {
		removed := mark.Clone()
		removed.Deleted = true
		removed.Timestamp = e.clock.Tick()
		removed.NodeID = e.clock.NodeID()
		e.doc.marks.Apply(removed)
		changes = append(changes, *removed)
	}

	for bitIdx, markType := range markOrder {
		bit := markSet(1 << bitIdx)
		runStart := -1
		for i := 0; i <= len(target) && i <= len(items); i++ {
			inRun := i < len(target) && i < len(items) && target[i]&bit != 0
			if inRun && runStart < 0 {
				runStart = i
			}
			if !inRun && runStart >= 0 {
				changes = append(changes, e.addMarkLocked(markType, items[runStart].ID, items[i-1].ID))
				runStart = -1
			}
		}
	}
	return changes
}

func sameLayout(a, b []markSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PlainTextFromState декодирует состояние и возвращает его видимый текст.
func PlainTextFromState(state []byte) (string, error) {
	w, err := decodeState(state)
	if err != nil {
		return "", err
	}
	return replicaFromState(w).seq.Text(), nil
}

// TextFromState декодирует состояние, строит дерево документа и собирает
// текст его листьев через ExtractText. В отличие от PlainTextFromState
// абзацы склеиваются без разделителя.
func TextFromState(state []byte) (string, error) {
	w, err := decodeState(state)
	if err != nil {
		return "", err
	}
	return ExtractText(buildTree(replicaFromState(w).layout())), nil
}

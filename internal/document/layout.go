package document

import (
	"github.com/iudanet/gophboard/internal/crdt"
	"github.com/iudanet/gophboard/internal/models"
)

// markSet битовая маска активных отметок одного символа
type markSet uint8

// markOrder порядок отметок в дереве и HTML (снаружи внутрь)
var markOrder = []models.MarkType{
	models.MarkBold,
	models.MarkItalic,
	models.MarkStrike,
	models.MarkCode,
}

func markBit(t models.MarkType) markSet {
	for i, mt := range markOrder {
		if mt == t {
			return 1 << i
		}
	}
	return 0
}

func (m markSet) types() []models.MarkType {
	var result []models.MarkType
	for i, mt := range markOrder {
		if m&(1<<i) != 0 {
			result = append(result, mt)
		}
	}
	return result
}

// replica - пара структур CRDT, из которых состоит документ
type replica struct {
	seq   *crdt.Sequence
	marks *crdt.LWWSet
}

func newReplica() *replica {
	return &replica{seq: crdt.NewSequence(), marks: crdt.NewLWWSet()}
}

// replicaFromState строит независимую реплику из декодированного состояния.
func replicaFromState(w *wireState) *replica {
	r := newReplica()
	r.merge(w)
	return r
}

// merge применяет состояние (или дельту). Возвращает наибольший увиденный timestamp
// и признак того, что что-то изменилось.
func (r *replica) merge(w *wireState) (int64, bool) {
	var maxClock int64
	changed := false

	for _, item := range w.Items {
		if r.seq.Integrate(item) {
			changed = true
		}
		maxClock = max(maxClock, item.ID.Clock)
	}
	for _, id := range w.Tombstones {
		if r.seq.Delete(id) {
			changed = true
		}
	}
	for i := range w.Marks {
		if r.marks.Apply(&w.Marks[i]) {
			changed = true
		}
		maxClock = max(maxClock, w.Marks[i].Timestamp)
	}
	return maxClock, changed
}

// state возвращает полное состояние реплики.
func (r *replica) state() *wireState {
	marks := r.marks.All()
	w := &wireState{
		Items:      r.seq.Items(),
		Tombstones: r.seq.Tombstones(),
		Marks:      make([]models.Mark, 0, len(marks)),
	}
	for _, m := range marks {
		w.Marks = append(w.Marks, *m)
	}
	return w
}

// layout возвращает видимые элементы и для каждого - набор активных отметок.
// Отметка покрывает все элементы линейного порядка от From до To включительно;
// отметка с неизвестной границей не отображается.
func (r *replica) layout() ([]models.Item, []markSet) {
	order := r.seq.Order()
	index := make(map[models.ItemID]int, len(order))
	for i, id := range order {
		index[id] = i
	}

	// разностный массив по типам: +1 на From, -1 после To
	counters := make([][]int, len(markOrder))
	for _, mark := range r.marks.Active() {
		from, okFrom := index[mark.From]
		to, okTo := index[mark.To]
		if !okFrom || !okTo || from > to {
			continue
		}
		bit := markBit(mark.Type)
		for t := range markOrder {
			if bit != 1<<t {
				continue
			}
			if counters[t] == nil {
				counters[t] = make([]int, len(order)+1)
			}
			counters[t][from]++
			counters[t][to+1]--
		}
	}

	visible := make([]models.Item, 0, len(order))
	sets := make([]markSet, 0, len(order))
	running := make([]int, len(markOrder))
	for i, id := range order {
		var set markSet
		for t := range markOrder {
			if counters[t] == nil {
				continue
			}
			running[t] += counters[t][i]
			if running[t] > 0 {
				set |= 1 << t
			}
		}
		if r.seq.IsDeleted(id) {
			continue
		}
		item, _ := r.seq.Item(id)
		visible = append(visible, item)
		sets = append(sets, set)
	}
	return visible, sets
}

package crdt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/models"
)

// typeText строит цепочку элементов, как при наборе текста после origin.
func typeText(clock *LamportClock, origin models.ItemID, text string) []models.Item {
	items := make([]models.Item, 0, len(text))
	for _, r := range text {
		id := clock.Next()
		items = append(items, models.Item{ID: id, Origin: origin, Value: string(r)})
		origin = id
	}
	return items
}

func TestSequence_IntegrateSequential(t *testing.T) {
	seq := NewSequence()
	clock := NewLamportClockWithNodeID("a")

	for _, item := range typeText(clock, models.ItemID{}, "hello") {
		assert.True(t, seq.Integrate(item))
	}

	assert.Equal(t, "hello", seq.Text())
	assert.Len(t, seq.Visible(), 5)
	assert.Equal(t, int64(5), seq.MaxClock())
}

func TestSequence_IntegrateDuplicate(t *testing.T) {
	seq := NewSequence()
	item := models.Item{ID: models.ItemID{Clock: 1, Node: "a"}, Value: "x"}

	assert.True(t, seq.Integrate(item))
	assert.False(t, seq.Integrate(item))
	assert.Equal(t, "x", seq.Text())
}

func TestSequence_InsertInMiddle(t *testing.T) {
	seq := NewSequence()
	clock := NewLamportClockWithNodeID("a")

	items := typeText(clock, models.ItemID{}, "ac")
	for _, item := range items {
		seq.Integrate(item)
	}
	// "b" вставлен после "a"; он новее "c", поэтому идет перед ним
	seq.Integrate(models.Item{ID: clock.Next(), Origin: items[0].ID, Value: "b"})

	assert.Equal(t, "abc", seq.Text())
}

func TestSequence_Delete(t *testing.T) {
	seq := NewSequence()
	clock := NewLamportClockWithNodeID("a")
	items := typeText(clock, models.ItemID{}, "abc")
	for _, item := range items {
		seq.Integrate(item)
	}

	assert.True(t, seq.Delete(items[1].ID))
	assert.False(t, seq.Delete(items[1].ID))
	assert.True(t, seq.IsDeleted(items[1].ID))
	assert.Equal(t, "ac", seq.Text())
	assert.Len(t, seq.Order(), 3, "tombstoned items stay in the order")
}

func TestSequence_TombstoneBeforeItem(t *testing.T) {
	seq := NewSequence()
	id := models.ItemID{Clock: 1, Node: "a"}

	seq.Delete(id)
	seq.Integrate(models.Item{ID: id, Value: "x"})

	assert.Equal(t, "", seq.Text())
	assert.True(t, seq.Has(id))
}

func TestSequence_OrphanBecomesVisible(t *testing.T) {
	seq := NewSequence()
	clock := NewLamportClockWithNodeID("a")
	items := typeText(clock, models.ItemID{}, "xyz")

	// приходят в обратном порядке
	seq.Integrate(items[2])
	seq.Integrate(items[1])
	assert.Equal(t, "", seq.Text(), "items without known origin are invisible")

	seq.Integrate(items[0])
	assert.Equal(t, "xyz", seq.Text())
}

func TestSequence_ConcurrentInsertSameOrigin(t *testing.T) {
	clockA := NewLamportClockWithNodeID("a")
	clockB := NewLamportClockWithNodeID("b")

	fromA := typeText(clockA, models.ItemID{}, "AA")
	fromB := typeText(clockB, models.ItemID{}, "BB")

	seq1 := NewSequence()
	seq2 := NewSequence()
	for _, item := range append(append([]models.Item{}, fromA...), fromB...) {
		seq1.Integrate(item)
	}
	for _, item := range append(append([]models.Item{}, fromB...), fromA...) {
		seq2.Integrate(item)
	}

	require.Equal(t, seq1.Text(), seq2.Text())
	// равные clock: узел "b" больше, его вставка идет первой, без перемешивания
	assert.Equal(t, "BBAA", seq1.Text())
}

func TestSequence_ConvergenceRandomOrder(t *testing.T) {
	clockA := NewLamportClockWithNodeID("a")
	clockB := NewLamportClockWithNodeID("b")

	base := typeText(clockA, models.ItemID{}, "base")
	clockB.Witness(clockA.Now())

	all := append([]models.Item{}, base...)
	all = append(all, typeText(clockA, base[1].ID, "111")...)
	all = append(all, typeText(clockB, base[1].ID, "222")...)
	all = append(all, typeText(clockB, base[3].ID, "!")...)

	reference := NewSequence()
	for _, item := range all {
		reference.Integrate(item)
	}
	reference.Delete(base[0].ID)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Item{}, all...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		replica := NewSequence()
		replica.Delete(base[0].ID)
		for _, item := range shuffled {
			replica.Integrate(item)
			// дубликаты не меняют результат
			replica.Integrate(item)
		}

		assert.Equal(t, reference.Text(), replica.Text())
		assert.Equal(t, reference.Order(), replica.Order())
	}
}

func TestSequence_ItemsAndTombstonesSorted(t *testing.T) {
	seq := NewSequence()
	clock := NewLamportClockWithNodeID("a")
	items := typeText(clock, models.ItemID{}, "abc")
	for i := len(items) - 1; i >= 0; i-- {
		seq.Integrate(items[i])
		seq.Delete(items[i].ID)
	}

	got := seq.Items()
	require.Len(t, got, 3)
	assert.Equal(t, items, got)

	tombs := seq.Tombstones()
	require.Len(t, tombs, 3)
	assert.True(t, tombs[0].Less(tombs[1]))
	assert.True(t, tombs[1].Less(tombs[2]))
}

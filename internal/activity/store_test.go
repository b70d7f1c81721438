package activity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophboard/internal/models"
)

func TestStore_AddNewestFirst(t *testing.T) {
	s := NewStore(0)

	first := s.Add(models.ActivityEvent{Type: models.ActivityTaskMove, Data: models.ActivityData{ProjectID: "1"}})
	second := s.Add(models.ActivityEvent{Type: models.ActivityDocumentEdit, Data: models.ActivityData{ProjectID: "2"}})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotZero(t, first.Timestamp)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	byProject := s.ByProject("1")
	require.Len(t, byProject, 1)
	assert.Equal(t, first.ID, byProject[0].ID)
	assert.Empty(t, s.ByProject("42"))
}

func TestStore_Capacity(t *testing.T) {
	s := NewStore(0)

	var last models.ActivityEvent
	for i := 0; i < DefaultCapacity+20; i++ {
		last = s.Add(models.ActivityEvent{
			Type: models.ActivityDocumentEdit,
			Data: models.ActivityData{DocumentTitle: fmt.Sprintf("doc %d", i)},
		})
	}

	list := s.List()
	require.Len(t, list, DefaultCapacity)
	assert.Equal(t, last.ID, list[0].ID)
	assert.Equal(t, "doc 20", list[len(list)-1].Data.DocumentTitle)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(5)
	s.Add(models.ActivityEvent{Type: models.ActivityTaskMove})
	require.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List())
}

func TestStore_ListIsCopy(t *testing.T) {
	s := NewStore(5)
	s.Add(models.ActivityEvent{Type: models.ActivityTaskMove, UserName: "Alice"})

	list := s.List()
	list[0].UserName = "Mallory"

	assert.Equal(t, "Alice", s.List()[0].UserName)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMark_IsNewerThan(t *testing.T) {
	tests := []struct {
		other    *Mark
		self     *Mark
		name     string
		expected bool
	}{
		{
			name:     "self timestamp greater",
			self:     &Mark{Timestamp: 101, NodeID: "nodeA"},
			other:    &Mark{Timestamp: 100, NodeID: "nodeA"},
			expected: true,
		},
		{
			name:     "self timestamp smaller",
			self:     &Mark{Timestamp: 90, NodeID: "nodeA"},
			other:    &Mark{Timestamp: 100, NodeID: "nodeA"},
			expected: false,
		},
		{
			name:     "timestamps equal, self NodeID greater lex",
			self:     &Mark{Timestamp: 100, NodeID: "nodeB"},
			other:    &Mark{Timestamp: 100, NodeID: "nodeA"},
			expected: true,
		},
		{
			name:     "timestamps equal, self NodeID lower lex",
			self:     &Mark{Timestamp: 100, NodeID: "nodeA"},
			other:    &Mark{Timestamp: 100, NodeID: "nodeB"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.self.IsNewerThan(tt.other))
		})
	}
}

func TestMark_Clone(t *testing.T) {
	original := &Mark{
		ID:        "mark-1",
		Type:      MarkBold,
		NodeID:    "node-1",
		From:      ItemID{Clock: 1, Node: "node-1"},
		To:        ItemID{Clock: 5, Node: "node-1"},
		Timestamp: 6,
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Deleted = true
	clone.To.Clock = 7
	assert.False(t, original.Deleted, "clone must not share state with original")
	assert.Equal(t, int64(5), original.To.Clock)
}

func TestItemID_Less(t *testing.T) {
	a := ItemID{Clock: 1, Node: "b"}
	b := ItemID{Clock: 2, Node: "a"}
	c := ItemID{Clock: 2, Node: "b"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(b))
	assert.False(t, c.Less(c))
	assert.True(t, ItemID{}.IsZero())
	assert.False(t, a.IsZero())
	assert.Equal(t, "2@a", b.String())
}

func TestMarkType_IsValid(t *testing.T) {
	assert.True(t, MarkBold.IsValid())
	assert.True(t, MarkCode.IsValid())
	assert.False(t, MarkType("underline").IsValid())
}

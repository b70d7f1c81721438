package models

import "fmt"

// ItemID уникальный идентификатор элемента CRDT-последовательности.
// Пара (Lamport clock, NodeID) глобально уникальна и задает полный порядок.
type ItemID struct {
	Node  string `json:"n"` // Node идентификатор узла (редактора), создавшего элемент
	Clock int64  `json:"c"` // Clock значение часов Лампорта в момент создания
}

// IsZero возвращает true для "головы" последовательности (элемента без левого соседа).
func (id ItemID) IsZero() bool {
	return id.Clock == 0 && id.Node == ""
}

// Less сравнивает идентификаторы: сначала Clock, при равенстве - Node (лексикографически).
func (id ItemID) Less(other ItemID) bool {
	if id.Clock != other.Clock {
		return id.Clock < other.Clock
	}
	return id.Node < other.Node
}

func (id ItemID) String() string {
	return fmt.Sprintf("%d@%s", id.Clock, id.Node)
}

// Item представляет один символ текста документа.
// Origin - элемент, после которого символ был вставлен (левый сосед на момент вставки).
type Item struct {
	Value  string `json:"v"` // Value один символ (руна) в виде строки
	ID     ItemID `json:"id"`
	Origin ItemID `json:"o"`
}

// MarkType тип форматирования текста
type MarkType string

const (
	MarkBold   MarkType = "bold"
	MarkItalic MarkType = "italic"
	MarkStrike MarkType = "strike"
	MarkCode   MarkType = "code"
)

// IsValid проверяет, что тип форматирования поддерживается редактором.
func (t MarkType) IsValid() bool {
	switch t {
	case MarkBold, MarkItalic, MarkStrike, MarkCode:
		return true
	default:
		return false
	}
}

// Mark представляет форматирование диапазона символов.
// Хранится в LWW-Element-Set: при конфликте побеждает запись с большим Timestamp,
// при равных Timestamp - с большим NodeID.
type Mark struct {
	ID        string   `json:"id"`      // ID уникальный идентификатор отметки (UUID)
	Type      MarkType `json:"type"`    // Type тип форматирования
	NodeID    string   `json:"node_id"` // NodeID узел, создавший эту версию отметки
	From      ItemID   `json:"from"`    // From первый символ диапазона (включительно)
	To        ItemID   `json:"to"`      // To последний символ диапазона (включительно)
	Timestamp int64    `json:"timestamp"`
	Deleted   bool     `json:"deleted"` // Deleted флаг soft delete (форматирование снято)
}

// IsNewerThan сравнивает две версии отметки по правилу LWW (Last-Write-Wins):
// 1. Сначала сравнивается Timestamp (больший выигрывает)
// 2. При равных Timestamp сравнивается NodeID (лексикографически)
func (m *Mark) IsNewerThan(other *Mark) bool {
	if m.Timestamp > other.Timestamp {
		return true
	}
	if m.Timestamp < other.Timestamp {
		return false
	}
	return m.NodeID > other.NodeID
}

// Clone создает копию отметки
func (m *Mark) Clone() *Mark {
	c := *m
	return &c
}

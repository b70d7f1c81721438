package document

import (
	"strings"

	"github.com/iudanet/gophboard/internal/models"
)

// Типы узлов дерева документа
const (
	NodeDoc       = "doc"
	NodeParagraph = "paragraph"
	NodeText      = "text"
)

// NodeMark отметка форматирования текстового узла
type NodeMark struct {
	Type models.MarkType `json:"type"`
}

// Node узел дерева документа в форме ProseMirror: doc -> paragraph -> text.
type Node struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	Marks   []NodeMark `json:"marks,omitempty"`
	Content []*Node    `json:"content,omitempty"`
}

// buildTree группирует видимые символы в абзацы (символ \n завершает абзац),
// а внутри абзаца - в текстовые узлы с одинаковым набором отметок.
func buildTree(items []models.Item, sets []markSet) *Node {
	doc := &Node{Type: NodeDoc}
	para := &Node{Type: NodeParagraph}

	var run strings.Builder
	var runSet markSet
	flush := func() {
		if run.Len() == 0 {
			return
		}
		text := &Node{Type: NodeText, Text: run.String()}
		for _, mt := range runSet.types() {
			text.Marks = append(text.Marks, NodeMark{Type: mt})
		}
		para.Content = append(para.Content, text)
		run.Reset()
	}

	for i, item := range items {
		if item.Value == "\n" {
			flush()
			doc.Content = append(doc.Content, para)
			para = &Node{Type: NodeParagraph}
			continue
		}
		if run.Len() > 0 && sets[i] != runSet {
			flush()
		}
		runSet = sets[i]
		run.WriteString(item.Value)
	}
	flush()
	doc.Content = append(doc.Content, para)

	return doc
}

// ExtractText рекурсивно собирает текст листьев дерева, игнорируя отметки.
// Абзацы склеиваются без разделителя.
func ExtractText(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Type == NodeText {
		return n.Text
	}

	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(ExtractText(child))
	}
	return b.String()
}

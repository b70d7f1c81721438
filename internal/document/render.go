package document

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/iudanet/gophboard/internal/models"
)

var markAtoms = map[models.MarkType]atom.Atom{
	models.MarkBold:   atom.Strong,
	models.MarkItalic: atom.Em,
	models.MarkStrike: atom.S,
	models.MarkCode:   atom.Code,
}

// RenderHTML рендерит дерево документа в HTML-фрагмент: абзац - <p>,
// отметки - вложенные <strong>, <em>, <s>, <code> (первая отметка снаружи).
func RenderHTML(doc *Node) (string, error) {
	if doc == nil || doc.Type != NodeDoc {
		return "", fmt.Errorf("failed to render html: root must be a %q node", NodeDoc)
	}

	var buf bytes.Buffer
	for _, para := range doc.Content {
		p := element(atom.P)
		for _, child := range para.Content {
			p.AppendChild(textNode(child))
		}
		if err := html.Render(&buf, p); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textNode(n *Node) *html.Node {
	leaf := &html.Node{Type: html.TextNode, Data: n.Text}
	if len(n.Marks) == 0 {
		return leaf
	}

	// строим изнутри наружу
	current := leaf
	for i := len(n.Marks) - 1; i >= 0; i-- {
		wrapper := element(markAtoms[n.Marks[i].Type])
		wrapper.AppendChild(current)
		current = wrapper
	}
	return current
}

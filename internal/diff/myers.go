package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// tokenRuneBase начало Private Use Area: каждый уникальный токен
// кодируется одной руной, чтобы diffmatchpatch сравнивал слова, а не символы.
const tokenRuneBase = 0xE000

// Myers сравнивает два текста пословно по алгоритму Майерса.
func Myers(oldText, newText string) []Segment {
	a := Tokenize(oldText)
	b := Tokenize(newText)

	index := make(map[string]rune)
	var table []string
	encode := func(tokens []string) []rune {
		runes := make([]rune, len(tokens))
		for k, tok := range tokens {
			r, ok := index[tok]
			if !ok {
				r = rune(tokenRuneBase + len(table))
				index[tok] = r
				table = append(table, tok)
			}
			runes[k] = r
		}
		return runes
	}
	ra := encode(a)
	rb := encode(b)

	dmp := diffmatchpatch.New()
	// без таймаута результат не зависит от скорости машины
	dmp.DiffTimeout = 0

	diffs := dmp.DiffMainRunes(ra, rb, false)

	result := make([]Segment, 0, len(a)+len(b))
	for _, d := range diffs {
		var typ SegmentType
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = Added
		case diffmatchpatch.DiffDelete:
			typ = Removed
		default:
			typ = Unchanged
		}
		for _, r := range d.Text {
			result = append(result, Segment{Type: typ, Text: table[r-tokenRuneBase]})
		}
	}
	return result
}

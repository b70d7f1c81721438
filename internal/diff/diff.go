// Package diff сравнивает две версии документа пословно.
//
// Основной алгоритм эвристический: он детерминирован, но не гарантирует
// минимальный набор правок. Для точного выравнивания есть вариант Myers.
package diff

import (
	"fmt"
	"unicode"
)

// SegmentType тип сегмента результата сравнения
type SegmentType string

const (
	Added     SegmentType = "added"
	Removed   SegmentType = "removed"
	Unchanged SegmentType = "unchanged"
)

// Segment один токен результата сравнения.
type Segment struct {
	Type SegmentType `json:"type"`
	Text string      `json:"text"`
}

// Algorithm алгоритм выравнивания токенов.
type Algorithm string

const (
	AlgorithmHeuristic Algorithm = "heuristic"
	AlgorithmMyers     Algorithm = "myers"
)

// ParseAlgorithm разбирает имя алгоритма. Пустая строка означает эвристику.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmHeuristic:
		return AlgorithmHeuristic, nil
	case AlgorithmMyers:
		return AlgorithmMyers, nil
	default:
		return "", fmt.Errorf("unknown diff algorithm %q", s)
	}
}

// Tokenize разбивает текст на слова и промежутки из пробельных символов.
// Пробельные токены сохраняются, пустые отбрасываются, так что
// конкатенация токенов дает исходный текст.
func Tokenize(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// Text сравнивает два текста эвристическим пословным выравниванием.
func Text(oldText, newText string) []Segment {
	return heuristic(Tokenize(oldText), Tokenize(newText))
}

func heuristic(a, b []string) []Segment {
	result := make([]Segment, 0, len(a)+len(b))
	i, j := 0, 0

	for i < len(a) || j < len(b) {
		switch {
		case i >= len(a):
			result = append(result, Segment{Type: Added, Text: b[j]})
			j++
		case j >= len(b):
			result = append(result, Segment{Type: Removed, Text: a[i]})
			i++
		case a[i] == b[j]:
			result = append(result, Segment{Type: Unchanged, Text: a[i]})
			i++
			j++
		default:
			inNew := indexFrom(b, j, a[i])
			inOld := indexFrom(a, i, b[j])

			switch {
			case inNew >= 0 && (inOld < 0 || inNew < inOld):
				// старый токен встречается дальше в новом тексте: b[j] добавлен
				result = append(result, Segment{Type: Added, Text: b[j]})
				j++
			case inOld >= 0 && (inNew < 0 || inOld < inNew):
				result = append(result, Segment{Type: Removed, Text: a[i]})
				i++
			default:
				result = append(result,
					Segment{Type: Removed, Text: a[i]},
					Segment{Type: Added, Text: b[j]},
				)
				i++
				j++
			}
		}
	}
	return result
}

// indexFrom возвращает смещение token в tokens начиная с from или -1.
func indexFrom(tokens []string, from int, token string) int {
	for k := from; k < len(tokens); k++ {
		if tokens[k] == token {
			return k - from
		}
	}
	return -1
}

// Join восстанавливает текст из сегментов указанных типов.
func Join(segments []Segment, types ...SegmentType) string {
	var n int
	for _, s := range segments {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range segments {
		for _, t := range types {
			if s.Type == t {
				buf = append(buf, s.Text...)
				break
			}
		}
	}
	return string(buf)
}

package document

import (
	"fmt"

	"github.com/iudanet/gophboard/internal/models"
)

// OpKind тип локальной операции редактирования
type OpKind int

const (
	OpInsert OpKind = iota
	OpDelete
	OpFormat
	OpUnformat
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpFormat:
		return "format"
	case OpUnformat:
		return "unformat"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// EditOp локальная операция редактирования. Позиции считаются в видимых рунах.
type EditOp struct {
	Text   string          // Text вставляемый текст (OpInsert)
	Mark   models.MarkType // Mark тип форматирования (OpFormat, OpUnformat)
	Kind   OpKind
	Pos    int
	Length int // Length количество рун (OpDelete, OpFormat, OpUnformat)
}

// Insert вставляет text перед видимой позицией pos.
func Insert(pos int, text string) EditOp {
	return EditOp{Kind: OpInsert, Pos: pos, Text: text}
}

// Delete удаляет n рун начиная с pos.
func Delete(pos, n int) EditOp {
	return EditOp{Kind: OpDelete, Pos: pos, Length: n}
}

// Format применяет отметку к n рунам начиная с pos.
func Format(pos, n int, mark models.MarkType) EditOp {
	return EditOp{Kind: OpFormat, Pos: pos, Length: n, Mark: mark}
}

// Unformat снимает отметку с n рун начиная с pos.
func Unformat(pos, n int, mark models.MarkType) EditOp {
	return EditOp{Kind: OpUnformat, Pos: pos, Length: n, Mark: mark}
}

func (op EditOp) String() string {
	switch op.Kind {
	case OpInsert:
		return fmt.Sprintf("insert(%d, %q)", op.Pos, op.Text)
	case OpFormat, OpUnformat:
		return fmt.Sprintf("%s(%d, %d, %s)", op.Kind, op.Pos, op.Length, op.Mark)
	default:
		return fmt.Sprintf("%s(%d, %d)", op.Kind, op.Pos, op.Length)
	}
}

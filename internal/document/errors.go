package document

import "errors"

var (
	// ErrDecode возвращается, если закодированное состояние или update не удалось разобрать.
	// Состояние движка при этом не меняется.
	ErrDecode = errors.New("failed to decode document state")
	// ErrInvalidEdit возвращается для операции вне границ документа или с неверными параметрами.
	ErrInvalidEdit = errors.New("invalid edit operation")
	// ErrDestroyed возвращается любым вызовом после Destroy.
	ErrDestroyed = errors.New("document engine destroyed")
)

package docview

import "errors"

var (
	// ErrReadOnly возвращается при попытке изменить документ без прав на редактирование.
	ErrReadOnly = errors.New("document is read-only for this role")
	// ErrClosed возвращается любым вызовом после Close.
	ErrClosed = errors.New("document view closed")
	// ErrForeignVersion версия принадлежит другому документу.
	ErrForeignVersion = errors.New("version belongs to another document")
)

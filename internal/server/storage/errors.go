package storage

import "errors"

// Common storage errors
var (
	// ErrRoomNotFound indicates that no snapshot was saved for the room
	ErrRoomNotFound = errors.New("room not found")
)

package storage

import (
	"context"

	"github.com/iudanet/gophboard/internal/models"
)

//go:generate moq -out rooms_mock.go . RoomStorage

// RoomStorage defines interface for relay room snapshots persistence
type RoomStorage interface {
	// SaveRoom creates or replaces the snapshot of a room
	SaveRoom(ctx context.Context, room string, state []byte) error

	// GetRoom retrieves the snapshot of a room
	// Returns ErrRoomNotFound if nothing was saved
	GetRoom(ctx context.Context, room string) (*models.RoomSnapshot, error)

	// ListRooms returns saved rooms ordered by name
	ListRooms(ctx context.Context) ([]models.RoomInfo, error)

	// DeleteRoom removes the snapshot of a room
	// Returns ErrRoomNotFound if nothing was saved
	DeleteRoom(ctx context.Context, room string) error
}

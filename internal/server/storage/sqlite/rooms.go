package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/server/storage"
)

var _ storage.RoomStorage = (*Storage)(nil)

// SaveRoom creates or replaces the snapshot of a room
func (s *Storage) SaveRoom(ctx context.Context, room string, state []byte) error {
	query := `
		INSERT INTO rooms (room, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(room) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, room, state, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save room %s: %w", room, err)
	}
	return nil
}

// GetRoom retrieves the snapshot of a room
func (s *Storage) GetRoom(ctx context.Context, room string) (*models.RoomSnapshot, error) {
	query := `SELECT room, state, updated_at FROM rooms WHERE room = ?`

	var (
		snapshot  models.RoomSnapshot
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, room).Scan(&snapshot.Room, &snapshot.State, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", room, err)
	}

	snapshot.UpdatedAt = time.UnixMilli(updatedAt)
	return &snapshot, nil
}

// ListRooms returns saved rooms ordered by name
func (s *Storage) ListRooms(ctx context.Context) ([]models.RoomInfo, error) {
	query := `SELECT room, length(state), updated_at FROM rooms ORDER BY room`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]models.RoomInfo, 0)
	for rows.Next() {
		var (
			info      models.RoomInfo
			updatedAt int64
		)
		if err := rows.Scan(&info.Room, &info.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updatedAt)
		rooms = append(rooms, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

// DeleteRoom removes the snapshot of a room
func (s *Storage) DeleteRoom(ctx context.Context, room string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room = ?`, room)
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", room, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrRoomNotFound
	}
	return nil
}

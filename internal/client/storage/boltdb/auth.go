package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophboard/internal/client/storage"
)

func authKey(serverURL, userID string) []byte {
	return []byte(serverURL + "|" + userID)
}

// SaveAuth сохраняет (перезаписывает) токен пользователя
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(authKey(auth.ServerURL, auth.UserID), data)
	})
}

// GetAuth возвращает закешированный токен
func (s *Storage) GetAuth(ctx context.Context, serverURL, userID string) (*storage.AuthData, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var auth storage.AuthData
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAuth).Get(authKey(serverURL, userID))
		if data == nil {
			return storage.ErrAuthNotFound
		}
		return json.Unmarshal(data, &auth)
	})
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// DeleteAuth удаляет токен; отсутствие записи не ошибка
func (s *Storage) DeleteAuth(ctx context.Context, serverURL, userID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Delete(authKey(serverURL, userID))
	})
}

var _ storage.AuthStorage = (*Storage)(nil)

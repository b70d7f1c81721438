package boltdb

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/models"
)

// versionRecord - формат хранения версии. Content кодируется в base64
// (стандартное поведение encoding/json для []byte), Checksum - BLAKE2b-256
// от содержимого, проверяется при чтении.
type versionRecord struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	CreatedBy   string `json:"created_by"`
	Checksum    string `json:"checksum"`
	Content     []byte `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	IsAutoSaved bool   `json:"is_auto_saved"`
}

func checksum(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func toRecord(v *models.Version) *versionRecord {
	return &versionRecord{
		ID:          v.ID,
		DocumentID:  v.DocumentID,
		ProjectID:   v.ProjectID,
		Title:       v.Title,
		CreatedBy:   v.CreatedBy,
		Content:     v.Content,
		Checksum:    checksum(v.Content),
		Timestamp:   v.Timestamp,
		IsAutoSaved: v.IsAutoSaved,
	}
}

func fromRecord(data []byte) (*models.Version, error) {
	var rec versionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version: %w", err)
	}
	if checksum(rec.Content) != rec.Checksum {
		return nil, fmt.Errorf("%w: version %s", storage.ErrChecksumMismatch, rec.ID)
	}
	return &models.Version{
		ID:          rec.ID,
		DocumentID:  rec.DocumentID,
		ProjectID:   rec.ProjectID,
		Title:       rec.Title,
		CreatedBy:   rec.CreatedBy,
		Content:     rec.Content,
		Timestamp:   rec.Timestamp,
		IsAutoSaved: rec.IsAutoSaved,
	}, nil
}

// SaveVersion stores a version in the bucket of its document
func (s *Storage) SaveVersion(ctx context.Context, version *models.Version) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	// json.Marshal копирует содержимое: последующие изменения среза вызывающим не видны
	data, err := json.Marshal(toRecord(version))
	if err != nil {
		return fmt.Errorf("failed to marshal version: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketVersions)
		bucket, err := docs.CreateBucketIfNotExists([]byte(version.DocumentID))
		if err != nil {
			return fmt.Errorf("failed to create document bucket: %w", err)
		}

		if err := bucket.Put([]byte(version.ID), data); err != nil {
			return fmt.Errorf("failed to save version: %w", err)
		}
		if err := tx.Bucket(bucketVersionIndex).Put([]byte(version.ID), []byte(version.DocumentID)); err != nil {
			return fmt.Errorf("failed to index version: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetVersion retrieves a version by ID
func (s *Storage) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var version *models.Version
	err := s.db.View(func(tx *bbolt.Tx) error {
		docID := tx.Bucket(bucketVersionIndex).Get([]byte(id))
		if docID == nil {
			return storage.ErrVersionNotFound
		}

		bucket := tx.Bucket(bucketVersions).Bucket(docID)
		if bucket == nil {
			return storage.ErrVersionNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrVersionNotFound
		}

		// данные bbolt валидны только внутри транзакции; Unmarshal их копирует
		v, err := fromRecord(data)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	return version, nil
}

// ListVersions returns versions of the document, most recent first.
// Версии с одинаковым timestamp упорядочены по ID (по убыванию).
func (s *Storage) ListVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	versions := []*models.Version{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVersions).Bucket([]byte(documentID))
		if bucket == nil {
			// Нет bucket - у документа нет версий
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			version, err := fromRecord(v)
			if err != nil {
				return err
			}
			versions = append(versions, version)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	sort.Slice(versions, func(i, j int) bool {
		if versions[i].Timestamp != versions[j].Timestamp {
			return versions[i].Timestamp > versions[j].Timestamp
		}
		return versions[i].ID > versions[j].ID
	})

	return versions, nil
}

// DeleteVersion removes a version
func (s *Storage) DeleteVersion(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketVersionIndex)
		docID := index.Get([]byte(id))
		if docID == nil {
			return storage.ErrVersionNotFound
		}
		docID = bytes.Clone(docID)

		if bucket := tx.Bucket(bucketVersions).Bucket(docID); bucket != nil {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete version: %w", err)
			}
		}
		return index.Delete([]byte(id))
	})
	if err != nil {
		if errors.Is(err, storage.ErrVersionNotFound) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ClearVersions removes all versions of the document
func (s *Storage) ClearVersions(ctx context.Context, documentID string) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketVersions)
		bucket := docs.Bucket([]byte(documentID))
		if bucket == nil {
			return nil
		}

		index := tx.Bucket(bucketVersionIndex)
		var ids [][]byte
		if err := bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, bytes.Clone(k))
			return nil
		}); err != nil {
			return err
		}
		for _, id := range ids {
			if err := index.Delete(id); err != nil {
				return fmt.Errorf("failed to remove index entry: %w", err)
			}
		}
		removed = len(ids)

		return docs.DeleteBucket([]byte(documentID))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear versions: %w", err)
	}

	return removed, nil
}

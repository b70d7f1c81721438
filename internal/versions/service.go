// Package versions управляет снимками документа: ручное и автоматическое
// сохранение версий, список, удаление и очистка истории.
package versions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophboard/internal/client/storage"
	"github.com/iudanet/gophboard/internal/models"
)

const (
	TitleAutoSave   = "Auto-save"
	TitleManualSave = "Manual save"
)

// Service - Snapshot/Version Store поверх storage.VersionStorage.
type Service struct {
	storage storage.VersionStorage
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption настраивает Service.
type ServiceOption func(*Service)

// WithNow подменяет источник времени (для тестов).
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new version service
func NewService(st storage.VersionStorage, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		storage: st,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddVersion сохраняет новую неизменяемую версию. Содержимое копируется.
func (s *Service) AddVersion(ctx context.Context, nv models.NewVersion) (*models.Version, error) {
	if nv.DocumentID == "" {
		return nil, errors.New("document id is required")
	}

	title := nv.Title
	if title == "" {
		title = TitleManualSave
		if nv.IsAutoSaved {
			title = TitleAutoSave
		}
	}

	version := &models.Version{
		ID:          uuid.New().String(),
		DocumentID:  nv.DocumentID,
		ProjectID:   nv.ProjectID,
		Title:       title,
		CreatedBy:   nv.CreatedBy,
		Content:     append([]byte(nil), nv.Content...),
		Timestamp:   s.now().UnixMilli(),
		IsAutoSaved: nv.IsAutoSaved,
	}

	if err := s.storage.SaveVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to save version: %w", err)
	}

	s.logger.Info("Version saved",
		"version_id", version.ID,
		"document_id", version.DocumentID,
		"auto", version.IsAutoSaved,
		"size", len(version.Content),
	)
	return version.Clone(), nil
}

// GetVersions возвращает версии документа, самые новые первыми.
func (s *Service) GetVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	versions, err := s.storage.ListVersions(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get versions: %w", err)
	}
	return versions, nil
}

// GetVersion возвращает версию по ID.
func (s *Service) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	version, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get version %s: %w", id, err)
	}
	return version, nil
}

// DeleteVersion удаляет версию. Удаление несуществующей версии - no-op (логируется).
func (s *Service) DeleteVersion(ctx context.Context, id string) error {
	err := s.storage.DeleteVersion(ctx, id)
	if errors.Is(err, storage.ErrVersionNotFound) {
		s.logger.Info("Version to delete not found", "version_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	s.logger.Info("Version deleted", "version_id", id)
	return nil
}

// ClearVersions удаляет все версии документа.
func (s *Service) ClearVersions(ctx context.Context, documentID string) error {
	removed, err := s.storage.ClearVersions(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to clear versions: %w", err)
	}

	s.logger.Info("Versions cleared", "document_id", documentID, "removed", removed)
	return nil
}

// RelativeTime форматирует возраст версии: "Just now", "5m ago", "3h ago", "2d ago".
func RelativeTime(timestamp int64, now time.Time) string {
	diff := now.Sub(time.UnixMilli(timestamp))
	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", days)
	}
}

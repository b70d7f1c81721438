package storage

import (
	"context"

	"github.com/iudanet/gophboard/internal/models"
)

//go:generate moq -out versions_mock.go . VersionStorage

// VersionStorage defines interface for storing document versions on client
type VersionStorage interface {
	// SaveVersion stores a new version
	SaveVersion(ctx context.Context, version *models.Version) error

	// GetVersion retrieves a version by ID
	// Returns ErrVersionNotFound if version doesn't exist
	GetVersion(ctx context.Context, id string) (*models.Version, error)

	// ListVersions returns versions of the document, most recent first
	ListVersions(ctx context.Context, documentID string) ([]*models.Version, error)

	// DeleteVersion removes a version
	// Returns ErrVersionNotFound if version doesn't exist
	DeleteVersion(ctx context.Context, id string) error

	// ClearVersions removes all versions of the document and returns their count
	ClearVersions(ctx context.Context, documentID string) (int, error)
}

// Package media provides persistence for media rows, with Postgres and
// in-memory implementations.
package media

import (
	"context"

	"github.com/pairwave/mediaflow/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Media) error
	GetByID(ctx context.Context, id string) (*models.Media, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Media, error)

	// UpdateStatus moves the row to status, recording the error message for
	// failures and the etag once known.
	UpdateStatus(ctx context.Context, id string, status models.MediaStatus, etag, errorMessage string) error

	DeleteByID(ctx context.Context, id string) error
}

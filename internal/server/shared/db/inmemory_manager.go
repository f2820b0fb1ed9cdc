package db

import (
	"context"
	"database/sql"

	"github.com/pairwave/mediaflow/internal/server/repositories/media"
)

// InMemoryRepositoryManager backs the dev server when no DSN is configured.
type InMemoryRepositoryManager struct {
	media media.Repository
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{media: media.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Conn() *sql.DB { return nil }

func (m *InMemoryRepositoryManager) Media() media.Repository { return m.media }

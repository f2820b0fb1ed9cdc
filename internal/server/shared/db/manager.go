// Package db selects and wires the storage backend for the dev server.
package db

import (
	"context"
	"database/sql"

	"github.com/pairwave/mediaflow/internal/server/repositories/media"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Media() media.Repository
}

package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/dbx"
	"github.com/pairwave/mediaflow/internal/server/models"
)

// PostgresRepository implements media storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) error {
	query := `
		INSERT INTO media (id, owner_id, mime_type, size_bytes, metadata, position, storage_key, status, estimated_processing_secs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.OwnerID, m.MimeType, m.Size, m.Metadata, m.Position, m.StorageKey, m.Status, m.EstimatedProcessingSecs)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `
		SELECT id, owner_id, mime_type, size_bytes, metadata, position, storage_key, status,
		       coalesce(etag, ''), coalesce(error_message, ''), estimated_processing_secs, created_at, updated_at
		FROM media WHERE id=$1
	`
	var m models.Media
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.OwnerID, &m.MimeType, &m.Size, &m.Metadata, &m.Position, &m.StorageKey, &m.Status,
		&m.ETag, &m.ErrorMessage, &m.EstimatedProcessingSecs, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &m, nil
}

func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM media WHERE owner_id=$1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Media, error) {
	query := `
		SELECT id, owner_id, mime_type, size_bytes, metadata, position, storage_key, status,
		       coalesce(etag, ''), coalesce(error_message, ''), estimated_processing_secs, created_at, updated_at
		FROM media WHERE owner_id=$1 ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	defer rows.Close()

	var result []*models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.MimeType, &m.Size, &m.Metadata, &m.Position, &m.StorageKey,
			&m.Status, &m.ETag, &m.ErrorMessage, &m.EstimatedProcessingSecs, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.MediaStatus, etag, errorMessage string) error {
	query := `
		UPDATE media SET status=$2, etag=nullif($3, ''), error_message=nullif($4, ''), updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, etag, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

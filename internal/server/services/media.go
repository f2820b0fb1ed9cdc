// Package services implements the backend media lifecycle: grant
// negotiation, completion verification, simulated processing, status and
// deletion.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/logging"
	sc "github.com/pairwave/mediaflow/internal/server/config"
	"github.com/pairwave/mediaflow/internal/server/models"
	"github.com/pairwave/mediaflow/internal/server/presign"
	"github.com/pairwave/mediaflow/internal/server/repositories/media"
)

// NegotiationResult is the grant issued for one media upload.
type NegotiationResult struct {
	MediaID string
	Grant   *presign.Grant
}

// CompletionAck acknowledges a finished transfer.
type CompletionAck struct {
	MediaID                 string
	Status                  models.MediaStatus
	EstimatedProcessingSecs int64
}

type MediaService struct {
	repo      media.Repository
	presigner presign.Presigner
	config    *sc.Config
	log       logging.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewMediaService(repo media.Repository, presigner presign.Presigner, config *sc.Config, log logging.Logger) *MediaService {
	return &MediaService{
		repo:      repo,
		presigner: presigner,
		config:    config,
		log:       log,
		timers:    make(map[string]*time.Timer),
	}
}

// storageKey derives a date-partitioned object key for a new media item.
func storageKey(ownerID string) string {
	d := time.Now()
	return fmt.Sprintf("media/%s/%d/%d/%d/%v", ownerID, d.Year(), d.Month(), d.Day(), uuid.New())
}

// Negotiate validates the request against the size and cardinality limits
// and issues a single-use upload grant.
func (s *MediaService) Negotiate(ctx context.Context, ownerID, mimeType string, size int64, metadata []byte, position int) (*NegotiationResult, error) {
	if size <= 0 || size > s.config.MaxMediaSize {
		return nil, common.ErrMediaTooLarge
	}

	count, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("counting media: %w", err)
	}
	if count >= s.config.MaxMediaPerOwner {
		return nil, common.ErrMediaQuotaFull
	}

	key := storageKey(ownerID)
	grant, err := s.presigner.PresignPut(ctx, key, mimeType)
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}

	m := &models.Media{
		ID:                      uuid.NewString(),
		OwnerID:                 ownerID,
		MimeType:                mimeType,
		Size:                    size,
		Metadata:                metadata,
		Position:                position,
		StorageKey:              key,
		Status:                  models.MediaStatusPending,
		EstimatedProcessingSecs: int64(s.config.ProcessingDuration.Seconds()),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("creating media row: %w", err)
	}

	s.log.Info(ctx, "upload negotiated", "media_id", m.ID, "owner_id", ownerID, "size", size)

	return &NegotiationResult{MediaID: m.ID, Grant: grant}, nil
}

// Complete verifies the reported transfer against the negotiated request
// and, when it checks out, moves the row to processing and arms the
// processing worker.
func (s *MediaService) Complete(ctx context.Context, ownerID, mediaID string, success bool, etag string, actualSize int64) (*CompletionAck, error) {
	m, err := s.getOwned(ctx, ownerID, mediaID)
	if err != nil {
		return nil, err
	}

	if m.Status != models.MediaStatusPending {
		// Duplicate completion notice; report the current state.
		return &CompletionAck{MediaID: m.ID, Status: m.Status, EstimatedProcessingSecs: m.EstimatedProcessingSecs}, nil
	}

	if !success {
		if err := s.repo.UpdateStatus(ctx, mediaID, models.MediaStatusFailed, "", "client reported transfer failure"); err != nil {
			return nil, err
		}
		return &CompletionAck{MediaID: m.ID, Status: models.MediaStatusFailed}, nil
	}

	if actualSize != m.Size {
		return nil, common.ErrSizeMismatch
	}

	if err := s.repo.UpdateStatus(ctx, mediaID, models.MediaStatusProcessing, etag, ""); err != nil {
		return nil, err
	}

	s.armProcessing(mediaID)

	return &CompletionAck{
		MediaID:                 m.ID,
		Status:                  models.MediaStatusProcessing,
		EstimatedProcessingSecs: m.EstimatedProcessingSecs,
	}, nil
}

// armProcessing simulates the asynchronous media pipeline: after the
// configured duration the row lands in completed.
func (s *MediaService) armProcessing(mediaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[mediaID] = time.AfterFunc(s.config.ProcessingDuration, func() {
		ctx := context.Background()

		s.mu.Lock()
		delete(s.timers, mediaID)
		s.mu.Unlock()

		if err := s.repo.UpdateStatus(ctx, mediaID, models.MediaStatusCompleted, "", ""); err != nil {
			s.log.Warn(ctx, "finishing processing", "media_id", mediaID, "err", err)
			return
		}
		s.log.Info(ctx, "processing finished", "media_id", mediaID)
	})
}

// Status returns the current row for a status query.
func (s *MediaService) Status(ctx context.Context, ownerID, mediaID string) (*models.Media, error) {
	return s.getOwned(ctx, ownerID, mediaID)
}

// Delete removes the media row from any state and cancels a pending
// processing worker.
func (s *MediaService) Delete(ctx context.Context, ownerID, mediaID string) error {
	if _, err := s.getOwned(ctx, ownerID, mediaID); err != nil {
		return err
	}

	s.mu.Lock()
	if timer, ok := s.timers[mediaID]; ok {
		timer.Stop()
		delete(s.timers, mediaID)
	}
	s.mu.Unlock()

	return s.repo.DeleteByID(ctx, mediaID)
}

// List returns the owner's media ordered by position.
func (s *MediaService) List(ctx context.Context, ownerID string) ([]*models.Media, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// getOwned fetches the row and hides other owners' media behind not-found.
func (s *MediaService) getOwned(ctx context.Context, ownerID, mediaID string) (*models.Media, error) {
	m, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return m, nil
}

// Close cancels all armed processing workers.
func (s *MediaService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

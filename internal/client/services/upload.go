// Package services wires the upload pipeline together: negotiation with the
// backend, the byte transfer to the storage provider, and the processing
// watch. One UploadService instance owns one session's state; nothing is
// global.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/pairwave/mediaflow/internal/client/api"
	"github.com/pairwave/mediaflow/internal/client/config"
	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/client/tracker"
	"github.com/pairwave/mediaflow/internal/client/transfer"
	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/logging"
)

type UploadService interface {
	// Upload runs the full pipeline for one piece of media and returns the
	// backend-assigned media identifier. The returned record (via Status)
	// continues to advance asynchronously while processing.
	Upload(ctx context.Context, ownerID string, req models.MediaUploadRequest, payload []byte) (string, error)

	// Status returns the current record snapshot for mediaID.
	Status(mediaID string) (models.UploadRecord, error)

	// Active returns all in-flight records.
	Active() []models.UploadRecord

	// ByStage returns all records currently in the given stage.
	ByStage(stage models.Stage) []models.UploadRecord

	// Delete cancels the upload from any stage and requests backend deletion.
	Delete(ctx context.Context, mediaID string) error

	// Hydrate seeds the session's records from the backend listing.
	Hydrate(ctx context.Context, ownerID string) error

	// Close cancels all scheduled background work.
	Close()
}

type uploadService struct {
	api      api.Client
	executor *transfer.Executor
	tracker  *tracker.Tracker
	config   *config.Config
	log      logging.Logger
}

func NewUploadService(apiClient api.Client, cfg *config.Config, log logging.Logger) UploadService {
	return &uploadService{
		api:      apiClient,
		executor: transfer.NewExecutor(cfg.RequestTimeout),
		tracker:  tracker.NewTracker(apiClient, cfg, log),
		config:   cfg,
		log:      log,
	}
}

// negotiate asks the backend for an upload grant, retrying per the
// configured policy. Auth expiry always aborts immediately; the retry knob
// exists so callers can choose queue-and-retry over fail-fast explicitly.
func (s *uploadService) negotiate(ctx context.Context, ownerID string, req models.MediaUploadRequest) (*models.UploadGrant, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.NegotiationRetries; attempt++ {
		grant, err := s.api.RequestUpload(ctx, ownerID, req)
		if err == nil {
			return grant, nil
		}
		lastErr = err

		if errors.Is(err, common.ErrAuthExpired) {
			return nil, err
		}
		if attempt < s.config.NegotiationRetries {
			s.log.Warn(ctx, "negotiation failed, retrying",
				"owner_id", ownerID, "attempt", attempt+1, "err", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.PollInterval):
			}
		}
	}
	return nil, lastErr
}

func (s *uploadService) Upload(ctx context.Context, ownerID string, req models.MediaUploadRequest, payload []byte) (string, error) {
	grant, err := s.negotiate(ctx, ownerID, req)
	if err != nil {
		// No record exists for a failed negotiation.
		return "", err
	}

	if _, err := s.tracker.Create(ownerID, grant.MediaID, req); err != nil {
		return "", err
	}

	if err := s.tracker.MarkTransferring(grant.MediaID); err != nil {
		return grant.MediaID, err
	}

	outcome, err := s.executor.Execute(ctx, grant, payload)
	if err != nil {
		_ = s.tracker.MarkFailed(grant.MediaID, err.Error())
		return grant.MediaID, err
	}

	s.log.Info(ctx, "transfer finished",
		"media_id", grant.MediaID, "etag", outcome.ETag, "size", outcome.Size)

	if err := s.tracker.CompleteUpload(ctx, ownerID, grant.MediaID, *outcome); err != nil {
		return grant.MediaID, err
	}

	return grant.MediaID, nil
}

func (s *uploadService) Status(mediaID string) (models.UploadRecord, error) {
	return s.tracker.GetStatus(mediaID)
}

func (s *uploadService) Active() []models.UploadRecord {
	return s.tracker.ListActive()
}

func (s *uploadService) ByStage(stage models.Stage) []models.UploadRecord {
	return s.tracker.ListByStage(stage)
}

func (s *uploadService) Delete(ctx context.Context, mediaID string) error {
	return s.tracker.Delete(ctx, mediaID)
}

func (s *uploadService) Hydrate(ctx context.Context, ownerID string) error {
	return s.tracker.Hydrate(ctx, ownerID)
}

func (s *uploadService) Close() {
	s.tracker.Close()
}

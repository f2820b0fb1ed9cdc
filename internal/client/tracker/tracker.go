// Package tracker owns the client-side view of the upload lifecycle: a map
// of upload records keyed by media identifier, the per-record state machine,
// and the processing watch that polls the backend until a terminal state or
// the attempt budget runs out.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pairwave/mediaflow/internal/client/api"
	"github.com/pairwave/mediaflow/internal/client/config"
	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/logging"
)

// Tracker maintains upload records for one client session. The record map
// is the only shared mutable state; every mutation happens under mu so
// status inspection is always consistent. Each record in processing has at
// most one scheduled poll timer; deleting the record cancels the timer, so
// no poll can fire after a delete.
type Tracker struct {
	api    api.Client
	log    logging.Logger
	config *config.Config

	mu      sync.Mutex
	records map[string]*models.UploadRecord
	timers  map[string]*time.Timer

	now func() time.Time
}

func NewTracker(apiClient api.Client, cfg *config.Config, log logging.Logger) *Tracker {
	return &Tracker{
		api:     apiClient,
		log:     log,
		config:  cfg,
		records: make(map[string]*models.UploadRecord),
		timers:  make(map[string]*time.Timer),
		now:     time.Now,
	}
}

// Create seeds a record in stage pending. Called only after negotiation
// succeeds; a failed negotiation never creates a record.
func (t *Tracker) Create(ownerID, mediaID string, req models.MediaUploadRequest) (models.UploadRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[mediaID]; ok {
		return models.UploadRecord{}, fmt.Errorf("record %s already exists", mediaID)
	}

	now := t.now()
	rec := &models.UploadRecord{
		MediaID:   mediaID,
		OwnerID:   ownerID,
		Request:   req,
		Stage:     models.StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.records[mediaID] = rec
	return *rec, nil
}

// advance moves the record forward. Backward or out-of-terminal moves are
// rejected; the state machine is monotonic per identifier.
func (t *Tracker) advance(rec *models.UploadRecord, next models.Stage) error {
	if !rec.Stage.CanTransition(next) {
		return fmt.Errorf("invalid transition %s -> %s for %s", rec.Stage, next, rec.MediaID)
	}
	rec.Stage = next
	rec.UpdatedAt = t.now()
	return nil
}

// MarkTransferring records that the executor took over the grant.
func (t *Tracker) MarkTransferring(mediaID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[mediaID]
	if !ok {
		return common.ErrorNotFound
	}
	return t.advance(rec, models.StageTransferring)
}

// MarkFailed lands the record in the failed terminal stage with a
// human-readable reason threaded through from the origin error.
func (t *Tracker) MarkFailed(mediaID, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[mediaID]
	if !ok {
		return common.ErrorNotFound
	}
	if err := t.advance(rec, models.StageFailed); err != nil {
		return err
	}
	rec.FailureReason = reason
	return nil
}

// CompleteUpload notifies the backend that the transfer finished and starts
// the processing watch. A rejected completion lands the record in failed
// and surfaces the *models.CompletionError to the caller.
func (t *Tracker) CompleteUpload(ctx context.Context, ownerID, mediaID string, outcome models.TransferOutcome) error {
	t.mu.Lock()
	rec, ok := t.records[mediaID]
	if !ok {
		t.mu.Unlock()
		return common.ErrorNotFound
	}
	if err := t.advance(rec, models.StageCompleting); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	res, err := t.api.CompleteUpload(ctx, mediaID, outcome)
	if err != nil {
		_ = t.MarkFailed(mediaID, err.Error())
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok = t.records[mediaID]
	if !ok {
		// Deleted while the completion call was in flight.
		return common.ErrorNotFound
	}

	switch res.Status {
	case models.StageCompleted:
		return t.advance(rec, models.StageCompleted)
	case models.StageFailed:
		if err := t.advance(rec, models.StageFailed); err != nil {
			return err
		}
		rec.FailureReason = "backend reported processing failure"
		return nil
	default:
		if err := t.advance(rec, models.StageProcessing); err != nil {
			return err
		}
		rec.EstimatedProcessing = res.EstimatedProcessing
		t.schedulePollLocked(mediaID)
		return nil
	}
}

// schedulePollLocked arms the poll timer for mediaID. Caller holds mu.
// A single timer per record guarantees no two concurrent polls for the same
// identifier.
func (t *Tracker) schedulePollLocked(mediaID string) {
	t.timers[mediaID] = time.AfterFunc(t.config.PollInterval, func() {
		t.poll(mediaID)
	})
}

// poll performs one status query. Transient failures count toward the
// attempt budget and the watch continues; exhausting the budget moves the
// record to timed_out without another backend call.
func (t *Tracker) poll(mediaID string) {
	t.mu.Lock()
	rec, ok := t.records[mediaID]
	if !ok || rec.Stage != models.StageProcessing {
		delete(t.timers, mediaID)
		t.mu.Unlock()
		return
	}
	if rec.PollAttempts >= t.config.MaxPollAttempts {
		_ = t.advance(rec, models.StageTimedOut)
		delete(t.timers, mediaID)
		t.mu.Unlock()
		return
	}
	rec.PollAttempts++
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.config.RequestTimeout)
	res, err := t.api.GetStatus(ctx, mediaID)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok = t.records[mediaID]
	if !ok || rec.Stage != models.StageProcessing {
		// Deleted (or otherwise finished) while the query was in flight.
		delete(t.timers, mediaID)
		return
	}

	if err != nil {
		t.log.Warn(context.Background(), "status poll failed",
			"media_id", mediaID, "attempt", rec.PollAttempts, "err", err)
		t.schedulePollLocked(mediaID)
		return
	}

	rec.LastStatus = res.Payload
	rec.LastObservedAt = t.now()

	switch res.Status {
	case models.StageCompleted:
		_ = t.advance(rec, models.StageCompleted)
		delete(t.timers, mediaID)
	case models.StageFailed:
		_ = t.advance(rec, models.StageFailed)
		rec.FailureReason = res.Error
		delete(t.timers, mediaID)
	default:
		t.schedulePollLocked(mediaID)
	}
}

// GetStatus returns a snapshot of the record. Apart from bumping the
// last-observed timestamp it never mutates state.
func (t *Tracker) GetStatus(mediaID string) (models.UploadRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[mediaID]
	if !ok {
		return models.UploadRecord{}, common.ErrorNotFound
	}
	rec.LastObservedAt = t.now()
	return *rec, nil
}

// ListActive returns snapshots of all records not yet in a terminal stage.
func (t *Tracker) ListActive() []models.UploadRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []models.UploadRecord
	for _, rec := range t.records {
		if !rec.Stage.Terminal() {
			out = append(out, *rec)
		}
	}
	return out
}

// ListByStage returns snapshots of all records currently in stage.
func (t *Tracker) ListByStage(stage models.Stage) []models.UploadRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []models.UploadRecord
	for _, rec := range t.records {
		if rec.Stage == stage {
			out = append(out, *rec)
		}
	}
	return out
}

// Delete removes the record regardless of stage, cancels any scheduled
// poll, and requests backend deletion. It is an out-of-band cancellation
// signal, not a state-machine transition.
func (t *Tracker) Delete(ctx context.Context, mediaID string) error {
	t.mu.Lock()
	_, ok := t.records[mediaID]
	if !ok {
		t.mu.Unlock()
		return common.ErrorNotFound
	}
	if timer, ok := t.timers[mediaID]; ok {
		timer.Stop()
		delete(t.timers, mediaID)
	}
	delete(t.records, mediaID)
	t.mu.Unlock()

	if err := t.api.Delete(ctx, mediaID); err != nil {
		return fmt.Errorf("backend deletion: %w", err)
	}
	return nil
}

// Hydrate seeds the record map from the server-authoritative media listing.
// Client-local state does not survive a fresh session, so this runs once at
// session start. Items still processing resume their watch.
func (t *Tracker) Hydrate(ctx context.Context, ownerID string) error {
	items, err := t.api.List(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("hydrating records: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, item := range items {
		if _, ok := t.records[item.MediaID]; ok {
			continue
		}
		rec := &models.UploadRecord{
			MediaID: item.MediaID,
			OwnerID: ownerID,
			Request: models.MediaUploadRequest{
				MimeType: item.MimeType,
				Size:     item.Size,
				Position: item.Position,
			},
			Stage:          item.Status,
			CreatedAt:      now,
			UpdatedAt:      now,
			LastObservedAt: now,
		}
		t.records[item.MediaID] = rec
		if rec.Stage == models.StageProcessing {
			t.schedulePollLocked(item.MediaID)
		}
	}
	return nil
}

// Close cancels all scheduled polls. Records remain inspectable.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

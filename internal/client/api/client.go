// Package api implements the HTTP client for the media backend contract:
// upload negotiation, completion notices, status queries, deletion and
// owner listings. Authentication is a bearer credential supplied by an
// external collaborator via TokenProvider.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pairwave/mediaflow/internal/client/models"
)

// TokenProvider supplies the bearer credential for backend calls. Token
// issuance and refresh are the auth collaborator's job; the api client only
// consumes the value.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed credential.
type StaticToken string

func (s StaticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// CompletionResult is the backend's acknowledgement of a finished transfer.
type CompletionResult struct {
	MediaID             string
	Status              models.Stage
	EstimatedProcessing time.Duration
}

// StatusResult is one observation of the backend's processing state.
// Payload preserves the raw response body for diagnostics.
type StatusResult struct {
	Status  models.Stage
	Error   string
	Payload json.RawMessage
}

// MediaItem is one entry of an owner's media listing, used to hydrate the
// client-side record map from server-authoritative truth on session start.
type MediaItem struct {
	MediaID  string
	Position int
	MimeType string
	Size     int64
	Status   models.Stage
}

// Client is the backend media API consumed by the upload pipeline.
type Client interface {
	// RequestUpload negotiates a write location for one piece of media.
	// On rejection it returns a *models.NegotiationError; size rejections
	// additionally match common.ErrMediaTooLarge via errors.Is.
	RequestUpload(ctx context.Context, ownerID string, req models.MediaUploadRequest) (*models.UploadGrant, error)

	// CompleteUpload tells the backend the transfer finished and returns
	// the initial processing acknowledgement.
	CompleteUpload(ctx context.Context, mediaID string, outcome models.TransferOutcome) (*CompletionResult, error)

	// GetStatus queries the asynchronous processing state of mediaID.
	// Failures are returned as *models.PollError so the watcher can count
	// them against its budget instead of aborting.
	GetStatus(ctx context.Context, mediaID string) (*StatusResult, error)

	// Delete removes the media item on the backend.
	Delete(ctx context.Context, mediaID string) error

	// List returns the owner's existing media items.
	List(ctx context.Context, ownerID string) ([]MediaItem, error)
}

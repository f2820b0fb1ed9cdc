// Package models defines the data shapes of the upload lifecycle: the
// negotiation request, the single-use upload grant, the transfer outcome and
// the per-media upload record tracked for the duration of a session.
package models

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Stage is a named point in the per-media lifecycle state machine.
type Stage string

const (
	StagePending      Stage = "pending"
	StageTransferring Stage = "transferring"
	StageCompleting   Stage = "completing"
	StageProcessing   Stage = "processing"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
	StageTimedOut     Stage = "timed_out"
)

// stageRank orders stages so transitions can be checked for monotonicity.
// Terminal stages share the highest rank; there is no ordering between them.
var stageRank = map[Stage]int{
	StagePending:      0,
	StageTransferring: 1,
	StageCompleting:   2,
	StageProcessing:   3,
	StageCompleted:    4,
	StageFailed:       4,
	StageTimedOut:     4,
}

// CanTransition reports whether moving from s to next is a forward move.
// Terminal stages admit no further transitions.
func (s Stage) CanTransition(next Stage) bool {
	if s.Terminal() {
		return false
	}
	return stageRank[next] > stageRank[s]
}

// Terminal reports whether the stage admits no further transitions.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageTimedOut
}

// MediaUploadRequest describes the media to be uploaded. Metadata is an
// opaque payload forwarded to the backend without interpretation, so the
// same pipeline serves images, video and whatever comes next. Immutable
// once submitted.
type MediaUploadRequest struct {
	MimeType string          `json:"mediaType"`
	Size     int64           `json:"mediaSize"`
	Metadata json.RawMessage `json:"mediaMetadata,omitempty"`
	Position int             `json:"position"`
}

// UploadGrant is a time-boxed, single-use authorization to write one object
// to storage. Method, Headers and Fields must be used exactly as issued;
// the provider's signature validation depends on field-exactness.
type UploadGrant struct {
	MediaID   string
	URL       string
	Method    string
	Headers   map[string]string
	Fields    map[string]string
	ExpiresAt time.Time

	consumed atomic.Bool
}

// Expired reports whether the grant is past its expiry at time now.
func (g *UploadGrant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Consume marks the grant as used by a successful transfer. It returns
// false if the grant was already consumed.
func (g *UploadGrant) Consume() bool {
	return g.consumed.CompareAndSwap(false, true)
}

// Consumed reports whether a successful transfer already used this grant.
func (g *UploadGrant) Consumed() bool {
	return g.consumed.Load()
}

// TransferOutcome is the result of executing a grant against the storage
// provider. ETag is the provider's integrity token; it is opaque here and
// only meaningful to the backend for verification.
type TransferOutcome struct {
	Success bool
	ETag    string
	Size    int64
}

// UploadRecord tracks one media identifier through its lifecycle. Records
// live for the client session (or until explicitly deleted) and are owned
// by the tracker; callers receive copies.
type UploadRecord struct {
	MediaID string
	OwnerID string
	Request MediaUploadRequest
	Stage   Stage

	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastObservedAt time.Time

	// EstimatedProcessing is the backend's estimate for the async
	// processing step, zero when unknown.
	EstimatedProcessing time.Duration

	// PollAttempts counts status queries issued (including transient
	// failures) since the record entered processing.
	PollAttempts int

	// LastStatus is the most recent server status payload, verbatim.
	LastStatus json.RawMessage

	// FailureReason is a human-readable reason threaded through from the
	// origin backend error when the record lands in a failed stage.
	FailureReason string
}

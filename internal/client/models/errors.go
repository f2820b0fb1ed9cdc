package models

import "fmt"

// NegotiationError means the backend rejected the upload request (size,
// quota, auth). No record is created; the caller must not proceed to
// transfer.
type NegotiationError struct {
	Reason string
	Err    error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation rejected: %s", e.Reason)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// TransferError means the storage-provider write failed or the grant was
// invalid, expired or already consumed. Grants are single-use, so the
// caller must re-negotiate rather than retry.
type TransferError struct {
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed: %s", e.Reason)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CompletionError means the backend rejected the completion notice, e.g. a
// mismatch between declared and actual size or integrity token.
type CompletionError struct {
	Reason string
	Err    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion rejected: %s", e.Reason)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// PollError is a transient status-query failure. It never aborts the watch;
// it is counted against the attempt budget and retried at the next interval.
type PollError struct {
	Reason string
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("status poll failed: %s", e.Reason)
}

func (e *PollError) Unwrap() error { return e.Err }

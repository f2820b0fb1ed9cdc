// Package common defines shared constants and sentinel errors used across
// client and server layers of MediaFlow. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// ErrAuthExpired marks a 401-class response from the backend. The
	// current operation is aborted without retry; obtaining a fresh
	// credential is the auth collaborator's job.
	ErrAuthExpired = errors.New("auth expired")

	// Negotiation rejection reasons the backend reports distinctly.
	ErrMediaTooLarge  = errors.New("media size exceeds maximum")
	ErrMediaQuotaFull = errors.New("media slots exhausted")

	// Grant lifecycle errors.
	ErrGrantExpired  = errors.New("upload grant expired")
	ErrGrantConsumed = errors.New("upload grant already consumed")

	// ErrSizeMismatch is returned when the completed transfer does not
	// match the negotiated byte size.
	ErrSizeMismatch = errors.New("declared and actual size differ")
)

// Package presign issues time-boxed write authorizations against the object
// storage provider.
package presign

import (
	"context"
	"time"
)

// Grant is the signed write location handed back to clients. Headers must
// be sent exactly as issued; the provider's signature covers them.
type Grant struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// Presigner signs a single-object write for the given storage key.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (*Grant, error)
}

// Package models holds the server-side persistence shapes.
package models

import (
	"encoding/json"
	"time"
)

// MediaStatus is the server-authoritative lifecycle status of a media item.
type MediaStatus string

const (
	MediaStatusPending    MediaStatus = "pending"
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusCompleted  MediaStatus = "completed"
	MediaStatusFailed     MediaStatus = "failed"
)

// Media is one row of the media table. Metadata is stored verbatim; the
// server never interprets it.
type Media struct {
	ID                      string
	OwnerID                 string
	MimeType                string
	Size                    int64
	Metadata                json.RawMessage
	Position                int
	StorageKey              string
	Status                  MediaStatus
	ETag                    string
	ErrorMessage            string
	EstimatedProcessingSecs int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

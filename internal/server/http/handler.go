// Package http exposes the media lifecycle over the JSON API consumed by
// clients.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/logging"
	"github.com/pairwave/mediaflow/internal/server/auth"
	sc "github.com/pairwave/mediaflow/internal/server/config"
	"github.com/pairwave/mediaflow/internal/server/models"
	"github.com/pairwave/mediaflow/internal/server/services"
)

type ctxKey int

const ownerKey ctxKey = 0

type Handler struct {
	media  *services.MediaService
	config *sc.Config
	log    logging.Logger
}

func NewHandler(media *services.MediaService, config *sc.Config, log logging.Logger) *Handler {
	return &Handler{media: media, config: config, log: log}
}

// Router assembles the API. /auth/token is a dev convenience; everything
// under /media requires a bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/token", h.issueToken)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/media", h.negotiate)
		r.Get("/media", h.list)
		r.Post("/media/{mediaID}/complete", h.complete)
		r.Get("/media/{mediaID}/status", h.status)
		r.Delete("/media/{mediaID}", h.remove)
	})

	return r
}

type errorBody struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, errorBody{Reason: reason, Message: message})
}

// writeServiceError maps sentinel errors to the wire contract.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrMediaTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "size_exceeded", err.Error())
	case errors.Is(err, common.ErrMediaQuotaFull):
		writeError(w, http.StatusConflict, "quota_full", err.Error())
	case errors.Is(err, common.ErrSizeMismatch):
		writeError(w, http.StatusUnprocessableEntity, "size_mismatch", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found", "media not found")
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		ownerID, err := auth.GetOwnerIDFromToken(strings.TrimPrefix(header, common.BearerPrefix), []byte(h.config.SecretKey))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, ownerID)))
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}

type tokenRequest struct {
	Owner string `json:"owner"`
}

// issueToken hands out a dev bearer token for the given owner. There is no
// password; real identity lives in the external auth collaborator.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var body tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Owner == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "owner is required")
		return
	}

	token, err := auth.GenerateToken(body.Owner, []byte(h.config.SecretKey), h.config.AccessTokenValidityDuration)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type negotiateBody struct {
	MimeType string          `json:"mediaType"`
	Size     int64           `json:"mediaSize"`
	Metadata json.RawMessage `json:"mediaMetadata"`
	Position int             `json:"position"`
}

func (h *Handler) negotiate(w http.ResponseWriter, r *http.Request) {
	var body negotiateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	res, err := h.media.Negotiate(r.Context(), ownerFrom(r), body.MimeType, body.Size, body.Metadata, body.Position)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId":       res.MediaID,
		"uploadUrl":     res.Grant.URL,
		"uploadMethod":  res.Grant.Method,
		"uploadHeaders": res.Grant.Headers,
		"expiresAt":     res.Grant.ExpiresAt.Format(time.RFC3339),
	})
}

type completeBody struct {
	UploadSuccess  bool   `json:"uploadSuccess"`
	IntegrityToken string `json:"integrityToken"`
	ActualSize     int64  `json:"actualSize"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var body completeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	ack, err := h.media.Complete(r.Context(), ownerFrom(r), chi.URLParam(r, "mediaID"),
		body.UploadSuccess, body.IntegrityToken, body.ActualSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId":                 ack.MediaID,
		"status":                  ack.Status,
		"estimatedProcessingTime": ack.EstimatedProcessingSecs,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.Status(r.Context(), ownerFrom(r), chi.URLParam(r, "mediaID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body := map[string]any{"status": m.Status}
	if m.ErrorMessage != "" {
		body["error"] = m.ErrorMessage
	}
	if m.Status == models.MediaStatusProcessing {
		body["estimatedProcessingTime"] = m.EstimatedProcessingSecs
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.media.Delete(r.Context(), ownerFrom(r), chi.URLParam(r, "mediaID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listItem struct {
	MediaID  string             `json:"mediaId"`
	Position int                `json:"position"`
	MimeType string             `json:"mediaType"`
	Size     int64              `json:"mediaSize"`
	Status   models.MediaStatus `json:"status"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if q := r.URL.Query().Get("owner"); q != "" && q != owner {
		// Listings are scoped to the authenticated owner.
		writeError(w, http.StatusForbidden, "forbidden", "cannot list another owner's media")
		return
	}

	rows, err := h.media.List(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]listItem, 0, len(rows))
	for _, m := range rows {
		items = append(items, listItem{
			MediaID:  m.ID,
			Position: m.Position,
			MimeType: m.MimeType,
			Size:     m.Size,
			Status:   m.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

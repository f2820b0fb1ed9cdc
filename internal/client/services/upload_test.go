package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwave/mediaflow/internal/client/api"
	"github.com/pairwave/mediaflow/internal/client/config"
	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/logging"
)

// fakeBackend implements the backend media contract plus a storage endpoint
// for grant execution, so the whole pipeline runs against real HTTP.
type fakeBackend struct {
	mu sync.Mutex

	grantExpiry   time.Duration
	negotiateFail int // fail this many negotiations before succeeding

	statusSequence []string
	statusIdx      int

	storageHits  int
	statusHits   int
	completeHits int
	deleteHits   int

	mux     *http.ServeMux
	backend *httptest.Server
	storage *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{
		grantExpiry:    15 * time.Minute,
		statusSequence: []string{"processing", "processing", "completed"},
	}

	fb.storage = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.storageHits++
		fb.mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"etag123"`)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(fb.storage.Close)

	fb.mux = http.NewServeMux()
	fb.mux.HandleFunc("POST /media", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.negotiateFail > 0 {
			fb.negotiateFail--
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "backend busy"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"mediaId":      "m1",
			"uploadUrl":    fb.storage.URL + "/x",
			"uploadMethod": "POST",
			"uploadFields": map[string]string{"key": "media/m1", "policy": "signed"},
			"expiresAt":    time.Now().Add(fb.grantExpiry).Format(time.RFC3339),
		})
	})
	fb.mux.HandleFunc("POST /media/m1/complete", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.completeHits++
		fb.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["uploadSuccess"] != true || body["integrityToken"] != "etag123" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "integrity mismatch"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"mediaId":                 "m1",
			"status":                  "processing",
			"estimatedProcessingTime": 30,
		})
	})
	fb.mux.HandleFunc("GET /media/m1/status", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.statusHits++
		status := fb.statusSequence[fb.statusIdx]
		if fb.statusIdx < len(fb.statusSequence)-1 {
			fb.statusIdx++
		}
		fb.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	fb.mux.HandleFunc("DELETE /media/m1", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.deleteHits++
		fb.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	fb.backend = httptest.NewServer(fb.mux)
	t.Cleanup(fb.backend.Close)
	return fb
}

func newService(t *testing.T, fb *fakeBackend, mutate func(*config.Config)) UploadService {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BackendBaseURL = fb.backend.URL
	cfg.PollInterval = 5 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := api.NewHTTPClient(cfg.BackendBaseURL, cfg.RequestTimeout, api.StaticToken("tok"))
	svc := NewUploadService(client, cfg, log)
	t.Cleanup(svc.Close)
	return svc
}

func jpegRequest() models.MediaUploadRequest {
	return models.MediaUploadRequest{
		MimeType: "image/jpeg",
		Size:     204800,
		Metadata: json.RawMessage(`{"width":720,"height":960}`),
	}
}

func TestUpload_EndToEnd(t *testing.T) {
	fb := newFakeBackend(t)
	svc := newService(t, fb, nil)

	payload := make([]byte, 204800)
	id, err := svc.Upload(context.Background(), "owner-1", jpegRequest(), payload)
	require.NoError(t, err)
	require.Equal(t, "m1", id)

	rec, err := svc.Status("m1")
	require.NoError(t, err)
	assert.Equal(t, models.StageProcessing, rec.Stage)
	assert.Equal(t, 30*time.Second, rec.EstimatedProcessing)

	require.Eventually(t, func() bool {
		rec, err := svc.Status("m1")
		return err == nil && rec.Stage == models.StageCompleted
	}, time.Second, time.Millisecond)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, 1, fb.storageHits)
	assert.Equal(t, 1, fb.completeHits)
	assert.Equal(t, 3, fb.statusHits)
}

func TestUpload_ExpiredGrantEndsFailed(t *testing.T) {
	fb := newFakeBackend(t)
	fb.grantExpiry = -time.Minute
	svc := newService(t, fb, nil)

	id, err := svc.Upload(context.Background(), "owner-1", jpegRequest(), []byte("x"))
	var trErr *models.TransferError
	require.ErrorAs(t, err, &trErr)
	require.Equal(t, "m1", id)

	rec, err := svc.Status("m1")
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, rec.Stage)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Zero(t, fb.storageHits, "expired grant must not reach the provider")
}

func TestUpload_NegotiationFailureLeavesNoRecord(t *testing.T) {
	fb := newFakeBackend(t)
	fb.negotiateFail = 100
	svc := newService(t, fb, nil)

	_, err := svc.Upload(context.Background(), "owner-1", jpegRequest(), []byte("x"))
	var negErr *models.NegotiationError
	require.ErrorAs(t, err, &negErr)

	assert.Empty(t, svc.Active())
	assert.Empty(t, svc.ByStage(models.StageFailed))
}

func TestUpload_NegotiationRetriesArePolicy(t *testing.T) {
	fb := newFakeBackend(t)
	fb.negotiateFail = 1
	svc := newService(t, fb, func(c *config.Config) {
		c.NegotiationRetries = 2
	})

	id, err := svc.Upload(context.Background(), "owner-1", jpegRequest(), make([]byte, 204800))
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
}

func TestDelete_AnyStage(t *testing.T) {
	fb := newFakeBackend(t)
	fb.statusSequence = []string{"processing"}
	svc := newService(t, fb, nil)

	id, err := svc.Upload(context.Background(), "owner-1", jpegRequest(), make([]byte, 204800))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id))

	_, err = svc.Status(id)
	require.Error(t, err)

	fb.mu.Lock()
	hitsAtDelete := fb.statusHits
	fb.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, 1, fb.deleteHits)
	assert.Equal(t, hitsAtDelete, fb.statusHits, "no poll after delete")
}

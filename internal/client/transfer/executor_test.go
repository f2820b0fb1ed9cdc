package transfer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/common"
)

func validGrant(url, method string) *models.UploadGrant {
	return &models.UploadGrant{
		MediaID:   "m1",
		URL:       url,
		Method:    method,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
}

func TestExecute_PutSuccess(t *testing.T) {
	payload := []byte("raw image bytes")

	var gotMethod, gotCT, gotPolicy string
	var gotBody []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotPolicy = r.Header.Get("X-Policy-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"etag123"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	grant := validGrant(ts.URL, http.MethodPut)
	grant.Headers = map[string]string{"X-Policy-Token": "pol-1"}

	e := NewExecutor(5 * time.Second)
	out, err := e.Execute(context.Background(), grant, payload)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/octet-stream", gotCT)
	assert.Equal(t, "pol-1", gotPolicy)
	assert.True(t, bytes.Equal(gotBody, payload))

	assert.True(t, out.Success)
	assert.Equal(t, "etag123", out.ETag)
	assert.Equal(t, int64(len(payload)), out.Size)
}

func TestExecute_PostMultipartFields(t *testing.T) {
	payload := []byte("posted bytes")

	var gotFields map[string]string
	var gotFile []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(f)
		w.Header().Set("ETag", "etag456")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	grant := validGrant(ts.URL, http.MethodPost)
	grant.Fields = map[string]string{"key": "media/m1", "policy": "signed-policy"}

	e := NewExecutor(5 * time.Second)
	out, err := e.Execute(context.Background(), grant, payload)
	require.NoError(t, err)

	assert.Equal(t, "media/m1", gotFields["key"])
	assert.Equal(t, "signed-policy", gotFields["policy"])
	assert.True(t, bytes.Equal(gotFile, payload))
	assert.Equal(t, "etag456", out.ETag)
}

func TestExecute_ExpiredGrantFailsBeforeNetwork(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	grant := validGrant(ts.URL, http.MethodPut)
	grant.ExpiresAt = time.Now().Add(-time.Minute)

	e := NewExecutor(5 * time.Second)
	_, err := e.Execute(context.Background(), grant, []byte("x"))

	var trErr *models.TransferError
	require.ErrorAs(t, err, &trErr)
	assert.ErrorIs(t, err, common.ErrGrantExpired)
	assert.False(t, called, "expired grant must not reach the provider")
}

func TestExecute_GrantIsSingleUse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	grant := validGrant(ts.URL, http.MethodPut)
	e := NewExecutor(5 * time.Second)

	_, err := e.Execute(context.Background(), grant, []byte("x"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), grant, []byte("x"))
	var trErr *models.TransferError
	require.ErrorAs(t, err, &trErr)
	assert.ErrorIs(t, err, common.ErrGrantConsumed)
}

func TestExecute_FailedAttemptDoesNotConsumeGrant(t *testing.T) {
	var status = http.StatusForbidden

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()

	grant := validGrant(ts.URL, http.MethodPut)
	e := NewExecutor(5 * time.Second)

	_, err := e.Execute(context.Background(), grant, []byte("x"))
	var trErr *models.TransferError
	require.ErrorAs(t, err, &trErr)
	assert.Contains(t, trErr.Reason, "403")

	// Only a completed transfer consumes the grant.
	status = http.StatusOK
	_, err = e.Execute(context.Background(), grant, []byte("x"))
	require.NoError(t, err)
}

func TestExecute_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	grant := validGrant(ts.URL, http.MethodPut)
	e := NewExecutor(time.Second)

	_, err := e.Execute(context.Background(), grant, []byte("x"))
	var trErr *models.TransferError
	require.ErrorAs(t, err, &trErr)
}

// Package transfer executes upload grants against the storage provider.
// The executor is deliberately dumb: it uses exactly the method and
// headers/fields the grant specifies, performs no retries (grants are
// single-use; callers must re-negotiate), and forwards the provider's
// integrity token unmodified.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/common"
)

// Executor performs the raw byte transfer for negotiated grants.
type Executor struct {
	http *http.Client
	now  func() time.Time
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
	}
}

// Execute writes payload to the grant's target. The grant is checked for
// expiry before any network traffic and for prior consumption; both
// violations surface as *models.TransferError. On success the grant is
// consumed and the provider's entity tag, if present, is returned in the
// outcome.
func (e *Executor) Execute(ctx context.Context, grant *models.UploadGrant, payload []byte) (*models.TransferOutcome, error) {
	if grant.Consumed() {
		return nil, &models.TransferError{Reason: "grant already consumed", Err: common.ErrGrantConsumed}
	}
	if grant.Expired(e.now()) {
		return nil, &models.TransferError{Reason: "grant expired", Err: common.ErrGrantExpired}
	}

	req, err := e.buildRequest(ctx, grant, payload)
	if err != nil {
		return nil, &models.TransferError{Reason: "building request", Err: err}
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &models.TransferError{Reason: "storage write failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.TransferError{
			Reason: fmt.Sprintf("provider returned %s: %s", resp.Status, string(b)),
		}
	}

	grant.Consume()

	return &models.TransferOutcome{
		Success: true,
		ETag:    strings.Trim(resp.Header.Get("ETag"), `"`),
		Size:    int64(len(payload)),
	}, nil
}

// buildRequest assembles the provider request. PUT-style grants carry the
// payload as the raw body with the grant's headers; POST-style grants wrap
// the grant's policy fields and the payload in a multipart form, fields
// first (the provider validates fields before reading the file part).
func (e *Executor) buildRequest(ctx context.Context, grant *models.UploadGrant, payload []byte) (*http.Request, error) {
	if grant.Method == http.MethodPost && len(grant.Fields) > 0 {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range grant.Fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
		fw, err := w.CreateFormFile("file", "file")
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, grant.Method, grant.URL, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		for k, v := range grant.Headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, grant.Method, grant.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	for k, v := range grant.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

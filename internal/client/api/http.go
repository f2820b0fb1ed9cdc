package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pairwave/mediaflow/internal/client/models"
	"github.com/pairwave/mediaflow/internal/common"
)

// HTTPClient talks JSON over HTTP to the media backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenProvider) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// errorEnvelope is the backend's JSON error body. Reason is a machine
// readable code, Message is for humans.
type errorEnvelope struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type grantResponse struct {
	MediaID       string            `json:"mediaId"`
	UploadURL     string            `json:"uploadUrl"`
	UploadMethod  string            `json:"uploadMethod"`
	UploadHeaders map[string]string `json:"uploadHeaders"`
	UploadFields  map[string]string `json:"uploadFields"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

type completeRequest struct {
	UploadSuccess  bool   `json:"uploadSuccess"`
	IntegrityToken string `json:"integrityToken"`
	ActualSize     int64  `json:"actualSize"`
}

type completeResponse struct {
	MediaID                 string `json:"mediaId"`
	Status                  string `json:"status"`
	EstimatedProcessingSecs int64  `json:"estimatedProcessingTime"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type listResponse struct {
	Items []struct {
		MediaID  string `json:"mediaId"`
		Position int    `json:"position"`
		MimeType string `json:"mediaType"`
		Size     int64  `json:"mediaSize"`
		Status   string `json:"status"`
	} `json:"items"`
}

type negotiateRequest struct {
	Owner    string          `json:"owner"`
	MimeType string          `json:"mediaType"`
	Size     int64           `json:"mediaSize"`
	Metadata json.RawMessage `json:"mediaMetadata,omitempty"`
	Position int             `json:"position"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("obtaining token: %w", err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, data, common.ErrAuthExpired
	}

	return resp.StatusCode, data, nil
}

// rejection maps an error body to the matching sentinel, defaulting to a
// plain error carrying the backend-supplied reason.
func rejection(status int, body []byte) (string, error) {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	reason := env.Message
	if reason == "" {
		reason = fmt.Sprintf("backend returned status %d", status)
	}

	switch {
	case status == http.StatusRequestEntityTooLarge || env.Reason == "size_exceeded":
		return reason, common.ErrMediaTooLarge
	case env.Reason == "quota_full":
		return reason, common.ErrMediaQuotaFull
	case status == http.StatusNotFound:
		return reason, common.ErrorNotFound
	default:
		return reason, fmt.Errorf("status %d: %s", status, reason)
	}
}

func (c *HTTPClient) RequestUpload(ctx context.Context, ownerID string, req models.MediaUploadRequest) (*models.UploadGrant, error) {
	body := negotiateRequest{
		Owner:    ownerID,
		MimeType: req.MimeType,
		Size:     req.Size,
		Metadata: req.Metadata,
		Position: req.Position,
	}

	status, data, err := c.do(ctx, http.MethodPost, "/media", body)
	if err != nil {
		return nil, &models.NegotiationError{Reason: err.Error(), Err: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		reason, err := rejection(status, data)
		return nil, &models.NegotiationError{Reason: reason, Err: err}
	}

	var gr grantResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, &models.NegotiationError{Reason: "malformed grant response", Err: err}
	}
	if gr.MediaID == "" || gr.UploadURL == "" || gr.UploadMethod == "" {
		return nil, &models.NegotiationError{Reason: "incomplete grant response"}
	}

	return &models.UploadGrant{
		MediaID:   gr.MediaID,
		URL:       gr.UploadURL,
		Method:    gr.UploadMethod,
		Headers:   gr.UploadHeaders,
		Fields:    gr.UploadFields,
		ExpiresAt: gr.ExpiresAt,
	}, nil
}

func (c *HTTPClient) CompleteUpload(ctx context.Context, mediaID string, outcome models.TransferOutcome) (*CompletionResult, error) {
	body := completeRequest{
		UploadSuccess:  outcome.Success,
		IntegrityToken: outcome.ETag,
		ActualSize:     outcome.Size,
	}

	status, data, err := c.do(ctx, http.MethodPost, "/media/"+url.PathEscape(mediaID)+"/complete", body)
	if err != nil {
		return nil, &models.CompletionError{Reason: err.Error(), Err: err}
	}
	if status != http.StatusOK {
		reason, err := rejection(status, data)
		return nil, &models.CompletionError{Reason: reason, Err: err}
	}

	var cr completeResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, &models.CompletionError{Reason: "malformed completion response", Err: err}
	}

	stage := models.Stage(cr.Status)
	switch stage {
	case models.StageProcessing, models.StageCompleted, models.StageFailed:
	default:
		return nil, &models.CompletionError{Reason: fmt.Sprintf("unknown status %q", cr.Status)}
	}

	return &CompletionResult{
		MediaID:             cr.MediaID,
		Status:              stage,
		EstimatedProcessing: time.Duration(cr.EstimatedProcessingSecs) * time.Second,
	}, nil
}

func (c *HTTPClient) GetStatus(ctx context.Context, mediaID string) (*StatusResult, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/media/"+url.PathEscape(mediaID)+"/status", nil)
	if err != nil {
		return nil, &models.PollError{Reason: err.Error(), Err: err}
	}
	if status != http.StatusOK {
		reason, err := rejection(status, data)
		return nil, &models.PollError{Reason: reason, Err: err}
	}

	var sr statusResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, &models.PollError{Reason: "malformed status response", Err: err}
	}

	stage := models.Stage(sr.Status)
	switch stage {
	case models.StageProcessing, models.StageCompleted, models.StageFailed:
	default:
		return nil, &models.PollError{Reason: fmt.Sprintf("unknown status %q", sr.Status)}
	}

	return &StatusResult{Status: stage, Error: sr.Error, Payload: data}, nil
}

func (c *HTTPClient) Delete(ctx context.Context, mediaID string) error {
	status, data, err := c.do(ctx, http.MethodDelete, "/media/"+url.PathEscape(mediaID), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		reason, err := rejection(status, data)
		return fmt.Errorf("deleting media: %s: %w", reason, err)
	}
	return nil
}

func (c *HTTPClient) List(ctx context.Context, ownerID string) ([]MediaItem, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/media?owner="+url.QueryEscape(ownerID), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		reason, err := rejection(status, data)
		return nil, fmt.Errorf("listing media: %s: %w", reason, err)
	}

	var lr listResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("malformed list response: %w", err)
	}

	items := make([]MediaItem, 0, len(lr.Items))
	for _, it := range lr.Items {
		items = append(items, MediaItem{
			MediaID:  it.MediaID,
			Position: it.Position,
			MimeType: it.MimeType,
			Size:     it.Size,
			Status:   models.Stage(it.Status),
		})
	}
	return items, nil
}

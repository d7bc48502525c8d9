// Package store talks to the document service that loads and saves TEI
// documents.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document changed since it was loaded")
)

// Client communicates with the document service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Document is a stored TEI document.
type Document struct {
	ID       string `json:"id"`
	XML      string `json:"xml"`
	Revision string `json:"revision,omitempty"`
}

// SaveRequest is the body for PUT /documents/{id}.
type SaveRequest struct {
	XML          string            `json:"xml"`
	Revision     string            `json:"revision"`
	BaseRevision string            `json:"base_revision,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SaveResult is the service's verdict on a save.
type SaveResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Revision string `json:"revision,omitempty"`
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (c *Client) documentURL(docID string) string {
	return c.baseURL + "/documents/" + url.PathEscape(docID)
}

// Load fetches the raw XML of a document. A missing document is ErrNotFound.
func (c *Client) Load(ctx context.Context, docID string) (*Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.documentURL(docID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := statusError("load document "+docID, resp.StatusCode, body); err != nil {
		return nil, err
	}
	return &Document{
		ID:       docID,
		XML:      string(body),
		Revision: resp.Header.Get("ETag"),
	}, nil
}

// Save stores XML for docID. A rejected save is reported in SaveResult; a
// stale BaseRevision is ErrConflict.
func (c *Client) Save(ctx context.Context, docID string, req SaveRequest) (*SaveResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal save: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.documentURL(docID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.BaseRevision != "" {
		httpReq.Header.Set("If-Match", req.BaseRevision)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		var result SaveResult
		if err := json.Unmarshal(respBody, &result); err != nil || result.Message == "" {
			result = SaveResult{Message: truncate(string(respBody), 500)}
		}
		result.Success = false
		return &result, nil
	}
	if err := statusError("save document "+docID, resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	result := SaveResult{Success: true, Revision: req.Revision}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("decode save result: %w", err)
		}
	}
	return &result, nil
}

func statusError(op string, status int, body []byte) error {
	switch {
	case status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case status == http.StatusTooManyRequests || status >= 500:
		return &RetryableError{StatusCode: status, Message: string(body)}
	}
	return fmt.Errorf("%s: status %d: %s", op, status, truncate(string(body), 500))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

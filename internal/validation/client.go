// Package validation calls the schema validation service and returns its
// findings as detail errors addressed by xpath.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/teiedit/internal/diag"
)

// Client calls the validation service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stats      *Stats
}

func NewClient(baseURL, apiKey string, timeout time.Duration, stats *Stats) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: stats,
	}
}

// Result is the service's verdict on a document.
type Result struct {
	Valid        bool               `json:"valid"`
	DetailErrors []diag.DetailError `json:"detailErrors"`
}

// Validate posts xml to the service. Every call is recorded in the
// client's Stats, failures included.
func (c *Client) Validate(ctx context.Context, xml string) (*Result, error) {
	start := time.Now()
	outcome := OutcomeFailed
	defer func() {
		if c.stats != nil {
			c.stats.Record(time.Since(start).Milliseconds(), outcome)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", strings.NewReader(xml))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/xml")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("validation service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode validation result: %w (raw: %s)", err, truncate(string(respBody), 200))
	}
	if len(result.DetailErrors) > 0 {
		result.Valid = false
	}
	outcome = OutcomeInvalid
	if result.Valid {
		outcome = OutcomeValid
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Package normdata resolves authority-file ids to display labels.
package normdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

var ErrNotFound = errors.New("normdata entry not found")

// Entry is one authority record.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
	URI   string `json:"uri,omitempty"`
}

type cached struct {
	entry   Entry
	expires time.Time
}

// Client looks entries up over HTTP and keeps recent answers in a bounded
// LRU cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache *lru.Cache
}

// NewClient returns a client caching up to maxEntries lookups for ttl.
func NewClient(baseURL string, ttl time.Duration, maxEntries int) *Client {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ttl:   ttl,
		now:   time.Now,
		cache: lru.New(maxEntries),
	}
}

// Lookup returns the entry for id.
func (c *Client) Lookup(ctx context.Context, id string) (*Entry, error) {
	if e, ok := c.fromCache(id); ok {
		return &e, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/entries/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("normdata lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("normdata lookup %s: status %d: %s", id, resp.StatusCode, string(body))
	}

	var e Entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if e.ID == "" {
		e.ID = id
	}
	c.store(id, e)
	return &e, nil
}

// Label returns the display label for id, the value preview rendering
// needs.
func (c *Client) Label(ctx context.Context, id string) (string, error) {
	e, err := c.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Label, nil
}

func (c *Client) fromCache(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(id)
	if !ok {
		return Entry{}, false
	}
	hit := v.(cached)
	if c.ttl > 0 && c.now().After(hit.expires) {
		c.cache.Remove(id)
		return Entry{}, false
	}
	return hit.entry, true
}

func (c *Client) store(id string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(id, cached{entry: e, expires: c.now().Add(c.ttl)})
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

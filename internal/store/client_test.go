package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/documents/doc-1":
			w.Header().Set("ETag", `"r1"`)
			w.Write([]byte(`<TEI/>`))
		case "/documents/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "key")

	doc, err := c.Load(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.XML != `<TEI/>` || doc.Revision != `"r1"` {
		t.Errorf("unexpected document %+v", doc)
	}

	if _, err := c.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var retry *RetryableError
	if _, err := c.Load(context.Background(), "busy"); !errors.As(err, &retry) || retry.StatusCode != 503 {
		t.Errorf("expected retryable 503, got %v", err)
	}
}

func TestSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		switch r.URL.Path {
		case "/documents/ok":
			json.NewEncoder(w).Encode(SaveResult{Success: true, Message: "saved", Revision: req.Revision})
		case "/documents/invalid":
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(SaveResult{Message: "schema violation"})
		case "/documents/stale":
			if r.Header.Get("If-Match") != "old" {
				t.Errorf("expected If-Match old, got %q", r.Header.Get("If-Match"))
			}
			w.WriteHeader(http.StatusPreconditionFailed)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "key")
	ctx := context.Background()

	res, err := c.Save(ctx, "ok", SaveRequest{XML: "<a/>", Revision: "r2"})
	if err != nil || !res.Success || res.Revision != "r2" {
		t.Errorf("unexpected result %+v (%v)", res, err)
	}

	res, err = c.Save(ctx, "invalid", SaveRequest{XML: "<a/>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Message != "schema violation" {
		t.Errorf("expected rejected save, got %+v", res)
	}

	if _, err := c.Save(ctx, "stale", SaveRequest{XML: "<a/>", BaseRevision: "old"}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

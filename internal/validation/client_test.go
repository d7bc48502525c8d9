package validation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Path != "/validate" || r.Header.Get("Content-Type") != "application/xml" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Content-Type"))
		}
		switch string(body) {
		case "<ok/>":
			w.Write([]byte(`{"valid": true, "detailErrors": []}`))
		case "<bad/>":
			w.Write([]byte(`{"valid": true, "detailErrors": [{"xpath": "/*:bad[1]", "diagnostics": [{"languageCode": "de", "message": "falsch"}]}]}`))
		case "<busy/>":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	stats := NewStats(time.Hour)
	c := NewClient(srv.URL+"/", "", time.Second, stats)
	ctx := context.Background()

	res, err := c.Validate(ctx, "<ok/>")
	if err != nil || !res.Valid {
		t.Errorf("expected valid, got %+v (%v)", res, err)
	}

	res, err = c.Validate(ctx, "<bad/>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid {
		t.Error("expected detail errors to mark the document invalid")
	}
	if len(res.DetailErrors) != 1 || res.DetailErrors[0].XPath != "/*:bad[1]" {
		t.Fatalf("unexpected detail errors %+v", res.DetailErrors)
	}
	if msg := res.DetailErrors[0].Message(); msg["de"] != "falsch" {
		t.Errorf("expected de message, got %v", msg)
	}

	var retry *RetryableError
	if _, err := c.Validate(ctx, "<busy/>"); !errors.As(err, &retry) {
		t.Errorf("expected RetryableError, got %v", err)
	}
	if _, err := c.Validate(ctx, "<other/>"); err == nil || errors.As(err, &retry) {
		t.Errorf("expected permanent error, got %v", err)
	}

	snap := stats.Snapshot()
	if snap.Count != 4 || snap.Valid != 1 || snap.Invalid != 1 || snap.Failed != 2 {
		t.Errorf("unexpected stats %+v", snap)
	}
}

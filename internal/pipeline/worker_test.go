package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/teiedit/internal/config"
	"github.com/dgallion1/teiedit/internal/diag"
	"github.com/dgallion1/teiedit/internal/store"
	"github.com/dgallion1/teiedit/internal/validation"
)

type fakeSaver struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	result *store.SaveResult
	last   store.SaveRequest
}

func (f *fakeSaver) Save(_ context.Context, _ string, req store.SaveRequest) (*store.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.result != nil {
		return f.result, nil
	}
	return &store.SaveResult{Success: true, Revision: "etag-2"}, nil
}

type fakeValidator struct {
	calls  int
	err    error
	result *validation.Result
}

func (f *fakeValidator) Validate(_ context.Context, _ string) (*validation.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &validation.Result{Valid: true}, nil
}

func testWorker(saver Saver, validator Validator, opts WorkerOptions) *Worker {
	w := NewWorker(saver, validator, slog.New(slog.DiscardHandler), opts)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func invalid() *validation.Result {
	return &validation.Result{DetailErrors: []diag.DetailError{{XPath: "/*:TEI[1]"}}}
}

func TestWorker_Process(t *testing.T) {
	tests := []struct {
		name       string
		opts       WorkerOptions
		validator  *fakeValidator
		saver      *fakeSaver
		serial     diag.Errors
		force      bool
		wantStatus JobStatus
		wantSaves  int
	}{
		{
			name:       "valid document is saved",
			opts:       WorkerOptions{ValidateBeforeSave: true},
			validator:  &fakeValidator{},
			saver:      &fakeSaver{},
			wantStatus: StatusCompleted,
			wantSaves:  1,
		},
		{
			name:       "invalid document saved when not blocking",
			opts:       WorkerOptions{ValidateBeforeSave: true},
			validator:  &fakeValidator{result: invalid()},
			saver:      &fakeSaver{},
			wantStatus: StatusCompleted,
			wantSaves:  1,
		},
		{
			name:       "invalid document rejected when blocking",
			opts:       WorkerOptions{ValidateBeforeSave: true, BlockSaveOnErrors: true},
			validator:  &fakeValidator{result: invalid()},
			saver:      &fakeSaver{},
			wantStatus: StatusRejected,
		},
		{
			name:       "serialization errors block",
			opts:       WorkerOptions{BlockSaveOnErrors: true},
			saver:      &fakeSaver{},
			serial:     diag.Errors{diag.Transformation("p", errors.New("boom"))},
			wantStatus: StatusRejected,
		},
		{
			name:       "force overrides serialization errors",
			opts:       WorkerOptions{BlockSaveOnErrors: true},
			saver:      &fakeSaver{},
			serial:     diag.Errors{diag.Transformation("p", errors.New("boom"))},
			force:      true,
			wantStatus: StatusCompleted,
			wantSaves:  1,
		},
		{
			name:       "warnings do not block",
			opts:       WorkerOptions{BlockSaveOnErrors: true},
			saver:      &fakeSaver{},
			serial:     diag.Errors{{Level: diag.LevelWarning, Code: diag.CodeUnknownVolltext}},
			wantStatus: StatusCompleted,
			wantSaves:  1,
		},
		{
			name:       "validation outage tolerated when not blocking",
			opts:       WorkerOptions{ValidateBeforeSave: true},
			validator:  &fakeValidator{err: errors.New("down")},
			saver:      &fakeSaver{},
			wantStatus: StatusCompleted,
			wantSaves:  1,
		},
		{
			name:       "validation outage fails when blocking",
			opts:       WorkerOptions{ValidateBeforeSave: true, BlockSaveOnErrors: true},
			validator:  &fakeValidator{err: errors.New("down")},
			saver:      &fakeSaver{},
			wantStatus: StatusFailed,
		},
		{
			name:       "conflict",
			saver:      &fakeSaver{errs: []error{store.ErrConflict}},
			wantStatus: StatusConflict,
			wantSaves:  1,
		},
		{
			name:       "rejected by store",
			saver:      &fakeSaver{result: &store.SaveResult{Message: "locked"}},
			wantStatus: StatusRejected,
			wantSaves:  1,
		},
		{
			name: "retries transient errors",
			saver: &fakeSaver{errs: []error{
				&store.RetryableError{StatusCode: 503},
				&store.RetryableError{StatusCode: 502},
			}},
			wantStatus: StatusCompleted,
			wantSaves:  3,
		},
		{
			name: "gives up after max retries",
			saver: &fakeSaver{errs: []error{
				&store.RetryableError{StatusCode: 503},
				&store.RetryableError{StatusCode: 503},
				&store.RetryableError{StatusCode: 503},
				nil,
			}},
			wantStatus: StatusFailed,
			wantSaves:  MaxRetries,
		},
		{
			name:       "permanent error is not retried",
			saver:      &fakeSaver{errs: []error{errors.New("bad request")}},
			wantStatus: StatusFailed,
			wantSaves:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Validator
			if tt.validator != nil {
				v = tt.validator
			}
			w := testWorker(tt.saver, v, tt.opts)
			job := NewJob("doc-1", "u", "<TEI/>", Base{Revision: "etag-1"}, map[string]string{"idno": "1"}, tt.serial)
			job.Force = tt.force
			w.Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q (errors %v)", tt.wantStatus, snap.Status, snap.Errors)
			}
			if tt.saver.calls != tt.wantSaves {
				t.Errorf("expected %d save calls, got %d", tt.wantSaves, tt.saver.calls)
			}
		})
	}
}

func TestWorker_SaveRequest(t *testing.T) {
	saver := &fakeSaver{}
	validator := &fakeValidator{result: invalid()}
	w := testWorker(saver, validator, WorkerOptions{ValidateBeforeSave: true})
	job := NewJob("doc-1", "u", "<TEI/>", Base{Revision: "etag-1"}, map[string]string{"idno": "1"}, nil)
	w.Process(context.Background(), job)

	if saver.last.XML != "<TEI/>" || saver.last.BaseRevision != "etag-1" || saver.last.Revision != job.Revision {
		t.Errorf("unexpected save request %+v", saver.last)
	}
	if saver.last.Metadata["idno"] != "1" {
		t.Errorf("expected metadata to be forwarded, got %v", saver.last.Metadata)
	}
	snap := job.Snapshot()
	if snap.StoreRevision != "etag-2" {
		t.Errorf("expected store revision %q, got %q", "etag-2", snap.StoreRevision)
	}
	if len(snap.DetailErrors) != 1 {
		t.Errorf("expected validation findings on the job, got %d", len(snap.DetailErrors))
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&store.RetryableError{StatusCode: 503}, true},
		{&validation.RetryableError{StatusCode: 429}, true},
		{errors.Join(errors.New("wrapped"), &store.RetryableError{StatusCode: 500}), true},
		{store.ErrConflict, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		if d < time.Second || d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestOrchestrator_SubmitAndComplete(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	saver := &fakeSaver{}
	o := NewOrchestrator(cfg, saver, nil, slog.New(slog.DiscardHandler))
	o.backoff = func(int) time.Duration { return 0 }
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("doc-1", "u", "<TEI/>", Base{}, nil, nil)
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !o.GetJob(job.ID).Snapshot().Status.Terminal() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for job")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := o.GetJob(job.ID).Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, s)
	}
}

func TestOrchestrator_UnchangedShortCircuits(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	saver := &fakeSaver{}
	o := NewOrchestrator(cfg, saver, nil, slog.New(slog.DiscardHandler))

	job := NewJob("doc-1", "u", "<TEI/>", Base{Hash: RevisionHash("<TEI/>")}, nil, nil)
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := job.Snapshot().Status; s != StatusUnchanged {
		t.Errorf("expected status %q, got %q", StatusUnchanged, s)
	}
	if o.QueueDepth() != 0 {
		t.Errorf("expected nothing queued, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, &fakeSaver{}, nil, slog.New(slog.DiscardHandler))

	if err := o.Submit(NewJob("a", "u", "<a/>", Base{}, nil, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := NewJob("b", "u", "<b/>", Base{}, nil, nil)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot().Status; s != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, s)
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 8, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, &fakeSaver{}, nil, slog.New(slog.DiscardHandler))
	o.Start(context.Background())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := o.Submit(NewJob(fmt.Sprintf("d%d", i), "u", "<a/>", Base{}, nil, nil))
			if err != nil && !errors.Is(err, ErrStopped) && !strings.Contains(err.Error(), "queue is full") {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	o.Stop()
	wg.Wait()

	job := NewJob("late", "u", "<a/>", Base{}, nil, nil)
	if err := o.Submit(job); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if s := job.Snapshot().Status; s != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, s)
	}
	o.Stop()
}

package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/teiedit/internal/diag"
)

func TestRevisionHash_Consistency(t *testing.T) {
	h1 := RevisionHash("<TEI/>")
	h2 := RevisionHash("<TEI/>")
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	if !strings.HasPrefix(h1, "b3-") || len(h1) != len("b3-")+32 {
		t.Errorf("unexpected hash format %q", h1)
	}
	if RevisionHash("<TEI/>") == RevisionHash("<TEI></TEI>") {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("doc-1", "user-1", "<TEI/>", Base{Revision: "etag-1", Hash: "b3-x"}, nil, nil)
	if job.ID == "" {
		t.Fatal("expected job id")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Revision != RevisionHash("<TEI/>") {
		t.Errorf("expected revision to hash the xml, got %q", job.Revision)
	}
	if job.BaseRevision != "etag-1" || job.BaseHash != "b3-x" {
		t.Errorf("unexpected base %q/%q", job.BaseRevision, job.BaseHash)
	}
	other := NewJob("doc-1", "user-1", "<TEI/>", Base{}, nil, nil)
	if other.ID == job.ID {
		t.Error("expected unique job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusValidating, "validating"},
		{StatusSaving, "saving"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{StatusQueued, false},
		{StatusValidating, false},
		{StatusSaving, false},
		{StatusCompleted, true},
		{StatusUnchanged, true},
		{StatusRejected, true},
		{StatusConflict, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestJob_Snapshot(t *testing.T) {
	serial := diag.Errors{
		{Level: diag.LevelInfo, Code: diag.CodeUnknownVolltext, Detail: "hidden"},
		{Level: diag.LevelWarning, Code: diag.CodeUnknownVolltext, Detail: "shown"},
	}
	job := NewJob("doc-1", "u", "<TEI/>", Base{}, nil, serial)
	job.AddError("first")
	job.AddError("second")
	job.SetDetailErrors([]diag.DetailError{{XPath: "/*:TEI[1]"}})
	job.Finish(StatusRejected, "not valid")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 || snap.Errors[0] != "first" {
		t.Errorf("unexpected errors %v", snap.Errors)
	}
	if len(snap.SerializationErrors) != 1 || snap.SerializationErrors[0].Detail != "shown" {
		t.Errorf("expected only user-facing serialization errors, got %v", snap.SerializationErrors)
	}
	if len(snap.DetailErrors) != 1 {
		t.Errorf("expected 1 detail error, got %d", len(snap.DetailErrors))
	}
	if snap.Status != StatusRejected || snap.Message != "not valid" || snap.Phase != "done" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	job.AddError("third")
	if len(snap.Errors) != 2 {
		t.Error("expected snapshot to be independent of the job")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "j1", Status: StatusQueued}
	store.Put(job)

	got := store.Get("j1")
	if got != job {
		t.Error("expected to retrieve the same job pointer")
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	old := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now().Add(-time.Second)}
	running := &Job{ID: "running", Status: StatusSaving, UpdatedAt: time.Now().Add(-time.Second)}
	fresh := &Job{ID: "fresh", Status: StatusCompleted, UpdatedAt: time.Now()}
	store.Put(old)
	store.Put(running)
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected finished stale job to be removed")
	}
	if store.Get("running") == nil {
		t.Error("expected in-flight job to be kept")
	}
	if store.Get("fresh") == nil {
		t.Error("expected fresh job to be kept")
	}
}

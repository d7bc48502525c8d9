package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/teiedit/internal/diag"
)

// JobStatus represents the state of a save job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusValidating JobStatus = "validating"
	StatusSaving     JobStatus = "saving"
	StatusCompleted  JobStatus = "completed"
	StatusUnchanged  JobStatus = "unchanged"
	StatusRejected   JobStatus = "rejected"
	StatusConflict   JobStatus = "conflict"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusUnchanged, StatusRejected, StatusConflict, StatusFailed:
		return true
	}
	return false
}

// Job tracks one save of a serialized document.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	DocID  string `json:"doc_id"`
	UserID string `json:"user_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	// Revision is the content hash of the XML being saved. BaseRevision
	// and BaseHash describe the document as the editor loaded it.
	Revision     string `json:"revision"`
	BaseRevision string `json:"base_revision,omitempty"`
	BaseHash     string `json:"base_hash,omitempty"`

	// StoreRevision is assigned by the document service on success.
	StoreRevision string `json:"store_revision,omitempty"`

	// Force saves even when serialization errors would block the save.
	Force bool `json:"force"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	xml          string
	metadata     map[string]string
	serialErrors diag.Errors
	detailErrors []diag.DetailError
	message      string
	errors       []string
}

// Base identifies the loaded document a save is based on: the store's
// revision and the content hash of the XML it was transformed from.
type Base struct {
	Revision string
	Hash     string
}

// NewJob prepares a save of xml. Serialization errors collected while
// inverting the document travel with the job.
func NewJob(docID, userID, xml string, base Base, metadata map[string]string, serialErrors diag.Errors) *Job {
	now := time.Now()
	return &Job{
		ID:           newJobID(),
		DocID:        docID,
		UserID:       userID,
		Status:       StatusQueued,
		Phase:        "queued",
		Revision:     RevisionHash(xml),
		BaseRevision: base.Revision,
		BaseHash:     base.Hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		xml:          xml,
		metadata:     metadata,
		serialErrors: serialErrors,
	}
}

// newJobID returns a time-ordered id.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RevisionHash identifies the content of a serialized document.
func RevisionHash(xml string) string {
	sum := blake3.Sum256([]byte(xml))
	return "b3-" + hex.EncodeToString(sum[:16])
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs idle for longer than the TTL. Jobs still
// in flight are kept.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Finish sets a terminal status with the message shown to the editor.
func (j *Job) Finish(status JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = "done"
	j.message = message
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetStoreRevision records the revision the document service assigned.
func (j *Job) SetStoreRevision(rev string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.StoreRevision = rev
}

// SetDetailErrors stores the validation findings for the saved XML.
func (j *Job) SetDetailErrors(details []diag.DetailError) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.detailErrors = details
	j.UpdatedAt = time.Now()
}

// XML returns the document being saved.
func (j *Job) XML() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.xml
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID                  string             `json:"job_id"`
	DocID               string             `json:"doc_id"`
	UserID              string             `json:"user_id"`
	Status              JobStatus          `json:"status"`
	Phase               string             `json:"phase"`
	Revision            string             `json:"revision"`
	BaseRevision        string             `json:"base_revision,omitempty"`
	StoreRevision       string             `json:"store_revision,omitempty"`
	Message             string             `json:"message,omitempty"`
	SerializationErrors diag.Errors        `json:"serialization_errors"`
	DetailErrors        []diag.DetailError `json:"detail_errors"`
	Errors              []string           `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state. Info-level
// serialization errors are left out.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:                  j.ID,
		DocID:               j.DocID,
		UserID:              j.UserID,
		Status:              j.Status,
		Phase:               j.Phase,
		Revision:            j.Revision,
		BaseRevision:        j.BaseRevision,
		StoreRevision:       j.StoreRevision,
		Message:             j.message,
		SerializationErrors: append(diag.Errors{}, j.serialErrors.UserFacing()...),
		DetailErrors:        append([]diag.DetailError{}, j.detailErrors...),
		Errors:              append([]string{}, j.errors...),
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/teiedit/internal/config"
	"github.com/dgallion1/teiedit/internal/store"
	"github.com/dgallion1/teiedit/internal/validation"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("save pipeline is stopped")

// Saver stores serialized documents.
type Saver interface {
	Save(ctx context.Context, docID string, req store.SaveRequest) (*store.SaveResult, error)
}

// Validator checks serialized documents before they are saved.
type Validator interface {
	Validate(ctx context.Context, xml string) (*validation.Result, error)
}

// Orchestrator manages the save pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	saver     Saver
	validator Validator
	log       *slog.Logger
	cfg       config.Config

	// backoff is swapped out in tests.
	backoff func(attempt int) time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and sends on queue against close.
	mu      sync.Mutex
	stopped bool
}

// NewOrchestrator creates the pipeline. validator may be nil, in which
// case documents are saved without validation.
func NewOrchestrator(cfg config.Config, saver Saver, validator Validator, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		saver:     saver,
		validator: validator,
		log:       log,
		cfg:       cfg,
		backoff:   Backoff,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

func (o *Orchestrator) newWorker() *Worker {
	w := NewWorker(o.saver, o.validator, o.log, WorkerOptions{
		ValidateBeforeSave: o.cfg.ValidateBeforeSave,
		BlockSaveOnErrors:  o.cfg.BlockSaveOnErrors,
	})
	w.backoff = o.backoff
	return w
}

// Stop gracefully shuts down the pipeline. Later calls to Submit fail with
// ErrStopped; calling Stop again is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing. A job whose content matches the
// revision the editor loaded completes immediately as unchanged.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	if job.BaseHash != "" && job.BaseHash == job.Revision {
		job.Finish(StatusUnchanged, "document has not changed")
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.Finish(StatusFailed, "save pipeline is stopped")
		return ErrStopped
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.Finish(StatusFailed, "save queue is full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

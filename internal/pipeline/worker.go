package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/teiedit/internal/store"
	"github.com/dgallion1/teiedit/internal/validation"
)

// WorkerOptions controls the validation step of a save.
type WorkerOptions struct {
	ValidateBeforeSave bool
	// BlockSaveOnErrors rejects documents with error-level serialization
	// problems or validation findings instead of saving them.
	BlockSaveOnErrors bool
}

// Worker processes a single save job.
type Worker struct {
	saver     Saver
	validator Validator
	log       *slog.Logger
	opts      WorkerOptions
	backoff   func(attempt int) time.Duration
}

func NewWorker(saver Saver, validator Validator, log *slog.Logger, opts WorkerOptions) *Worker {
	return &Worker{
		saver:     saver,
		validator: validator,
		log:       log,
		opts:      opts,
		backoff:   Backoff,
	}
}

// Process validates and saves the job's document.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "user_id", job.UserID, "revision", job.Revision)

	if w.opts.BlockSaveOnErrors && !job.Force && job.serialErrorsBlock() {
		log.Warn("save blocked by serialization errors")
		job.Finish(StatusRejected, "document has serialization errors")
		return
	}

	// Phase 1: Validate
	if w.opts.ValidateBeforeSave && w.validator != nil {
		job.SetStatus(StatusValidating, "validating")
		var result *validation.Result
		err := w.retry(ctx, log, "validate", func() error {
			var err error
			result, err = w.validator.Validate(ctx, job.XML())
			return err
		})
		switch {
		case err != nil && w.opts.BlockSaveOnErrors:
			log.Error("validation failed", "error", err)
			job.AddError(fmt.Sprintf("validate: %s", err))
			job.Finish(StatusFailed, "validation service unavailable")
			return
		case err != nil:
			log.Warn("validation failed, saving anyway", "error", err)
			job.AddError(fmt.Sprintf("validate: %s", err))
		case !result.Valid:
			job.SetDetailErrors(result.DetailErrors)
			log.Info("document has validation findings", "count", len(result.DetailErrors))
			if w.opts.BlockSaveOnErrors {
				job.Finish(StatusRejected, "document is not valid")
				return
			}
		}
	}

	// Phase 2: Save
	job.SetStatus(StatusSaving, "saving")
	req := store.SaveRequest{
		XML:          job.XML(),
		Revision:     job.Revision,
		BaseRevision: job.BaseRevision,
		Metadata:     job.metadata,
	}
	var result *store.SaveResult
	err := w.retry(ctx, log, "save", func() error {
		var err error
		result, err = w.saver.Save(ctx, job.DocID, req)
		return err
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		log.Warn("save conflict", "base_revision", job.BaseRevision)
		job.Finish(StatusConflict, "document was changed by someone else")
	case err != nil:
		log.Error("save failed", "error", err)
		job.AddError(fmt.Sprintf("save: %s", err))
		job.Finish(StatusFailed, "document could not be saved")
	case !result.Success:
		log.Warn("save rejected", "message", result.Message)
		job.Finish(StatusRejected, result.Message)
	default:
		job.SetStoreRevision(result.Revision)
		log.Info("document saved", "store_revision", result.Revision)
		job.Finish(StatusCompleted, result.Message)
	}
}

// retry runs fn until it succeeds, fails permanently or MaxRetries is hit.
func (w *Worker) retry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (j *Job) serialErrorsBlock() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.serialErrors.HasErrors()
}

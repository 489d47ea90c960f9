package usecase

import (
	"context"
	"log/slog"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/cache"
)

// JobTrackerConfig holds configuration for JobTracker.
type JobTrackerConfig struct {
	// NotifyFailures enables failure messages on the notification channel.
	NotifyFailures bool
	// MaxRedeliveries is the attempt number after which a retryable failure is
	// final. Failure messages for retryable errors are sent only on that attempt.
	MaxRedeliveries int
}

// JobTracker records every pipeline invocation in the job ledger.
type JobTracker struct {
	pipeline TranscodeService
	repo     repository.JobRepository
	cache    cache.JobCache
	notifier repository.Notifier
	cfg      JobTrackerConfig
}

// NewJobTracker creates a JobTracker. jobCache may be nil.
func NewJobTracker(
	pipeline TranscodeService,
	repo repository.JobRepository,
	jobCache cache.JobCache,
	notifier repository.Notifier,
	cfg JobTrackerConfig,
) *JobTracker {
	return &JobTracker{
		pipeline: pipeline,
		repo:     repo,
		cache:    jobCache,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Handle adapts Process to the queue consumer's handler signature.
func (t *JobTracker) Handle(ctx context.Context, event repository.SourceEvent) error {
	_, err := t.Process(ctx, event)
	return err
}

// Process runs the pipeline for one source event and records its outcome.
// The pipeline result is returned unchanged; ledger, cache and failure-message
// errors are only logged.
func (t *JobTracker) Process(ctx context.Context, event repository.SourceEvent) (*model.Completion, error) {
	job, err := model.NewJob(event.Source, event.Attempt)
	if err != nil {
		verr := &StageError{
			Stage: StageValidate,
			Err:   &model.ValidationError{Key: event.Source.RawKey, Reason: err.Error()},
		}
		t.notifyFailure(ctx, event, "", verr)
		return nil, verr
	}

	log := slog.With("job_id", job.ID, "bucket", job.Bucket, "key", job.SourceKey, "attempt", job.Attempt)

	// The ledger row is written on a detached context so a shutdown in the
	// middle of an invocation still leaves a terminal status behind.
	ledgerCtx := context.WithoutCancel(ctx)

	recorded := true
	if err := t.repo.Create(ledgerCtx, job); err != nil {
		recorded = false
		log.Error("failed to record job", "error", err)
	}

	completion, runErr := t.pipeline.Process(ctx, event.Source)

	if runErr != nil {
		_ = job.MarkFailed(string(StageOf(runErr)), runErr)
	} else {
		_ = job.MarkReady(completion.MasterURL)
	}

	if recorded {
		if err := t.repo.Update(ledgerCtx, job); err != nil {
			log.Error("failed to update job", "status", job.Status, "error", err)
		}
		if t.cache != nil {
			if err := t.cache.Delete(ledgerCtx, job.ID); err != nil {
				log.Warn("failed to invalidate job cache", "error", err)
			}
		}
	}

	if runErr != nil {
		t.notifyFailure(ctx, event, job.OwnerKey, runErr)
		return nil, runErr
	}

	log.Info("job ready", "master_url", job.MasterURL)
	return completion, nil
}

// notifyFailure publishes a best-effort failure message. It is skipped when
// disabled, when the failure was itself a publish failure, and for retryable
// failures that will be redelivered.
func (t *JobTracker) notifyFailure(ctx context.Context, event repository.SourceEvent, ownerKey string, cause error) {
	if !t.cfg.NotifyFailures || t.notifier == nil || IsStage(cause, StageNotify) {
		return
	}

	status := model.CompletionStatusProcessingError
	if model.IsValidationError(cause) {
		status = model.CompletionStatusInvalidSource
	} else if event.Attempt < t.cfg.MaxRedeliveries {
		return
	}

	msg := model.NewFailure(status, ownerKey, cause.Error())
	if _, err := t.notifier.Publish(context.WithoutCancel(ctx), msg); err != nil {
		slog.Warn("failed to publish failure message",
			"key", event.Source.RawKey,
			"status_code", status,
			"error", err,
		)
	}
}

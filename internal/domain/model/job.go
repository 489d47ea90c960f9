package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of one pipeline invocation.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusReady      JobStatus = "READY"
	JobStatusFailed     JobStatus = "FAILED"
)

// Valid status transitions:
// PROCESSING -> READY
//            \-> FAILED
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusProcessing: {JobStatusReady, JobStatusFailed},
	JobStatusReady:      {},
	JobStatusFailed:     {},
}

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusProcessing, JobStatusReady, JobStatusFailed:
		return true
	default:
		return false
	}
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s JobStatus) String() string {
	return string(s)
}

// Job is the ledger entry for one invocation of the transcode pipeline.
type Job struct {
	ID        uuid.UUID
	Bucket    string
	SourceKey string
	OwnerKey  string
	BaseName  string
	Status    JobStatus
	MasterURL string
	// FailedStage is the pipeline stage that produced the terminal error, if any.
	FailedStage string
	Error       string
	// Attempt counts redeliveries of the triggering event, starting at 0.
	Attempt   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a new Job in PROCESSING status for the given source.
func NewJob(src SourceReference, attempt int) (*Job, error) {
	if src.Bucket == "" {
		return nil, ErrEmptyBucket
	}
	if src.RawKey == "" {
		return nil, ErrEmptySourceKey
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New(),
		Bucket:    src.Bucket,
		SourceKey: src.RawKey,
		Status:    JobStatusProcessing,
		Attempt:   attempt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Identity is best-effort here; an invalid key fails later in the pipeline.
	if key, err := ParseSourceKey(src.RawKey); err == nil {
		job.OwnerKey = key.OwnerKey
		job.BaseName = key.BaseName
	}

	return job, nil
}

// TransitionTo attempts to change the job status.
// Returns error if the transition is not allowed.
func (j *Job) TransitionTo(next JobStatus) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !j.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	j.Status = next
	j.UpdatedAt = time.Now()
	return nil
}

// MarkReady records a successful run.
func (j *Job) MarkReady(masterURL string) error {
	if err := j.TransitionTo(JobStatusReady); err != nil {
		return err
	}
	j.MasterURL = masterURL
	return nil
}

// MarkFailed records the stage and cause of a failed run.
func (j *Job) MarkFailed(stage string, cause error) error {
	if err := j.TransitionTo(JobStatusFailed); err != nil {
		return err
	}
	j.FailedStage = stage
	if cause != nil {
		j.Error = cause.Error()
	}
	return nil
}

// IsReady returns true if the rendition set was published.
func (j *Job) IsReady() bool {
	return j.Status == JobStatusReady
}

// IsFailed returns true if the invocation ended with an error.
func (j *Job) IsFailed() bool {
	return j.Status == JobStatusFailed
}

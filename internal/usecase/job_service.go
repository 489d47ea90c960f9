package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
)

const (
	// DefaultJobListLimit is used when a caller does not ask for a page size.
	DefaultJobListLimit = 20
	// MaxJobListLimit caps the page size of ListOwnerJobs.
	MaxJobListLimit = 100
)

var (
	// ErrEmptyOwnerKey is returned when listing jobs without an owner key.
	ErrEmptyOwnerKey = errors.New("owner key cannot be empty")
)

// JobService exposes the job ledger to read-only callers such as the status API.
type JobService interface {
	// GetJob retrieves a job by ID.
	// Returns repository.ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*model.Job, error)

	// ListOwnerJobs returns the newest jobs for ownerKey. A limit of zero or less
	// means DefaultJobListLimit; larger limits are capped at MaxJobListLimit.
	ListOwnerJobs(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error)
}

type jobService struct {
	repo repository.JobRepository
}

// NewJobService creates a new JobService instance.
func NewJobService(repo repository.JobRepository) JobService {
	return &jobService{repo: repo}
}

func (s *jobService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *jobService) ListOwnerJobs(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error) {
	if ownerKey == "" {
		return nil, ErrEmptyOwnerKey
	}

	switch {
	case limit <= 0:
		limit = DefaultJobListLimit
	case limit > MaxJobListLimit:
		limit = MaxJobListLimit
	}

	jobs, err := s.repo.ListByOwner(ctx, ownerKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

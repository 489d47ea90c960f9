package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/hlsladder/internal/domain/model"
)

// JobRepository defines the interface for job ledger persistence.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type JobRepository interface {
	// Create persists a new job entity.
	// Returns ErrDuplicateJob if a job with the same ID exists.
	Create(ctx context.Context, job *model.Job) error

	// GetByID retrieves a job by its unique identifier.
	// Returns nil and ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error)

	// ListByOwner retrieves the most recent jobs for an owner key, newest first.
	// Returns an empty slice if the owner has no jobs.
	ListByOwner(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error)

	// Update persists the outcome fields of an existing job.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, job *model.Job) error
}

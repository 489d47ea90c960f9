package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
)

// Schema creates the job ledger table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS transcode_jobs (
	id           UUID PRIMARY KEY,
	bucket       TEXT NOT NULL,
	source_key   TEXT NOT NULL,
	owner_key    TEXT,
	base_name    TEXT,
	status       TEXT NOT NULL,
	master_url   TEXT,
	failed_stage TEXT,
	error        TEXT,
	attempt      INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transcode_jobs_owner_created_idx
	ON transcode_jobs (owner_key, created_at DESC);
`

const jobColumns = `id, bucket, source_key, owner_key, base_name, status, master_url, failed_stage, error, attempt, created_at, updated_at`

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// JobRepository implements repository.JobRepository using PostgreSQL.
type JobRepository struct {
	db DBTX
}

// Compile-time verification that JobRepository implements repository.JobRepository.
var _ repository.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository instance.
func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

// Create persists a new job entity.
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	const query = `
		INSERT INTO transcode_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableJobs).Inc()
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Bucket,
		job.SourceKey,
		nullString(job.OwnerKey),
		nullString(job.BaseName),
		job.Status.String(),
		nullString(job.MasterURL),
		nullString(job.FailedStage),
		nullString(job.Error),
		job.Attempt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its unique identifier.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM transcode_jobs
		WHERE id = $1
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableJobs).Inc()
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}

	return job, nil
}

// ListByOwner retrieves the newest jobs for an owner key.
func (r *JobRepository) ListByOwner(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM transcode_jobs
		WHERE owner_key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableJobs).Inc()
	rows, err := r.db.Query(ctx, query, ownerKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs by owner: %w", err)
	}
	defer rows.Close()

	jobs := []*model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

// Update persists the outcome fields of an existing job.
func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	const query = `
		UPDATE transcode_jobs
		SET owner_key = $2, base_name = $3, status = $4, master_url = $5,
			failed_stage = $6, error = $7, updated_at = $8
		WHERE id = $1
	`

	job.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableJobs).Inc()
	tag, err := r.db.Exec(ctx, query,
		job.ID,
		nullString(job.OwnerKey),
		nullString(job.BaseName),
		job.Status.String(),
		nullString(job.MasterURL),
		nullString(job.FailedStage),
		nullString(job.Error),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrJobNotFound
	}

	return nil
}

// scanJob scans a single row into a Job model. pgx.Rows satisfies pgx.Row.
func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job         model.Job
		status      string
		ownerKey    *string
		baseName    *string
		masterURL   *string
		failedStage *string
		errMsg      *string
	)

	err := row.Scan(
		&job.ID,
		&job.Bucket,
		&job.SourceKey,
		&ownerKey,
		&baseName,
		&status,
		&masterURL,
		&failedStage,
		&errMsg,
		&job.Attempt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	job.OwnerKey = derefString(ownerKey)
	job.BaseName = derefString(baseName)
	job.MasterURL = derefString(masterURL)
	job.FailedStage = derefString(failedStage)
	job.Error = derefString(errMsg)

	return &job, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

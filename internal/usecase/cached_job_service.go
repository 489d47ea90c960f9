package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/cache"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
)

// CachedJobServiceConfig holds configuration for CachedJobService.
type CachedJobServiceConfig struct {
	// CacheTTL is the TTL for cached ledger entries.
	CacheTTL time.Duration
}

// DefaultCachedJobServiceConfig returns the default configuration.
func DefaultCachedJobServiceConfig() CachedJobServiceConfig {
	return CachedJobServiceConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// cachedJobService wraps JobService with caching capabilities.
// It implements the decorator pattern to add caching without modifying the original service.
type cachedJobService struct {
	delegate JobService
	cache    cache.JobCache
	sfGroup  singleflight.Group

	cacheTTL time.Duration
}

// NewCachedJobService creates a new JobService wrapping the provided one with a cache.
func NewCachedJobService(
	delegate JobService,
	jobCache cache.JobCache,
	cfg CachedJobServiceConfig,
) JobService {
	return &cachedJobService{
		delegate: delegate,
		cache:    jobCache,
		cacheTTL: cfg.CacheTTL,
	}
}

// GetJob retrieves a job with caching.
// Uses singleflight to prevent cache stampede on concurrent requests for the same job.
func (s *cachedJobService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	result, err, shared := s.sfGroup.Do(jobID.String(), func() (any, error) {
		return s.getJobWithCache(ctx, jobID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Copy so callers sharing a flight cannot mutate each other's result.
	job := *result.(*model.Job)
	return &job, nil
}

// ListOwnerJobs is not cached; listings change with every new upload.
func (s *cachedJobService) ListOwnerJobs(ctx context.Context, ownerKey string, limit int) ([]*model.Job, error) {
	return s.delegate.ListOwnerJobs(ctx, ownerKey, limit)
}

// getJobWithCache implements the cache-aside pattern.
func (s *cachedJobService) getJobWithCache(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	job, err := s.cache.Get(ctx, jobID)
	if err != nil {
		slog.Warn("cache get failed, falling back to database",
			"job_id", jobID,
			"error", err,
		)
	}

	if job != nil {
		return job, nil
	}

	job, err = s.delegate.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// PROCESSING entries are short-lived; only terminal states are worth caching.
	if job.Status == model.JobStatusProcessing {
		return job, nil
	}

	if err := s.cache.Set(ctx, job, s.cacheTTL); err != nil {
		slog.Warn("failed to cache job",
			"job_id", jobID,
			"error", err,
		)
	}

	return job, nil
}

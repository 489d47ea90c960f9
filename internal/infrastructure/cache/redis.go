package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	// jobCacheKeyPrefix is the prefix for job cache keys in Redis.
	jobCacheKeyPrefix = "job:"
)

// jobJSON is the JSON representation of a Job for caching.
// Using explicit struct avoids coupling to domain model's JSON tags.
type jobJSON struct {
	ID          string `json:"id"`
	Bucket      string `json:"bucket"`
	SourceKey   string `json:"source_key"`
	OwnerKey    string `json:"owner_key"`
	BaseName    string `json:"base_name"`
	Status      string `json:"status"`
	MasterURL   string `json:"master_url"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempt     int    `json:"attempt"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// RedisJobCache implements JobCache using Redis as the backing store.
type RedisJobCache struct {
	client *redis.Client
}

// Compile-time verification that RedisJobCache implements JobCache.
var _ JobCache = (*RedisJobCache)(nil)

// NewRedisJobCache creates a new Redis-backed job cache.
func NewRedisJobCache(client *redis.Client) *RedisJobCache {
	return &RedisJobCache{
		client: client,
	}
}

// Get retrieves a job from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisJobCache) Get(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	key := c.buildKey(jobID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusMiss)
			return nil, nil
		}
		recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	job, err := c.deserialize(data)
	if err != nil {
		recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("deserialize job: %w", err)
	}

	recordCacheOp(metrics.CacheOpGet, metrics.CacheStatusHit)
	return job, nil
}

// Set stores a job in Redis cache with the specified TTL.
func (c *RedisJobCache) Set(ctx context.Context, job *model.Job, ttl time.Duration) error {
	key := c.buildKey(job.ID)

	data, err := c.serialize(job)
	if err != nil {
		recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusError)
		return fmt.Errorf("serialize job: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusError)
		return fmt.Errorf("redis set: %w", err)
	}

	recordCacheOp(metrics.CacheOpSet, metrics.CacheStatusSuccess)
	return nil
}

// Delete removes a job from Redis cache.
func (c *RedisJobCache) Delete(ctx context.Context, jobID uuid.UUID) error {
	key := c.buildKey(jobID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		recordCacheOp(metrics.CacheOpDelete, metrics.CacheStatusError)
		return fmt.Errorf("redis del: %w", err)
	}

	recordCacheOp(metrics.CacheOpDelete, metrics.CacheStatusSuccess)
	return nil
}

// Ping verifies the Redis connection is alive.
func (c *RedisJobCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func recordCacheOp(op, status string) {
	metrics.CacheOperationsTotal.WithLabelValues(op, status, metrics.CacheTypeRedis).Inc()
}

// buildKey constructs the Redis key for a job.
func (c *RedisJobCache) buildKey(jobID uuid.UUID) string {
	return jobCacheKeyPrefix + jobID.String()
}

// serialize converts a Job to JSON bytes.
func (c *RedisJobCache) serialize(job *model.Job) ([]byte, error) {
	v := jobJSON{
		ID:          job.ID.String(),
		Bucket:      job.Bucket,
		SourceKey:   job.SourceKey,
		OwnerKey:    job.OwnerKey,
		BaseName:    job.BaseName,
		Status:      string(job.Status),
		MasterURL:   job.MasterURL,
		FailedStage: job.FailedStage,
		Error:       job.Error,
		Attempt:     job.Attempt,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a Job.
func (c *RedisJobCache) deserialize(data []byte) (*model.Job, error) {
	var v jobJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse job ID: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.Job{
		ID:          id,
		Bucket:      v.Bucket,
		SourceKey:   v.SourceKey,
		OwnerKey:    v.OwnerKey,
		BaseName:    v.BaseName,
		Status:      model.JobStatus(v.Status),
		MasterURL:   v.MasterURL,
		FailedStage: v.FailedStage,
		Error:       v.Error,
		Attempt:     v.Attempt,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/domain"
)

const scheduleKeyPrefix = "schedule:worker:"

// ScheduleInvalidator drops cached commitments after assignments change.
type ScheduleInvalidator interface {
	InvalidateWorkers(ctx context.Context, workerIDs []string) error
}

// CachedScheduleIndex serves repeated worker lookups from Redis.
// Each worker has a version counter; bumping it orphans every cached window for that worker.
// Workers whose bump failed are read from the store until a later bump succeeds.
type CachedScheduleIndex struct {
	next   ScheduleIndex
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	stale map[string]struct{}
}

type cachedAssignment struct {
	JobID      string    `json:"job_id"`
	WorkerID   string    `json:"worker_id"`
	WorkerName string    `json:"worker_name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// NewCachedScheduleIndex wraps next. A nil client or zero ttl disables caching.
func NewCachedScheduleIndex(next ScheduleIndex, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedScheduleIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedScheduleIndex{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
		stale:  make(map[string]struct{}),
	}
}

func (c *CachedScheduleIndex) enabled() bool {
	return c.client != nil && c.ttl > 0
}

func (c *CachedScheduleIndex) ListForWorker(ctx context.Context, workerID string, window domain.Interval) ([]domain.Assignment, error) {
	if !c.enabled() {
		return c.next.ListForWorker(ctx, workerID, window)
	}
	if c.isStale(workerID) {
		if err := c.bump(ctx, []string{workerID}); err != nil {
			return c.next.ListForWorker(ctx, workerID, window)
		}
	}

	version, err := c.client.Get(ctx, versionKey(workerID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("schedule cache unavailable", zap.String("worker_id", workerID), zap.Error(err))
		return c.next.ListForWorker(ctx, workerID, window)
	}
	key := windowKey(workerID, version, window)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached []cachedAssignment
		if err := json.Unmarshal(raw, &cached); err == nil {
			return fromCached(cached), nil
		}
		c.logger.Warn("discarding corrupt schedule cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("schedule cache read failed", zap.String("key", key), zap.Error(err))
	}

	assignments, err := c.next.ListForWorker(ctx, workerID, window)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(toCached(assignments)); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("schedule cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return assignments, nil
}

// InvalidateWorkers bumps each worker's version counter. On failure the
// workers bypass the cache until a bump goes through.
func (c *CachedScheduleIndex) InvalidateWorkers(ctx context.Context, workerIDs []string) error {
	if !c.enabled() || len(workerIDs) == 0 {
		return nil
	}
	return c.bump(ctx, workerIDs)
}

func (c *CachedScheduleIndex) bump(ctx context.Context, workerIDs []string) error {
	pipe := c.client.TxPipeline()
	for _, id := range workerIDs {
		pipe.Incr(ctx, versionKey(id))
	}
	_, err := pipe.Exec(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range workerIDs {
		if err != nil {
			c.stale[id] = struct{}{}
		} else {
			delete(c.stale, id)
		}
	}
	return err
}

func (c *CachedScheduleIndex) isStale(workerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[workerID]
	return ok
}

func versionKey(workerID string) string {
	return scheduleKeyPrefix + workerID + ":version"
}

func windowKey(workerID string, version int64, window domain.Interval) string {
	return fmt.Sprintf("%s%s:v%d:%d:%d", scheduleKeyPrefix, workerID, version, window.Start.Unix(), window.End.Unix())
}

func toCached(in []domain.Assignment) []cachedAssignment {
	out := make([]cachedAssignment, 0, len(in))
	for _, a := range in {
		out = append(out, cachedAssignment{
			JobID:      a.JobID,
			WorkerID:   a.WorkerID,
			WorkerName: a.WorkerName,
			Start:      a.Interval.Start,
			End:        a.Interval.End,
		})
	}
	return out
}

func fromCached(in []cachedAssignment) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Assignment{
			JobID:      a.JobID,
			WorkerID:   a.WorkerID,
			WorkerName: a.WorkerName,
			Interval:   domain.Interval{Start: a.Start, End: a.End},
		})
	}
	return out
}

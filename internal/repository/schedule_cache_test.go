package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/domain"
)

type countingIndex struct {
	calls       int
	assignments []domain.Assignment
	err         error
}

func (c *countingIndex) ListForWorker(_ context.Context, _ string, _ domain.Interval) ([]domain.Assignment, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.assignments, nil
}

func setupCache(t *testing.T, next ScheduleIndex) (*miniredis.Miniredis, *CachedScheduleIndex) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewCachedScheduleIndex(next, client, time.Minute, zap.NewNop())
}

func testWindow() domain.Interval {
	return domain.Interval{
		Start: time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 10, 6, 23, 59, 0, 0, time.UTC),
	}
}

func TestCachedScheduleIndex_HitAfterMiss(t *testing.T) {
	existing := domain.Assignment{
		JobID:      "J-100",
		WorkerID:   "w-1",
		WorkerName: "Wendy",
		Interval: domain.Interval{
			Start: time.Date(2024, 10, 6, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC),
		},
	}
	next := &countingIndex{assignments: []domain.Assignment{existing}}
	_, cache := setupCache(t, next)
	ctx := context.Background()

	first, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)
	second, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].JobID, second[0].JobID)
	assert.True(t, first[0].Interval.Equal(second[0].Interval))
}

func TestCachedScheduleIndex_InvalidateWorkers(t *testing.T) {
	next := &countingIndex{}
	mr, cache := setupCache(t, next)
	ctx := context.Background()

	_, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateWorkers(ctx, []string{"w-1"}))
	_, err = cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
	version, err := mr.Get(versionKey("w-1"))
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestCachedScheduleIndex_ErrorsAreNotCached(t *testing.T) {
	next := &countingIndex{err: errors.New("store unavailable")}
	mr, cache := setupCache(t, next)

	_, err := cache.ListForWorker(context.Background(), "w-1", testWindow())
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCachedScheduleIndex_RedisDownFallsBackToStore(t *testing.T) {
	next := &countingIndex{}
	mr, cache := setupCache(t, next)
	mr.Close()

	_, err := cache.ListForWorker(context.Background(), "w-1", testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestCachedScheduleIndex_DisabledPassesThrough(t *testing.T) {
	next := &countingIndex{}
	cache := NewCachedScheduleIndex(next, nil, time.Minute, nil)

	_, err := cache.ListForWorker(context.Background(), "w-1", testWindow())
	require.NoError(t, err)
	_, err = cache.ListForWorker(context.Background(), "w-1", testWindow())
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
	require.NoError(t, cache.InvalidateWorkers(context.Background(), []string{"w-1"}))
}

func TestCachedScheduleIndex_FailedInvalidationBypassesStaleEntry(t *testing.T) {
	next := &countingIndex{}
	mr, cache := setupCache(t, next)
	ctx := context.Background()

	empty, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)
	require.Empty(t, empty)

	next.assignments = []domain.Assignment{{
		JobID:    "J-200",
		WorkerID: "w-1",
		Interval: domain.Interval{
			Start: time.Date(2024, 10, 6, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC),
		},
	}}
	mr.Close()
	require.Error(t, cache.InvalidateWorkers(ctx, []string{"w-1"}))
	require.NoError(t, mr.Restart())

	seen, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "J-200", seen[0].JobID)
	assert.Equal(t, 2, next.calls)

	again, err := cache.ListForWorker(ctx, "w-1", testWindow())
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, 2, next.calls)
	assert.False(t, cache.isStale("w-1"))
}

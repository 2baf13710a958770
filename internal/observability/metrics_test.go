package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_SchedulingCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordConflictCheck(false, 2, 1)
	m.RecordConflictCheck(true, 0, 0)
	m.RecordOverride()

	got := m.Scheduling()
	assert.Equal(t, int64(2), got.Checks)
	assert.Equal(t, int64(1), got.ShortCircuits)
	assert.Equal(t, int64(2), got.Conflicts)
	assert.Equal(t, int64(1), got.UnknownWorkers)
	assert.Equal(t, int64(1), got.OverriddenSaves)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/jobs", "POST", 201, time.Millisecond)
	m.RecordError("/jobs", "POST", "VALIDATION_FAILED")
	m.RecordConflictCheck(false, 1, 0)
	m.RecordTransition("CLOSED")

	assert.Zero(t, m.Scheduling().Checks)
	assert.Zero(t, m.Transitions("CLOSED"))
}

func TestMetrics_Requests(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/jobs/:id", "GET", 200, time.Millisecond)
	m.RecordRequest("/jobs/:id", "GET", 200, time.Millisecond)
	m.RecordError("/jobs/:id", "GET", "NOT_FOUND")

	assert.Equal(t, int64(2), m.Requests("/jobs/:id", "GET", 200))
	assert.Equal(t, int64(1), m.Errors("/jobs/:id", "GET", "NOT_FOUND"))
}

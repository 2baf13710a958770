package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	scheduling   SchedulingCounters
	transitions  map[string]int64
}

// SchedulingCounters summarises conflict check outcomes.
type SchedulingCounters struct {
	Checks          int64
	ShortCircuits   int64
	Conflicts       int64
	UnknownWorkers  int64
	OverriddenSaves int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		transitions:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordConflictCheck counts one conflict check.
func (m *Metrics) RecordConflictCheck(shortCircuited bool, conflicts, unknownWorkers int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduling.Checks++
	if shortCircuited {
		m.scheduling.ShortCircuits++
	}
	m.scheduling.Conflicts += int64(conflicts)
	m.scheduling.UnknownWorkers += int64(unknownWorkers)
}

// RecordOverride counts a job save that proceeded despite reported conflicts.
func (m *Metrics) RecordOverride() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduling.OverriddenSaves++
}

// RecordTransition counts follow-up status changes by target status.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[status]++
}

// Scheduling returns a snapshot of the conflict check counters.
func (m *Metrics) Scheduling() SchedulingCounters {
	if m == nil {
		return SchedulingCounters{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduling
}

// Transitions returns the count of transitions into status.
func (m *Metrics) Transitions(status string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[status]
}

// Requests returns the number of requests recorded for a path, method and status.
func (m *Metrics) Requests(path, method string, status int) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[pathKey(path, method, status)]
}

// Errors returns the number of errors recorded for a path, method and code.
func (m *Metrics) Errors(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount[path+"|"+method+"|"+code]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

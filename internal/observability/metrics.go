package observability

import (
	"strconv"
	"sync"
)

// Metrics provides basic in-memory counters for requests and triage
// pipeline runs.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	stepCount    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		stepCount:    make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
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

// RecordStep increments the counter for a pipeline step outcome, for
// example ("analyze", "fallback") or ("assign", "ok").
func (m *Metrics) RecordStep(step, outcome string) {
	if m == nil {
		return
	}
	key := step + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepCount[key]++
}

// StepCount returns the current count for a step outcome.
func (m *Metrics) StepCount(step, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepCount[step+"|"+outcome]
}

package metrics

import (
	"sync"
	"time"
)

// timer aggregates durations for one name
type timer struct {
	count   int64
	totalMs int64
	minMs   int64
	maxMs   int64
}

// Metrics is a small in-process collector exposed on /metrics. It tracks
// counters, gauges, timers and named health checks.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]int64
	gauges    map[string]int64
	timers    map[string]*timer
	health    map[string]bool
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		gauges:    make(map[string]int64),
		timers:    make(map[string]*timer),
		health:    make(map[string]bool),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the given value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

// RecordTimer records one duration measurement
func (m *Metrics) RecordTimer(name string, d time.Duration) {
	ms := d.Milliseconds()
	m.mu.Lock()
	t, ok := m.timers[name]
	if !ok {
		t = &timer{minMs: ms, maxMs: ms}
		m.timers[name] = t
	}
	t.count++
	t.totalMs += ms
	if ms < t.minMs {
		t.minMs = ms
	}
	if ms > t.maxMs {
		t.maxMs = ms
	}
	m.mu.Unlock()
}

// SetHealthCheck records the state of a named dependency
func (m *Metrics) SetHealthCheck(name string, healthy bool) {
	m.mu.Lock()
	m.health[name] = healthy
	m.mu.Unlock()
}

// GetHealthChecks returns a copy of all health check states
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.health))
	for k, v := range m.health {
		out[k] = v
	}
	return out
}

// TimerSnapshot is the exported view of a timer
type TimerSnapshot struct {
	Count     int64   `json:"count"`
	TotalMs   int64   `json:"total_ms"`
	AverageMs float64 `json:"average_ms"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
}

// Snapshot is the full metrics view returned by /metrics
type Snapshot struct {
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Counters      map[string]int64         `json:"counters"`
	Gauges        map[string]int64         `json:"gauges"`
	Timers        map[string]TimerSnapshot `json:"timers"`
	Health        map[string]bool          `json:"health"`
}

// GetSnapshot returns a copy of all current metric values
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		Counters:      make(map[string]int64, len(m.counters)),
		Gauges:        make(map[string]int64, len(m.gauges)),
		Timers:        make(map[string]TimerSnapshot, len(m.timers)),
		Health:        make(map[string]bool, len(m.health)),
	}
	for k, v := range m.counters {
		snap.Counters[k] = v
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}
	for k, t := range m.timers {
		ts := TimerSnapshot{Count: t.count, TotalMs: t.totalMs, MinMs: t.minMs, MaxMs: t.maxMs}
		if t.count > 0 {
			ts.AverageMs = float64(t.totalMs) / float64(t.count)
		}
		snap.Timers[k] = ts
	}
	for k, v := range m.health {
		snap.Health[k] = v
	}
	return snap
}

// GetCounter returns the current value of a counter
func (m *Metrics) GetCounter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

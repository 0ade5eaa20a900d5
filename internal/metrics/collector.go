// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single pipeline stage.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the run statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Extract       *OperationSnapshot
	Query         *OperationSnapshot
	Render        *OperationSnapshot
	Write         *OperationSnapshot
	Counters      map[string]int64
}

// Operation names for the collector.
const (
	OpExtract = "extract"
	OpQuery   = "query"
	OpRender  = "render"
	OpWrite   = "write"
)

// Counter names.
const (
	CounterRowDecodeErrors = "row_decode_errors"
	CounterOrphanNodes     = "orphan_nodes"
	CounterConversations   = "conversations"
	CounterMessages        = "messages"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	counters  map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		counters:  make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Time starts timing op; call the returned func when the stage ends.
func (c *Collector) Time(op string) func() {
	start := time.Now()
	return func() { c.RecordTiming(op, time.Since(start)) }
}

// Add increments a named counter by n.
func (c *Collector) Add(counter string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[counter] += n
}

// Counter returns the current value of a counter.
func (c *Collector) Counter(counter string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[counter]
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counters := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		counters[k] = v
	}

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Extract:       snapshotOp(c.ops[OpExtract]),
		Query:         snapshotOp(c.ops[OpQuery]),
		Render:        snapshotOp(c.ops[OpRender]),
		Write:         snapshotOp(c.ops[OpWrite]),
		Counters:      counters,
	}
}

// Stages returns the recorded stages in pipeline order, skipping empty ones.
func (s Snapshot) Stages() []NamedSnapshot {
	var out []NamedSnapshot
	for _, st := range []NamedSnapshot{
		{OpExtract, s.Extract},
		{OpQuery, s.Query},
		{OpRender, s.Render},
		{OpWrite, s.Write},
	} {
		if st.Snapshot != nil {
			out = append(out, st)
		}
	}
	return out
}

// NamedSnapshot pairs a stage name with its stats.
type NamedSnapshot struct {
	Name     string
	Snapshot *OperationSnapshot
}

// CounterNames returns counter names in sorted order.
func (s Snapshot) CounterNames() []string {
	names := make([]string, 0, len(s.Counters))
	for k := range s.Counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

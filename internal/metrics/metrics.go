// Package metrics holds the worker pool's counters.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

// PoolCounters are monotonically increasing pool totals. The zero value is
// ready to use and safe for concurrent updates.
type PoolCounters struct {
	Spawned    atomic.Int64
	Reaped     atomic.Int64
	Crashed    atomic.Int64
	Dispatched atomic.Int64
	Completed  atomic.Int64
	Failed     atomic.Int64
	Aborted    atomic.Int64
	TimedOut   atomic.Int64
	Terminated atomic.Int64
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	// Gauges
	LiveWorkers int `json:"live_workers"`
	BusyWorkers int `json:"busy_workers"`
	Queued      int `json:"queued"`

	// Totals
	Spawned    int64 `json:"spawned"`
	Reaped     int64 `json:"reaped"`
	Crashed    int64 `json:"crashed"`
	Dispatched int64 `json:"dispatched"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Aborted    int64 `json:"aborted"`
	TimedOut   int64 `json:"timed_out"`
	Terminated int64 `json:"terminated"`

	TakenAt time.Time `json:"taken_at"`
}

// Snapshot copies the counters into a PoolStats with the given gauges.
func (c *PoolCounters) Snapshot(live, busy, queued int) PoolStats {
	return PoolStats{
		LiveWorkers: live,
		BusyWorkers: busy,
		Queued:      queued,
		Spawned:     c.Spawned.Load(),
		Reaped:      c.Reaped.Load(),
		Crashed:     c.Crashed.Load(),
		Dispatched:  c.Dispatched.Load(),
		Completed:   c.Completed.Load(),
		Failed:      c.Failed.Load(),
		Aborted:     c.Aborted.Load(),
		TimedOut:    c.TimedOut.Load(),
		Terminated:  c.Terminated.Load(),
		TakenAt:     time.Now(),
	}
}

// SuccessRate returns completed / dispatched as a percentage (0-100).
func (s PoolStats) SuccessRate() float64 {
	if s.Dispatched == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Dispatched) * 100
}

// FormatWorkers returns a compact worker gauge (e.g., "2/3 busy").
func (s PoolStats) FormatWorkers() string {
	return fmt.Sprintf("%d/%d busy", s.BusyWorkers, s.LiveWorkers)
}

// Pending returns invocations that have been dispatched but not yet settled.
func (s PoolStats) Pending() int64 {
	return s.Dispatched - s.Completed - s.Failed
}

// Package stats holds the server's monotonic counters: uptime, active
// connections and total requests served.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats tracks server-lifetime counters. The zero value is not usable;
// construct with New so the start timestamp is recorded.
type Stats struct {
	start         time.Time
	active        atomic.Int64
	totalRequests atomic.Uint64
}

// New creates a Stats with the start timestamp set to now.
func New() *Stats {
	return &Stats{start: time.Now()}
}

// IncActive records one more admitted, in-flight connection.
func (s *Stats) IncActive() { s.active.Add(1) }

// DecActive records the completion of one connection. Every IncActive call
// must be paired with exactly one DecActive on every exit path.
func (s *Stats) DecActive() { s.active.Add(-1) }

// Active returns the current number of admitted, in-flight connections.
func (s *Stats) Active() int64 { return s.active.Load() }

// IncRequests records one more successfully dispatched request.
func (s *Stats) IncRequests() { s.totalRequests.Add(1) }

// TotalRequests returns the number of requests dispatched since start.
func (s *Stats) TotalRequests() uint64 { return s.totalRequests.Load() }

// UptimeSeconds returns whole seconds elapsed since the Stats was created.
func (s *Stats) UptimeSeconds() int64 {
	return int64(time.Since(s.start) / time.Second)
}

// Package stats provides utilities for tracking score recompute statistics.
package stats

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// RecomputeStats tracks cumulative statistics for score recompute runs.
// All operations are thread-safe using atomic counters.
type RecomputeStats struct {
	runs           int64 // Total completed recompute runs
	viewersScored  int64 // Total viewer scores written across runs
	zeroLogViewers int64 // Total viewers assigned 0.00 for having no logs
}

// NewRecomputeStats creates a new RecomputeStats instance.
func NewRecomputeStats() *RecomputeStats {
	return &RecomputeStats{}
}

// RecordRun records one completed recompute run.
func (s *RecomputeStats) RecordRun(viewersScored, zeroLogViewers int) {
	atomic.AddInt64(&s.runs, 1)
	atomic.AddInt64(&s.viewersScored, int64(viewersScored))
	atomic.AddInt64(&s.zeroLogViewers, int64(zeroLogViewers))
}

// Runs returns the total number of completed runs.
func (s *RecomputeStats) Runs() int64 {
	return atomic.LoadInt64(&s.runs)
}

// ViewersScored returns the total number of viewer scores written.
func (s *RecomputeStats) ViewersScored() int64 {
	return atomic.LoadInt64(&s.viewersScored)
}

// ZeroLogViewers returns the total number of zero-log viewers encountered.
func (s *RecomputeStats) ZeroLogViewers() int64 {
	return atomic.LoadInt64(&s.zeroLogViewers)
}

// Reset resets all counters to zero.
func (s *RecomputeStats) Reset() {
	atomic.StoreInt64(&s.runs, 0)
	atomic.StoreInt64(&s.viewersScored, 0)
	atomic.StoreInt64(&s.zeroLogViewers, 0)
}

// String returns a human-readable summary of the statistics.
func (s *RecomputeStats) String() string {
	return fmt.Sprintf("runs=%d viewers_scored=%d zero_log_viewers=%d",
		s.Runs(), s.ViewersScored(), s.ZeroLogViewers())
}

// LogSummary logs a summary of recompute statistics at INFO level.
// Useful for periodic reporting from the scorer.
func (s *RecomputeStats) LogSummary(logger *slog.Logger) {
	logger.Info("score recompute statistics",
		"runs", s.Runs(),
		"viewers_scored", s.ViewersScored(),
		"zero_log_viewers", s.ZeroLogViewers(),
	)
}

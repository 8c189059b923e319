package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/filmlore/nichecast/internal/catalog"
)

// mockJobMetrics records centralized job metric calls for verification.
type mockJobMetrics struct {
	mu        sync.Mutex
	totals    map[string]int // "jobType/status" -> count
	durations int
	errs      map[string]int // "jobType/errorType" -> count
}

func newMockJobMetrics() *mockJobMetrics {
	return &mockJobMetrics{
		totals: make(map[string]int),
		errs:   make(map[string]int),
	}
}

func (m *mockJobMetrics) IncJobsTotal(jobType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[jobType+"/"+status]++
}

func (m *mockJobMetrics) ObserveJobDuration(jobType string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *mockJobMetrics) IncJobErrors(jobType, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[jobType+"/"+errorType]++
}

func (m *mockJobMetrics) total(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[key]
}

func (m *mockJobMetrics) errCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[key]
}

func TestRecomputeJob_RunOnce(t *testing.T) {
	store := newTestStore()
	store.AddViewer(catalog.Viewer{ID: 1})
	store.AddViewer(catalog.Viewer{ID: 2})
	store.AddMediaAsset(catalog.MediaAsset{ID: 10, PopularityRankIndex: 50})
	addLog(store, 1, 1, 10, 8, 4)

	jm := newMockJobMetrics()
	job := NewRecomputeJob(RecomputeJobConfig{
		Metrics:    NewMetrics(),
		JobMetrics: jm,
	}, NewEngine(store, RewardMainstream, nil))

	job.RunOnce(context.Background())

	if got := job.Stats().Runs(); got != 1 {
		t.Errorf("expected 1 recorded run, got %d", got)
	}
	if got := job.Stats().ViewersScored(); got != 2 {
		t.Errorf("expected 2 viewers scored, got %d", got)
	}
	if got := job.Stats().ZeroLogViewers(); got != 1 {
		t.Errorf("expected 1 zero-log viewer, got %d", got)
	}
	if got := jm.total(JobTypeScoreRecompute + "/success"); got != 1 {
		t.Errorf("expected 1 success job metric, got %d", got)
	}
}

func TestRecomputeJob_RunOnceFailure(t *testing.T) {
	store := newTestStore()
	store.AddViewer(catalog.Viewer{ID: 1})
	addLog(store, 1, 1, 999, 8, 4) // missing asset

	jm := newMockJobMetrics()
	job := NewRecomputeJob(RecomputeJobConfig{
		JobMetrics: jm,
	}, NewEngine(store, RewardMainstream, nil))

	job.RunOnce(context.Background())

	if got := job.Stats().Runs(); got != 0 {
		t.Errorf("failed run should not be recorded, got %d runs", got)
	}
	if got := jm.total(JobTypeScoreRecompute + "/failure"); got != 1 {
		t.Errorf("expected 1 failure job metric, got %d", got)
	}
	if got := jm.errCount(JobTypeScoreRecompute + "/data_integrity"); got != 1 {
		t.Errorf("expected data_integrity error metric, got %d", got)
	}
}

func TestRecomputeJob_StartStop(t *testing.T) {
	store := newTestStore()
	store.AddViewer(catalog.Viewer{ID: 1})

	job := NewRecomputeJob(RecomputeJobConfig{
		Interval: time.Hour, // never ticks during the test
	}, NewEngine(store, RewardMainstream, nil))

	if job.IsRunning() {
		t.Fatal("job should not be running before Start")
	}
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !job.IsRunning() {
		t.Fatal("job should be running after Start")
	}

	// Starting again is a no-op, not an error.
	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	job.Stop()
	if job.IsRunning() {
		t.Fatal("job should not be running after Stop")
	}

	// Stopping again is safe.
	job.Stop()
}

func TestRecomputeJob_Defaults(t *testing.T) {
	job := NewRecomputeJob(RecomputeJobConfig{}, nil)
	if job.config.Interval != DefaultRecomputeInterval {
		t.Errorf("expected default interval %v, got %v", DefaultRecomputeInterval, job.config.Interval)
	}
	if job.config.Timeout != DefaultRecomputeTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultRecomputeTimeout, job.config.Timeout)
	}
	if job.config.Logger == nil {
		t.Error("expected default logger to be set")
	}
}

package scoring

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/stats"
)

// JobMetrics provides centralized background job metrics tracking.
// This interface allows the job to report to the centralized job metrics system.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Job type label for centralized job metrics.
const JobTypeScoreRecompute = "niche_score_recompute"

// DefaultRecomputeInterval is the default interval between recompute cycles.
const DefaultRecomputeInterval = 15 * time.Minute

// DefaultRecomputeTimeout is the default timeout for a single recompute cycle.
const DefaultRecomputeTimeout = 2 * time.Minute

// RecomputeJobConfig configures the score recompute job.
type RecomputeJobConfig struct {
	// Interval is the duration between recompute cycles.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for performance tracking.
	Metrics *Metrics
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
	// Timeout for each recompute cycle.
	Timeout time.Duration
}

// RecomputeJob periodically recalculates every viewer's niche affinity score.
// Each cycle is idempotent, so a failed cycle is simply retried on the next tick.
type RecomputeJob struct {
	config RecomputeJobConfig
	engine *Engine
	stats  *stats.RecomputeStats

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecomputeJob creates a new score recompute job.
func NewRecomputeJob(config RecomputeJobConfig, engine *Engine) *RecomputeJob {
	if config.Interval == 0 {
		config.Interval = DefaultRecomputeInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRecomputeTimeout
	}
	return &RecomputeJob{
		config: config,
		engine: engine,
		stats:  stats.NewRecomputeStats(),
	}
}

// Stats returns the cumulative recompute statistics for this job.
func (j *RecomputeJob) Stats() *stats.RecomputeStats {
	return j.stats
}

// Start begins the periodic recompute job.
// Returns immediately; the job runs in a background goroutine.
func (j *RecomputeJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the recompute job to stop and waits for it to finish.
func (j *RecomputeJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *RecomputeJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the recompute job.
func (j *RecomputeJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("score recompute job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("score recompute job stopping due to stop signal")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single recompute cycle with the configured timeout and
// records metrics. Safe to call directly for one-shot runs.
func (j *RecomputeJob) RunOnce(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	startTime := time.Now()
	result, err := j.engine.Recalculate(ctx)
	duration := time.Since(startTime).Seconds()

	if j.config.Metrics != nil {
		j.config.Metrics.IncRecomputeTotal()
		j.config.Metrics.ObserveRecomputeDuration(duration)
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.ObserveJobDuration(JobTypeScoreRecompute, duration)
	}

	if err != nil {
		j.config.Logger.Error("score recompute failed",
			"error", err,
			"duration_seconds", duration,
		)
		if j.config.Metrics != nil {
			j.config.Metrics.IncRecomputeErrors()
		}
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobsTotal(JobTypeScoreRecompute, "failure")
			j.config.JobMetrics.IncJobErrors(JobTypeScoreRecompute, errorType(err))
		}
		return
	}

	j.stats.RecordRun(result.ViewersScored, result.ZeroLogViewers)
	if j.config.Metrics != nil {
		j.config.Metrics.SetLastRecompute(float64(time.Now().Unix()), result.ViewersScored)
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(JobTypeScoreRecompute, "success")
	}

	j.config.Logger.Info("score recompute cycle completed",
		"viewers", result.ViewersScored,
		"zero_log_viewers", result.ZeroLogViewers,
		"duration_seconds", duration,
	)
}

// errorType classifies a recompute error for metric labeling.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, catalog.ErrDataIntegrity):
		return "data_integrity"
	default:
		return "store_error"
	}
}

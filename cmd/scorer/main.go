// Package main is the entry point for the standalone score recompute worker.
// It runs the same recompute job as the API server, either once for batch
// invocations or on an interval for long-lived deployments.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/config"
	"github.com/filmlore/nichecast/internal/jobs"
	"github.com/filmlore/nichecast/internal/middleware"
	"github.com/filmlore/nichecast/internal/scoring"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	once := flag.Bool("once", false, "run a single recompute cycle and exit")
	configPath := flag.String("config", "", "path to optional YAML config file")
	metricsAddr := flag.String("metrics-addr", ":9091", "listen address for the /metrics endpoint")
	flag.Parse()

	if *help {
		fmt.Println("Nichecast Score Recompute Worker")
		fmt.Println()
		fmt.Println("Usage: scorer [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := catalog.NewPostgresStore(db, logger)

	multiplier, err := scoring.MultiplierByName(cfg.NicheMultiplier)
	if err != nil {
		logger.Error("invalid niche multiplier", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scoreMetrics := scoring.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, m := range []interface {
		Register(prometheus.Registerer) error
	}{scoreMetrics, jobMetrics} {
		if err := m.Register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	engine := scoring.NewEngine(store, multiplier, logger)
	job := scoring.NewRecomputeJob(scoring.RecomputeJobConfig{
		Interval:   cfg.ScoreRecomputeInterval,
		Timeout:    cfg.ScoreRecomputeTimeout,
		Logger:     logger,
		Metrics:    scoreMetrics,
		JobMetrics: jobMetrics,
	}, engine)

	if *once {
		job.RunOnce(context.Background())
		job.Stats().LogSummary(logger)
		return
	}

	// Expose the registered collectors for scraping while the worker runs.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:         *metricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", "addr", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := job.Start(ctx); err != nil {
		logger.Error("failed to start score recompute job", "error", err)
		os.Exit(1)
	}
	logger.Info("score recompute worker started",
		"interval", cfg.ScoreRecomputeInterval.String(),
		"timeout", cfg.ScoreRecomputeTimeout.String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down score recompute worker...")
	job.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server forced to shutdown", "error", err)
	}

	job.Stats().LogSummary(logger)
	logger.Info("worker stopped")
}

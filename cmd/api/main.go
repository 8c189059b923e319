// Package main is the entry point for the API server.
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
	"github.com/redis/go-redis/v9"

	"github.com/filmlore/nichecast/internal/affinity"
	"github.com/filmlore/nichecast/internal/api"
	"github.com/filmlore/nichecast/internal/bias"
	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/config"
	"github.com/filmlore/nichecast/internal/health"
	"github.com/filmlore/nichecast/internal/jobs"
	"github.com/filmlore/nichecast/internal/middleware"
	"github.com/filmlore/nichecast/internal/profile"
	"github.com/filmlore/nichecast/internal/recommend"
	"github.com/filmlore/nichecast/internal/scoring"
	"github.com/filmlore/nichecast/internal/similarity"
	"github.com/filmlore/nichecast/internal/tracing"
)

const serviceName = "nichecast-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Nichecast API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
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

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Initialize tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Open the catalog database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := catalog.NewPostgresStore(db, logger)

	// Optional Redis recommendation cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	}

	// Metrics registry with process and Go runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics := middleware.NewMetrics()
	scoreMetrics := scoring.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, m := range []interface {
		Register(prometheus.Registerer) error
	}{httpMetrics, scoreMetrics, jobMetrics} {
		if err := m.Register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	// Score recompute engine and background job
	multiplier, err := scoring.MultiplierByName(cfg.NicheMultiplier)
	if err != nil {
		logger.Error("invalid niche multiplier", "error", err)
		os.Exit(1)
	}
	scoreEngine := scoring.NewEngine(store, multiplier, logger)
	recomputeJob := scoring.NewRecomputeJob(scoring.RecomputeJobConfig{
		Interval:   cfg.ScoreRecomputeInterval,
		Timeout:    cfg.ScoreRecomputeTimeout,
		Logger:     logger,
		Metrics:    scoreMetrics,
		JobMetrics: jobMetrics,
	}, scoreEngine)

	// Analysis engines
	similarEngine := similarity.NewEngine(store)
	biasProfiler := bias.NewProfiler(store)
	affinityExplorer := affinity.NewExplorer(store)
	profileGenerator := profile.NewGenerator(store, profile.DefaultClassifier)

	// Blender with optional calibrated weights and optional cache
	weights := recommend.DefaultBlendWeights()
	if cfg.CalibrationPath != "" {
		weights, err = recommend.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			logger.Error("failed to load blend calibration", "error", err)
			os.Exit(1)
		}
	}
	var recommender recommend.Recommender = recommend.NewBlender(
		store, similarEngine, biasProfiler, weights, logger)
	if redisClient != nil {
		recommender = recommend.NewCachedRecommender(recommender, redisClient, 0, logger)
	}

	// HTTP routes
	mux := http.NewServeMux()

	handlers := api.NewHandlers(scoreEngine, similarEngine, biasProfiler,
		affinityExplorer, recommender, profileGenerator, logger)
	handlers.RegisterRoutes(mux)

	healthConfig := api.HealthHandlersConfig{DBChecker: health.NewDBChecker(db)}
	if redisClient != nil {
		healthConfig.CacheChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"nichecast-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: RequestID -> Tracing -> Logging -> HTTPMetrics
	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the periodic score recompute alongside the server
	jobCtx, cancelJob := context.WithCancel(context.Background())
	defer cancelJob()
	if err := recomputeJob.Start(jobCtx); err != nil {
		logger.Error("failed to start score recompute job", "error", err)
		os.Exit(1)
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	recomputeJob.Stop()

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}

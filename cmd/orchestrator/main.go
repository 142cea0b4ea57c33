// orchestrator tracks jobs and services, answers cancel requests and
// publishes monitor records.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobcore/internal/api"
	"jobcore/internal/config"
	"jobcore/internal/dispatcher"
	"jobcore/internal/health"
	"jobcore/internal/job"
	"jobcore/internal/monitor"
	"jobcore/internal/observability"
	"jobcore/pkg/jobid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg := config.LoadServiceConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: svcCfg.LogLevel})))

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	healthChecker := health.NewChecker()
	healthChecker.Register("signature", true,
		health.Secret(svcCfg.SignatureRequired, svcCfg.SignatureKey, "DUCC_SIGNATURE_KEY_FILE"))

	// Monitor records are only delivered when a callback is configured
	tracker := monitor.NewTracker()
	var publisher *monitor.Publisher
	var eventDispatcher *dispatcher.MemoryDispatcher
	if svcCfg.MonitorCallbackURL != "" {
		dispatcherCfg := dispatcher.LoadConfigFromEnv()
		eventDispatcher = dispatcher.NewMemory(dispatcherCfg, metrics)
		publisher = monitor.NewPublisher(eventDispatcher, tracker, svcCfg.MonitorCallbackURL, svcCfg.MonitorSecret)
		healthChecker.Register("publisher", false,
			health.QueueSaturation(func() int { return eventDispatcher.Stats().QueueDepth }, dispatcherCfg.BufferSize, 0.9))
		slog.Info("Monitor publishing enabled", "destination", svcCfg.MonitorCallbackURL)
	} else {
		publisher = monitor.NewPublisher(nil, tracker, "", "")
		slog.Info("Monitor publishing disabled - no MONITOR_CALLBACK_URL configured")
	}

	// Create job service
	jobService := job.NewService(job.NewRegistry(), jobid.NewGenerator(1), metrics, publisher)

	// Completed jobs stay queryable for the retention period
	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	defer stopMaintenance()
	go jobService.RunMaintenance(maintenanceCtx, svcCfg.MaintenanceInterval, svcCfg.JobRetention)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		JobService:    jobService,
		Tracker:       tracker,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		CancelPolicy:  api.NewCancelPolicy(svcCfg.SignatureRequired, svcCfg.SignatureKey, svcCfg.Administrators),
		APIKey:        svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}
	if svcCfg.SignatureRequired {
		slog.Info("Cancel request signatures required")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 2)

	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: deliver the monitor records still queued
	if eventDispatcher != nil {
		slog.Info("Draining monitor publisher")
		dispatcherCtx, dispatcherCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dispatcherCancel()
		if err := eventDispatcher.Close(dispatcherCtx); err != nil {
			slog.Warn("Dispatcher shutdown error", "error", err)
		}

		stats := eventDispatcher.Stats()
		slog.Info("Dispatcher stats",
			"delivered", stats.Delivered,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
			"throttled", stats.Throttled,
		)
	}

	slog.Info("Shutdown complete", "jobs", len(jobService.List()))
	return nil
}

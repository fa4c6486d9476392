// Package main provides the entry point for the paper triage HTTP API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/config"
	httpserver "github.com/helixir/paper-triage-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg, "server")
	logger.Info().Msg("paper-triage-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := app.NewMetrics(cfg)

	a, err := app.Build(ctx, cfg, logger, app.Options{Metrics: metrics, RunMigrations: true})
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info().
		Str("llm_provider", cfg.LLM.Provider).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("pipeline assembled")

	httpCfg := httpserver.Config{
		Address:           cfg.Server.HTTPAddress(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		CronSecret:        cfg.Server.CronSecret,
		MaxSeedsManual:    cfg.Citation.MaxSeedsManual,
		MaxSeedsScheduled: cfg.Citation.MaxSeedsScheduled,
		RescoreLimit:      cfg.Collection.RescoreLimit,
	}
	if httpCfg.CronSecret == "" {
		logger.Warn().Msg("cron secret not set; /cron endpoints are unauthenticated")
	}

	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Health:            a.DB,
		Papers:            a.Repos.Papers,
		Keywords:          a.Repos.Keywords,
		Feeds:             a.Repos.Feeds,
		Interests:         a.Repos.Interests,
		Settings:          a.Repos.Settings,
		Logs:              a.Repos.Logs,
		Feedback:          a.Repos.Feedback,
		Publisher:         a.Publisher,
		Scorer:            a.Scorer,
		KeywordCollector:  a.Keywords,
		FeedCollector:     a.Feeds,
		CitationCollector: a.Citations,
		Combined:          a.Combined,
		Rescorer:          a.Rescorer,
		Metrics:           metrics,
	}, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: 30 * time.Second,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-triage-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-triage-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-triage-service shutdown complete")
	return nil
}

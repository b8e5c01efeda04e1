package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicstack/noshow-engine/internal/api"
	"github.com/clinicstack/noshow-engine/internal/config"
	"github.com/clinicstack/noshow-engine/internal/dataset"
	"github.com/clinicstack/noshow-engine/internal/engine"
	"github.com/clinicstack/noshow-engine/internal/metrics"
	"github.com/clinicstack/noshow-engine/internal/predictor"
	"github.com/clinicstack/noshow-engine/internal/services"
	"github.com/clinicstack/noshow-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger("noshow-engine", cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting noshow-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var store *dataset.Store
	if cfg.Dataset.Path != "" {
		store, err = dataset.LoadFile(cfg.Dataset.Path)
	} else {
		store, err = dataset.Load()
	}
	if err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset loaded",
		slog.Int("records", store.Len()),
		slog.Int("no_shows", store.NoShowCount()))

	textPipeline := engine.NewTextPipeline(
		logger,
		func() predictor.TextModel { return predictor.NewTokenPerceptron() },
		predictor.Options{
			Iterations:     cfg.Training.Text.Iterations,
			ErrorThreshold: cfg.Training.Text.ErrorThreshold,
			LearningRate:   cfg.Training.Text.LearningRate,
			LogEvery:       cfg.Training.Text.LogEvery,
		},
		cfg.Training.Seed,
	)
	host := engine.NewHost(logger, textPipeline)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	host.Start(ctx)

	service := services.NewNoShowService(
		logger,
		store,
		host,
		services.NumericOptions{
			Iterations:     cfg.Training.Numeric.Iterations,
			ErrorThreshold: cfg.Training.Numeric.ErrorThreshold,
			LearningRate:   cfg.Training.Numeric.LearningRate,
			LogEvery:       cfg.Training.Numeric.LogEvery,
			HiddenSize:     cfg.Training.Numeric.HiddenSize,
		},
		cfg.Training.Seed,
		cfg.History.Limit,
	)

	server, err := api.NewServer(cfg.Server, api.NewHandler(logger, service))
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("noshow-engine stopped")
}

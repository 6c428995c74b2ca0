// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// insightd is the Aleutian Insight server: the privacy-preserving
// benchmark and prediction core behind an HTTP gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/AleutianInsight/pkg/logging"
	"github.com/AleutianAI/AleutianInsight/services/gateway/middleware"
	"github.com/AleutianAI/AleutianInsight/services/gateway/routes"
	"github.com/AleutianAI/AleutianInsight/services/insight"
	"github.com/AleutianAI/AleutianInsight/services/insight/aggregate"
	"github.com/AleutianAI/AleutianInsight/services/insight/benchmark"
	"github.com/AleutianAI/AleutianInsight/services/insight/predict"
	"github.com/AleutianAI/AleutianInsight/services/insight/privacy"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
	"github.com/AleutianAI/AleutianInsight/services/insight/telemetry"
)

// initMetrics wires the OTel meter provider to the Prometheus registry
// served on /metrics.
func initMetrics() (*telemetry.Metrics, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return telemetry.NewMetrics(otel.Meter("insight"))
}

// buildStores selects the storage backends from config.
func buildStores(cfg *Config, logger *slog.Logger) (storage.ConversionStore, *storage.Badger, func(), error) {
	badgerCfg := storage.DefaultBadgerConfig(cfg.Storage.BadgerPath)
	badgerCfg.Logger = logger
	if cfg.Storage.Backend == "memory" {
		badgerCfg = storage.InMemoryBadgerConfig()
		badgerCfg.Logger = logger
	}
	db, err := storage.OpenBadger(badgerCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open badger: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("badger close failed", slog.Any("error", err))
		}
	}

	var conversions storage.ConversionStore
	if cfg.Storage.ConversionSource == "influx" {
		influx, err := storage.NewInflux(storage.InfluxConfigFromEnv(), logger)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect influx: %w", err)
		}
		conversions = influx
	} else {
		conversions = storage.NewMemory()
		logger.Warn("using in-memory conversion store; set storage.conversion_source to influx for production")
	}
	return conversions, db, cleanup, nil
}

func buildBackend(cfg *Config, logger *slog.Logger) predict.Backend {
	if cfg.Prediction.Backend == "linear" {
		// The trained model falls back to the heuristic until it has been
		// trained, and on any later failure.
		return predict.WithFallback(predict.NewLinear(), predict.NewHeuristic(), logger)
	}
	return predict.NewHeuristic()
}

func run() error {
	cfg, err := LoadConfig(os.Getenv("INSIGHT_CONFIG"))
	if err != nil {
		return err
	}

	logger, logCleanup := logging.New(logging.Config{
		Level:   cfg.LogLevel(),
		Service: "insightd",
		LogDir:  cfg.LogDir,
		JSON:    true,
	})
	defer logCleanup()
	slog.SetDefault(logger)

	metrics, err := initMetrics()
	if err != nil {
		return err
	}

	conversions, db, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ledger, err := privacy.NewLedger(privacy.LedgerConfig{
		Initial:     cfg.Privacy.InitialBudget,
		Reserve:     cfg.Privacy.Reserve,
		DefaultCost: cfg.Privacy.Epsilon,
	})
	if err != nil {
		return err
	}

	aggregator, err := aggregate.New(aggregate.Config{
		MinDataPoints: cfg.Privacy.MinDataPoints,
		Epsilon:       cfg.Privacy.Epsilon,
		Sensitivity:   cfg.Privacy.Sensitivity,
		WindowDays:    cfg.Privacy.WindowDays,
	}, ledger, privacy.NewNoiseInjector(), conversions, logger)
	if err != nil {
		return err
	}

	vocab, err := predict.LoadVocab()
	if err != nil {
		return err
	}
	engine, err := predict.NewEngine(predict.DefaultEngineConfig(), vocab, buildBackend(cfg, logger), db, logger)
	if err != nil {
		return err
	}

	svc, err := insight.New(insight.DefaultConfig(), aggregator,
		benchmark.NewStore(db, logger), engine, ledger, conversions, db, logger)
	if err != nil {
		return err
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Telemetry(metrics))
	limiter := middleware.NewRateLimiter(cfg.Server.RateRPS, cfg.Server.RateBurst)
	routes.SetupRoutes(router, svc, limiter)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("insight gateway listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("vocab_version", vocab.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Periodic Badger value-log GC.
	gcDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				db.RunGC(0.5)
			case <-gcDone:
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		close(gcDone)
		return err
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}
	close(gcDone)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("insightd: %v", err)
	}
}

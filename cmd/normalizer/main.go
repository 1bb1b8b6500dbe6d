package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/forecast-normalizer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/forecast-normalizer/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-normalizer/internal/adapter/sqlite"
	"github.com/couchcryptid/forecast-normalizer/internal/config"
	"github.com/couchcryptid/forecast-normalizer/internal/observability"
	"github.com/couchcryptid/forecast-normalizer/internal/pipeline"
)

type sink interface {
	pipeline.BatchLoader
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cache := pipeline.NewDatasetCache(cfg.DatasetCacheSize)
	transformer := pipeline.NewTransformer(pipeline.Defaults{
		Profile:    cfg.DefaultProfile,
		Mode:       cfg.ErrorMode,
		Convention: cfg.DirectionConvention,
		Horizon:    cfg.Horizon,
	}, cache, metrics, logger)

	var (
		loader  sink
		archive *sqlite.Store
		srvOpts []httpadapter.Option
	)
	switch cfg.Sink {
	case config.SinkSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open dataset archive", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		loader = store
		archive = store
		srvOpts = append(srvOpts, httpadapter.WithDatasetStore(store))
		logger.Info("archiving datasets to sqlite", "path", cfg.SQLitePath)
	default:
		loader = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("publishing datasets to kafka", "topic", cfg.KafkaSinkTopic)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	var ready httpadapter.ReadinessChecker = p
	if archive != nil {
		ready = httpadapter.AllReady(p, archive)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, transformer, logger, srvOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := loader.Close(); err != nil {
		logger.Error("sink close error", "sink", cfg.Sink, "error", err)
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/books-scrape-api/config"
	"github.com/aluiziolira/books-scrape-api/features"
	"github.com/aluiziolira/books-scrape-api/pipeline"
	"github.com/aluiziolira/books-scrape-api/scraper"
)

// app holds the long-lived components shared by serve and scrape.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *scraper.Metrics
	pipeline *pipeline.Pipeline
	service  *scraper.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	metrics := scraper.NewMetrics()

	var sinks []pipeline.Sink
	if cfg.PostgresDSN != "" {
		sink, err := pipeline.NewPostgresSink(ctx, cfg.PostgresDSN, cfg.PostgresTable)
		if err != nil {
			return nil, fmt.Errorf("init postgres mirror: %w", err)
		}
		sinks = append(sinks, sink)
		logger.Info("postgres mirror enabled", slog.String("table", cfg.PostgresTable))
	}

	store, retention, err := newStore(cfg, logger, sinks)
	if err != nil {
		return nil, err
	}

	fetcher, err := scraper.NewFetcher(cfg, logger, scraper.WithFetchMetrics(metrics))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	// The key lives only in memory; tokens from a previous run cannot be decrypted.
	cipher, err := features.NewCipher()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	p := pipeline.NewPipeline(store, cfg.QueueSize)
	svc, err := scraper.NewService(cfg.AllowedDomain, fetcher, p, cipher,
		scraper.WithLogger(logger),
		scraper.WithMetrics(metrics),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	p.Start()
	logger.Debug("persistence ready",
		slog.String("store", store.MainPath()),
		slog.String("backup_dir", cfg.BackupDir),
		slog.Int("retained_snapshots", retention.Len()),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		pipeline: p,
		service:  svc,
	}, nil
}

// Close drains pending writes and releases mirror sinks.
func (a *app) Close() {
	if err := a.pipeline.Close(); err != nil {
		a.logger.Error("pipeline shutdown failed", slog.Any("error", err))
	}
	a.logger.Debug("pipeline closed", slog.Any("metrics", a.pipeline.GetMetrics()))
}

// newStore builds the snapshot retention and CSV store. The store owns sinks
// once it exists; until then a failure closes them here.
func newStore(cfg *config.Config, logger *slog.Logger, sinks []pipeline.Sink) (*pipeline.Store, *pipeline.Retention, error) {
	closeSinks := func() {
		for _, sink := range sinks {
			if err := sink.Close(); err != nil {
				logger.Warn("close mirror sink", slog.String("sink", sink.Name()), slog.Any("error", err))
			}
		}
	}

	retention, err := pipeline.NewRetention(cfg.BackupDir, pipeline.SnapshotPrefix(cfg.OutputFile), cfg.BackupRetention, logger)
	if err != nil {
		closeSinks()
		return nil, nil, fmt.Errorf("init snapshot retention: %w", err)
	}
	store, err := pipeline.NewStore(cfg.OutputFile, cfg.BackupDir, logger,
		pipeline.WithRetention(retention),
		pipeline.WithSinks(sinks...),
	)
	if err != nil {
		closeSinks()
		return nil, nil, fmt.Errorf("init csv store: %w", err)
	}
	return store, retention, nil
}

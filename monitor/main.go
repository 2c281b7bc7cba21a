package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/api"
	"github.com/jimfhahn/qa-server/monitor/cache"
	"github.com/jimfhahn/qa-server/monitor/config"
	"github.com/jimfhahn/qa-server/monitor/metrics"
	"github.com/jimfhahn/qa-server/monitor/rollup"
	"github.com/jimfhahn/qa-server/monitor/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	store, cleanup, err := buildStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize sample store")
	}
	defer cleanup()

	lister := rollup.NewStaticLister(cfg.Authorities)
	aggregator := rollup.NewAggregator(store, lister, cfg.Location(), log)
	snapshots := cache.NewSnapshotCache(aggregator.BuildSnapshot, cfg.Cache.TTL.Std(), log)
	service := rollup.NewService(snapshots, nil, log)

	collector, err := metrics.NewSystemCollector(15 * time.Second)
	if err != nil {
		log.WithError(err).Warn("System metrics collection unavailable")
		collector = nil
	} else {
		collector.Start()
		defer collector.Stop()
	}

	hub := api.NewWSHub(log)

	server := api.NewServer(
		cfg.Server.Addr,
		cfg.Server.ReadTimeout.Std(),
		cfg.Server.WriteTimeout.Std(),
		service,
		store,
		lister,
		collector,
		hub,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sweeper, ok := store.(*storage.PostgresSampleStore); ok && cfg.Storage.RetentionDays > 0 {
		go runRetentionSweep(ctx, sweeper, cfg.Storage.RetentionDays, log)
	}

	if err := server.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start API server")
	}

	<-ctx.Done()
	log.Info("Shutting down")

	if err := server.Stop(); err != nil {
		log.WithError(err).Error("Shutdown error")
	}
}

// runRetentionSweep deletes samples older than the retention window once a
// day until ctx is cancelled.
func runRetentionSweep(ctx context.Context, store *storage.PostgresSampleStore, retentionDays int, log logrus.FieldLogger) {
	sweepLog := log.WithField("component", "retention_sweep")
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	sweep := func() {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := store.DeleteOldSamples(ctx, cutoff)
		if err != nil {
			sweepLog.WithError(err).Error("Failed to delete expired samples")
			return
		}
		if deleted > 0 {
			sweepLog.WithField("deleted", deleted).Info("Removed expired samples")
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// buildStore selects the sample store backend from configuration.
func buildStore(cfg *config.Config, log logrus.FieldLogger) (storage.SampleStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Info("Using in-memory sample store")
		return storage.NewMemorySampleStore(), func() {}, nil
	default:
		db := storage.NewDatabase(&cfg.Storage.PostgreSQL)
		if err := db.Connect(); err != nil {
			return nil, nil, err
		}
		if err := storage.EnsureSamplesTable(db.DB(), log); err != nil {
			db.Close()
			return nil, nil, err
		}
		store := storage.NewPostgresSampleStore(db.DB(), log)
		return store, func() { db.Close() }, nil
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/config"
	"github.com/jimfhahn/qa-server/monitor/rollup"
	"github.com/jimfhahn/qa-server/monitor/storage"
)

// show-rollup computes the full performance rollup straight from storage and
// prints it as JSON. Handy for inspecting aggregation output without the
// HTTP server or cache in the way.
func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	pretty := flag.Bool("pretty", true, "Indent JSON output")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	var store storage.SampleReader
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = storage.NewMemorySampleStore()
	default:
		db := storage.NewDatabase(&cfg.Storage.PostgreSQL)
		if err := db.Connect(); err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		store = storage.NewPostgresSampleStore(db.DB(), log)
	}

	lister := rollup.NewStaticLister(cfg.Authorities)
	aggregator := rollup.NewAggregator(store, lister, cfg.Location(), log)

	data, err := aggregator.BuildSnapshot(context.Background())
	if err != nil {
		log.WithError(err).Fatal("Failed to build rollup")
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode rollup: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/config"
	"github.com/jimfhahn/qa-server/monitor/storage"
	"github.com/jimfhahn/qa-server/monitor/types"
)

// seed-samples populates the sample table with synthetic timing data, useful
// for exercising the rollup endpoints against a realistic spread of values.
func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	authoritiesStr := flag.String("authorities", "loc_names,loc_subjects,oclc_fast", "Comma-separated authority names")
	count := flag.Int("count", 500, "Number of samples per authority")
	days := flag.Int("days", 365, "Spread samples over this many past days")
	seed := flag.Int64("seed", 0, "Random seed (0 uses current time)")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	var store storage.SampleStore
	if cfg.Storage.Driver == config.DriverMemory {
		log.Fatal("Seeding an in-memory store is pointless; configure the postgresql driver")
	}

	db := storage.NewDatabase(&cfg.Storage.PostgreSQL)
	if err := db.Connect(); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := storage.EnsureSamplesTable(db.DB(), log); err != nil {
		log.WithError(err).Fatal("Failed to ensure samples table")
	}
	store = storage.NewPostgresSampleStore(db.DB(), log)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	authorities := strings.Split(*authoritiesStr, ",")
	for i, a := range authorities {
		authorities[i] = strings.TrimSpace(a)
	}

	ctx := context.Background()
	now := time.Now()
	inserted := 0

	for _, authority := range authorities {
		for i := 0; i < *count; i++ {
			action := types.ActionFetch
			if rng.Intn(2) == 1 {
				action = types.ActionSearch
			}

			ts := now.Add(-time.Duration(rng.Int63n(int64(*days) * int64(24*time.Hour))))

			sample, err := store.CreateSample(ctx, authority, action, ts)
			if err != nil {
				log.WithError(err).Fatal("Failed to create sample")
			}

			retrieve := 20 + rng.Float64()*400
			normalize := 5 + rng.Float64()*80
			upd := types.SampleUpdate{
				TotalTimeMs:         retrieve + normalize + rng.Float64()*10,
				RetrieveParseTimeMs: retrieve,
				NormalizationTimeMs: normalize,
			}
			if action == types.ActionFetch {
				upd.SizeBytes = 512 + rng.Int63n(64*1024)
			}

			if err := store.UpdateSample(ctx, sample.ID, upd); err != nil {
				log.WithError(err).Fatal("Failed to update sample")
			}
			inserted++
		}
	}

	log.WithFields(logrus.Fields{
		"inserted":    inserted,
		"authorities": len(authorities),
		"seed":        *seed,
	}).Info("Seeded performance samples")
}

package storage

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SamplesTableSchema creates the performance_samples table. Timing columns
// are nullable: a row between creation and its terminal update carries NULLs.
const SamplesTableSchema = `
CREATE TABLE IF NOT EXISTS performance_samples (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    authority TEXT NOT NULL,
    action SMALLINT NOT NULL,
    total_time_ms DOUBLE PRECISION,
    retrieve_plus_parse_time_ms DOUBLE PRECISION,
    normalization_time_ms DOUBLE PRECISION,
    size_bytes BIGINT
);`

// EnsureSamplesTable checks if the performance_samples table exists and
// creates it, with its indexes, as needed.
func EnsureSamplesTable(db *sql.DB, log logrus.FieldLogger) error {
	log = log.WithField("component", "migrations")

	var exists bool
	checkQuery := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'performance_samples'
		);`

	if err := db.QueryRow(checkQuery).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if performance_samples table exists: %w", err)
	}

	if !exists {
		log.Info("Creating performance_samples table")
		if _, err := db.Exec(SamplesTableSchema); err != nil {
			return fmt.Errorf("failed to create performance_samples table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_performance_samples_authority ON performance_samples(authority);",
		"CREATE INDEX IF NOT EXISTS idx_performance_samples_timestamp ON performance_samples(timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_performance_samples_authority_timestamp ON performance_samples(authority, timestamp);",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			log.WithError(err).Warn("Failed to create index")
			// Non-fatal, continue
		}
	}

	return nil
}

// Package storage persists performance samples, one row per timed operation.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// ErrSampleNotFound is returned when an update or delete targets a sample id
// that no longer exists. Callers treat it as a no-op error, never fatal to a
// hosting request.
var ErrSampleNotFound = fmt.Errorf("sample not found")

// SampleStore is the durable table of timed operations. Each row is written,
// updated and deleted only by the operation that owns its id, so
// implementations need no cross-row coordination; every call commits
// independently.
type SampleStore interface {
	// CreateSample inserts a row with only identifying fields populated and
	// returns it immediately, id assigned, before any timing data exists.
	CreateSample(ctx context.Context, authority string, action types.Action, ts time.Time) (*types.Sample, error)

	// UpdateSample applies success-path metrics to an existing row.
	UpdateSample(ctx context.Context, id string, upd types.SampleUpdate) error

	// DeleteSample removes a row. A missing id yields ErrSampleNotFound.
	DeleteSample(ctx context.Context, id string) error

	// ListSamples returns samples matching the filter, ordered by timestamp
	// ascending.
	ListSamples(ctx context.Context, filter types.SampleFilter) ([]types.Sample, error)
}

// SampleReader is the read-only subset used by rollup computation.
type SampleReader interface {
	ListSamples(ctx context.Context, filter types.SampleFilter) ([]types.Sample, error)
}

// PostgresSampleStore implements SampleStore on PostgreSQL.
type PostgresSampleStore struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewPostgresSampleStore wraps an open connection pool.
func NewPostgresSampleStore(db *sql.DB, log logrus.FieldLogger) *PostgresSampleStore {
	return &PostgresSampleStore{
		db:  db,
		log: log.WithField("component", "sample_store"),
	}
}

// CreateSample inserts the identifying fields and returns the new sample.
func (s *PostgresSampleStore) CreateSample(ctx context.Context, authority string, action types.Action, ts time.Time) (*types.Sample, error) {
	if authority == "" {
		return nil, fmt.Errorf("authority is required")
	}
	if !action.Valid() {
		return nil, fmt.Errorf("invalid action %d", action)
	}

	sample := &types.Sample{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Authority: authority,
		Action:    action,
	}

	query := `
		INSERT INTO performance_samples (id, timestamp, authority, action)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, sample.ID, sample.Timestamp, sample.Authority, int16(sample.Action)); err != nil {
		return nil, fmt.Errorf("failed to insert sample: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"sample_id": sample.ID,
		"authority": authority,
		"action":    action.String(),
	}).Debug("Created sample")
	return sample, nil
}

// UpdateSample writes the success-path metrics onto an existing row.
func (s *PostgresSampleStore) UpdateSample(ctx context.Context, id string, upd types.SampleUpdate) error {
	query := `
		UPDATE performance_samples SET
			total_time_ms = $2,
			retrieve_plus_parse_time_ms = $3,
			normalization_time_ms = $4,
			size_bytes = $5
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id,
		upd.TotalTimeMs, upd.RetrieveParseTimeMs, upd.NormalizationTimeMs, upd.SizeBytes)
	if err != nil {
		return fmt.Errorf("failed to update sample: %w", err)
	}

	if count, err := result.RowsAffected(); err == nil && count == 0 {
		return fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}
	return nil
}

// DeleteSample removes a row by id.
func (s *PostgresSampleStore) DeleteSample(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM performance_samples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}

	if count, err := result.RowsAffected(); err == nil && count == 0 {
		return fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}

	s.log.WithField("sample_id", id).Debug("Deleted sample")
	return nil
}

// ListSamples queries by authority and time range, timestamp ascending.
func (s *PostgresSampleStore) ListSamples(ctx context.Context, filter types.SampleFilter) ([]types.Sample, error) {
	query := `
		SELECT id, timestamp, authority, action,
			COALESCE(total_time_ms, 0),
			COALESCE(retrieve_plus_parse_time_ms, 0),
			COALESCE(normalization_time_ms, 0),
			COALESCE(size_bytes, 0)
		FROM performance_samples WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.Authority != "" && filter.Authority != types.AllAuthorities {
		query += fmt.Sprintf(" AND authority = $%d", argCount)
		args = append(args, filter.Authority)
		argCount++
	}

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, filter.Since)
		argCount++
	}

	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND timestamp < $%d", argCount)
		args = append(args, filter.Until)
		argCount++
	}

	query += " ORDER BY timestamp ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []types.Sample
	for rows.Next() {
		var sample types.Sample
		var action int16

		err := rows.Scan(
			&sample.ID, &sample.Timestamp, &sample.Authority, &action,
			&sample.TotalTimeMs, &sample.RetrieveParseTimeMs,
			&sample.NormalizationTimeMs, &sample.SizeBytes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		sample.Action = types.Action(action)
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// DeleteOldSamples removes samples older than the given cutoff. Used by the
// retention sweep; returns the number of rows removed.
func (s *PostgresSampleStore) DeleteOldSamples(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM performance_samples WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old samples: %w", err)
	}

	count, _ := result.RowsAffected()
	s.log.WithField("deleted_count", count).Info("Deleted old samples")
	return count, nil
}

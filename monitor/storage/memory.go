package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// MemorySampleStore is an in-process SampleStore used in dev mode and tests.
// It honors the same contract as the PostgreSQL store, including ascending
// timestamp ordering and ErrSampleNotFound semantics.
type MemorySampleStore struct {
	mu      sync.RWMutex
	samples map[string]types.Sample
}

// NewMemorySampleStore creates an empty in-memory store.
func NewMemorySampleStore() *MemorySampleStore {
	return &MemorySampleStore{
		samples: make(map[string]types.Sample),
	}
}

// CreateSample inserts a row with identifying fields only.
func (s *MemorySampleStore) CreateSample(ctx context.Context, authority string, action types.Action, ts time.Time) (*types.Sample, error) {
	if authority == "" {
		return nil, fmt.Errorf("authority is required")
	}
	if !action.Valid() {
		return nil, fmt.Errorf("invalid action %d", action)
	}

	sample := types.Sample{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Authority: authority,
		Action:    action,
	}

	s.mu.Lock()
	s.samples[sample.ID] = sample
	s.mu.Unlock()

	out := sample
	return &out, nil
}

// UpdateSample applies success metrics to an existing row.
func (s *MemorySampleStore) UpdateSample(ctx context.Context, id string, upd types.SampleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}

	sample.TotalTimeMs = upd.TotalTimeMs
	sample.RetrieveParseTimeMs = upd.RetrieveParseTimeMs
	sample.NormalizationTimeMs = upd.NormalizationTimeMs
	sample.SizeBytes = upd.SizeBytes
	s.samples[id] = sample
	return nil
}

// DeleteSample removes a row by id.
func (s *MemorySampleStore) DeleteSample(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.samples[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSampleNotFound, id)
	}
	delete(s.samples, id)
	return nil
}

// ListSamples filters by authority and time range, timestamp ascending.
func (s *MemorySampleStore) ListSamples(ctx context.Context, filter types.SampleFilter) ([]types.Sample, error) {
	s.mu.RLock()
	var matched []types.Sample
	for _, sample := range s.samples {
		if filter.Authority != "" && filter.Authority != types.AllAuthorities && sample.Authority != filter.Authority {
			continue
		}
		if !filter.Since.IsZero() && sample.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !sample.Timestamp.Before(filter.Until) {
			continue
		}
		matched = append(matched, sample)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Len returns the number of stored samples.
func (s *MemorySampleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

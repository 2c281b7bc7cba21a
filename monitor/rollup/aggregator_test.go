package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimfhahn/qa-server/monitor/buckets"
	"github.com/jimfhahn/qa-server/monitor/storage"
	"github.com/jimfhahn/qa-server/monitor/types"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func seedSample(t *testing.T, store *storage.MemorySampleStore, authority string, action types.Action, ts time.Time, totalMs float64) {
	t.Helper()
	sample, err := store.CreateSample(context.Background(), authority, action, ts)
	require.NoError(t, err)
	err = store.UpdateSample(context.Background(), sample.ID, types.SampleUpdate{
		TotalTimeMs:         totalMs,
		RetrieveParseTimeMs: totalMs / 2,
		NormalizationTimeMs: totalMs / 4,
		SizeBytes:           int64(totalMs),
	})
	require.NoError(t, err)
}

func TestBuildSnapshotEndToEnd(t *testing.T) {
	store := storage.NewMemorySampleStore()
	now := time.Date(2026, time.August, 31, 14, 30, 0, 0, time.UTC)

	// Three fetch samples for authority X at T, T+1h, T+2h where T = now-2h.
	base := now.Add(-2 * time.Hour)
	seedSample(t, store, "X", types.ActionFetch, base, 10)
	seedSample(t, store, "X", types.ActionFetch, base.Add(time.Hour), 20)
	seedSample(t, store, "X", types.ActionFetch, base.Add(2*time.Hour), 30)

	agg := NewAggregator(store, NewStaticLister([]string{"X", "Y"}), time.UTC, quietLog(),
		WithAggregatorClock(func() time.Time { return now }))

	data, err := agg.BuildSnapshot(context.Background())
	require.NoError(t, err)

	// Scopes: all + X + Y.
	require.Len(t, data.Authorities, 3)
	require.Contains(t, data.Authorities, "X")
	require.Contains(t, data.Authorities, "Y")
	require.Contains(t, data.Authorities, types.AllAuthorities)

	series := data.Authorities["X"].Fetch.Last24Hours
	require.Len(t, series, 24)

	// Newest bucket holds the T+2h sample, the two before it the others.
	assert.Equal(t, buckets.LabelNow, series[23].Label)
	assert.InDelta(t, 30.0, series[23].Stats.AvgTotalTimeMs, 1e-9)
	assert.InDelta(t, 20.0, series[22].Stats.AvgTotalTimeMs, 1e-9)
	assert.InDelta(t, 10.0, series[21].Stats.AvgTotalTimeMs, 1e-9)

	for i := 0; i < 21; i++ {
		assert.Zero(t, series[i].Stats.AvgTotalTimeMs, "bucket %d should be zero", i)
		assert.Zero(t, series[i].Stats.SampleCount)
	}

	// Search scope for X has no samples anywhere: zero-valued series.
	for _, b := range data.Authorities["X"].Search.Last24Hours {
		assert.Zero(t, b.Stats.SampleCount)
	}

	// An authority with no samples at all still gets full-shape rollups.
	assert.Len(t, data.Authorities["Y"].AllActions.Last30Days, 30)
	assert.Zero(t, data.Authorities["Y"].AllActions.Datatable.SampleCount)

	// The all-authorities scope sees X's samples.
	assert.Equal(t, 3, data.Authorities[types.AllAuthorities].Fetch.Datatable.SampleCount)
}

func TestDatatablePrecedenceFallback(t *testing.T) {
	now := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		sampleAt  time.Time
		totalMs   float64
		wantAvgMs float64
	}{
		{
			// A sample today wins over anything older.
			name:      "CurrentDay",
			sampleAt:  now.Add(-3 * time.Hour),
			totalMs:   11,
			wantAvgMs: 11,
		},
		{
			// No sample today: fall back to the current month.
			name:      "CurrentMonth",
			sampleAt:  time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC),
			totalMs:   22,
			wantAvgMs: 22,
		},
		{
			// None this month: fall back to the current year.
			name:      "CurrentYear",
			sampleAt:  time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC),
			totalMs:   33,
			wantAvgMs: 33,
		},
		{
			// None this year: fall back to the full history.
			name:      "AllHistory",
			sampleAt:  time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC),
			totalMs:   44,
			wantAvgMs: 44,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemorySampleStore()
			seedSample(t, store, "X", types.ActionFetch, tc.sampleAt, tc.totalMs)

			agg := NewAggregator(store, NewStaticLister([]string{"X"}), time.UTC, quietLog(),
				WithAggregatorClock(func() time.Time { return now }))

			data, err := agg.BuildSnapshot(context.Background())
			require.NoError(t, err)

			dt := data.Authorities["X"].Fetch.Datatable
			assert.InDelta(t, tc.wantAvgMs, dt.AvgTotalTimeMs, 1e-9)
		})
	}
}

func TestDatatablePrefersNarrowerWindow(t *testing.T) {
	now := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)
	store := storage.NewMemorySampleStore()

	// One sample today, one earlier in the month. The datatable must use
	// only today's.
	seedSample(t, store, "X", types.ActionFetch, now.Add(-time.Hour), 10)
	seedSample(t, store, "X", types.ActionFetch, time.Date(2026, time.August, 3, 8, 0, 0, 0, time.UTC), 1000)

	agg := NewAggregator(store, NewStaticLister([]string{"X"}), time.UTC, quietLog(),
		WithAggregatorClock(func() time.Time { return now }))

	data, err := agg.BuildSnapshot(context.Background())
	require.NoError(t, err)

	dt := data.Authorities["X"].Fetch.Datatable
	assert.Equal(t, 1, dt.SampleCount)
	assert.InDelta(t, 10.0, dt.AvgTotalTimeMs, 1e-9)
}

func TestBuildSnapshotIdempotent(t *testing.T) {
	store := storage.NewMemorySampleStore()
	now := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)
	seedSample(t, store, "X", types.ActionSearch, now.Add(-30*time.Minute), 15)

	agg := NewAggregator(store, NewStaticLister([]string{"X"}), time.UTC, quietLog(),
		WithAggregatorClock(func() time.Time { return now }))

	first, err := agg.BuildSnapshot(context.Background())
	require.NoError(t, err)
	second, err := agg.BuildSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

package buckets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimfhahn/qa-server/monitor/stats"
	"github.com/jimfhahn/qa-server/monitor/types"
)

func statsFn(t *testing.T) StatsFunc {
	t.Helper()
	calc := stats.NewCalculator()
	return func(samples []types.Sample) types.StatsRecord {
		return calc.Calculate(samples, types.ActionAll, stats.StatAll)
	}
}

func sampleAt(ts time.Time, totalMs float64) types.Sample {
	return types.Sample{
		ID:          "s",
		Timestamp:   ts,
		Authority:   "GEONAMES",
		Action:      types.ActionFetch,
		TotalTimeMs: totalMs,
	}
}

func TestWindowsFixedCounts(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.August, 31, 14, 37, 12, 0, time.UTC)

	assert.Len(t, sel.Windows(Hour, now), 24)
	assert.Len(t, sel.Windows(Day, now), 30)
	assert.Len(t, sel.Windows(Month, now), 12)
}

func TestHourWindowsAlignmentAndLabels(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.August, 31, 14, 37, 12, 0, time.UTC)

	windows := sel.Windows(Hour, now)
	require.Len(t, windows, 24)

	// Oldest window starts 23 whole hours before the current hour.
	assert.Equal(t, time.Date(2026, time.August, 30, 15, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, "15:00", windows[0].Label)

	newest := windows[23]
	assert.Equal(t, LabelNow, newest.Label)
	assert.Equal(t, time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC), newest.Start)
	assert.True(t, newest.Contains(now))
}

func TestDayAndMonthLabels(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)

	days := sel.Windows(Day, now)
	assert.Equal(t, "Aug 02", days[0].Label)
	assert.Equal(t, LabelToday, days[29].Label)

	months := sel.Windows(Month, now)
	assert.Equal(t, "Sep 2025", months[0].Label)
	assert.Equal(t, LabelThisMonth, months[11].Label)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), months[11].Start)
}

func TestSeriesFixedLengthWithSparseSamples(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)

	samples := []types.Sample{
		sampleAt(now.Add(-2*time.Hour), 10),
		sampleAt(now.Add(-2*time.Hour+5*time.Minute), 30),
		sampleAt(now, 50),
		// Outside the 24h range, must be ignored.
		sampleAt(now.Add(-48*time.Hour), 999),
	}

	series := sel.Series(Hour, now, samples, statsFn(t))
	require.Len(t, series, 24)

	assert.InDelta(t, 20.0, series[21].Stats.AvgTotalTimeMs, 1e-9)
	assert.Equal(t, 2, series[21].Stats.SampleCount)
	assert.InDelta(t, 50.0, series[23].Stats.AvgTotalTimeMs, 1e-9)

	for i, b := range series {
		if i == 21 || i == 23 {
			continue
		}
		assert.Zero(t, b.Stats.AvgTotalTimeMs, "bucket %d (%s) should be empty", i, b.Label)
		assert.Zero(t, b.Stats.SampleCount)
	}
}

func TestSeriesIdempotent(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.August, 31, 23, 59, 59, 0, time.UTC)

	samples := []types.Sample{
		sampleAt(now.Add(-30*time.Minute), 12),
		sampleAt(now.Add(-26*time.Hour*10), 7), // within 30 days
	}

	first := sel.Series(Day, now, samples, statsFn(t))
	second := sel.Series(Day, now, samples, statsFn(t))
	assert.Equal(t, first, second)
}

func TestCurrentWindows(t *testing.T) {
	sel := NewSelector(time.UTC)
	now := time.Date(2026, time.February, 14, 9, 30, 0, 0, time.UTC)

	day := sel.CurrentDay(now)
	assert.True(t, day.Contains(now))
	assert.Equal(t, time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC), day.Start)

	month := sel.CurrentMonth(now)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), month.Start)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), month.End)

	year := sel.CurrentYear(now)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), year.Start)
	assert.True(t, year.Contains(now))
}

func TestSeriesRespectsTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	sel := NewSelector(loc)
	// 01:30 UTC is 21:30 the previous day in New York, so the TODAY bucket
	// must follow the zone's calendar, not UTC's.
	now := time.Date(2026, time.August, 31, 1, 30, 0, 0, time.UTC)

	days := sel.Windows(Day, now)
	newest := days[29]
	assert.Equal(t, LabelToday, newest.Label)
	assert.Equal(t, time.Date(2026, time.August, 30, 0, 0, 0, 0, loc), newest.Start)
}

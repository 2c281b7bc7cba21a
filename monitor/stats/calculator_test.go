package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jimfhahn/qa-server/monitor/types"
)

func fetchSample(totalMs float64) types.Sample {
	return types.Sample{
		ID:                  "s",
		Timestamp:           time.Now(),
		Authority:           "LOC_SUBJECTS",
		Action:              types.ActionFetch,
		TotalTimeMs:         totalMs,
		RetrieveParseTimeMs: totalMs * 0.6,
		NormalizationTimeMs: totalMs * 0.4,
		SizeBytes:           int64(totalMs * 100),
	}
}

func TestCalculateEmptyInput(t *testing.T) {
	calc := NewCalculator()

	rec := calc.Calculate(nil, types.ActionAll, StatAll)
	assert.Equal(t, types.StatsRecord{}, rec)

	// A scope with no matching samples is equivalent to empty input.
	rec = calc.Calculate([]types.Sample{fetchSample(10)}, types.ActionSearch, StatAll)
	assert.Equal(t, types.StatsRecord{}, rec)
}

func TestCalculateNearestRankGrid(t *testing.T) {
	calc := NewCalculator()

	samples := make([]types.Sample, 0, 10)
	for ms := 10.0; ms <= 100.0; ms += 10.0 {
		samples = append(samples, fetchSample(ms))
	}

	rec := calc.Calculate(samples, types.ActionFetch, StatAll)
	assert.Equal(t, 10, rec.SampleCount)
	assert.InDelta(t, 55.0, rec.AvgTotalTimeMs, 1e-9)
	assert.InDelta(t, 10.0, rec.LowTotalTimeMs, 1e-9)
	assert.InDelta(t, 90.0, rec.HighTotalTimeMs, 1e-9)
}

func TestCalculateActionScope(t *testing.T) {
	calc := NewCalculator()

	search := fetchSample(200)
	search.Action = types.ActionSearch
	samples := []types.Sample{fetchSample(10), fetchSample(20), search}

	fetchOnly := calc.Calculate(samples, types.ActionFetch, StatAll)
	assert.Equal(t, 2, fetchOnly.SampleCount)
	assert.InDelta(t, 15.0, fetchOnly.AvgTotalTimeMs, 1e-9)

	all := calc.Calculate(samples, types.ActionAll, StatAll)
	assert.Equal(t, 3, all.SampleCount)
	assert.InDelta(t, (10.0+20.0+200.0)/3.0, all.AvgTotalTimeMs, 1e-9)
}

func TestCalculateMaskSubset(t *testing.T) {
	calc := NewCalculator()
	samples := []types.Sample{fetchSample(10), fetchSample(30)}

	avgOnly := calc.Calculate(samples, types.ActionFetch, StatAvg)
	assert.InDelta(t, 20.0, avgOnly.AvgTotalTimeMs, 1e-9)
	assert.Zero(t, avgOnly.LowTotalTimeMs)
	assert.Zero(t, avgOnly.HighTotalTimeMs)

	highOnly := calc.Calculate(samples, types.ActionFetch, StatHigh)
	assert.Zero(t, highOnly.AvgTotalTimeMs)
	assert.InDelta(t, 30.0, highOnly.HighTotalTimeMs, 1e-9)
}

func TestNearestRankSingleElement(t *testing.T) {
	assert.Equal(t, 42.0, nearestRank([]float64{42}, 10))
	assert.Equal(t, 42.0, nearestRank([]float64{42}, 90))
	assert.Zero(t, nearestRank(nil, 50))
}

// Package stats computes statistical summaries over performance samples.
package stats

import (
	"math"
	"sort"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// StatMask selects which statistics the calculator computes. Callers that
// only need averages can skip the percentile sorts.
type StatMask uint8

const (
	// StatAvg computes the arithmetic mean.
	StatAvg StatMask = 1 << iota
	// StatLow computes the 10th percentile.
	StatLow
	// StatHigh computes the 90th percentile.
	StatHigh

	// StatAll computes every statistic.
	StatAll = StatAvg | StatLow | StatHigh
)

// Calculator is a stateless statistics engine over sample sets. The zero
// value is ready to use.
type Calculator struct{}

// NewCalculator returns the standard calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate filters samples to the given action scope (ActionAll means no
// filter) and computes the requested statistics for each metric. An empty
// filtered set yields an all-zero record.
//
// Percentiles use the nearest-rank method: values sorted ascending, element
// at index ceil(p/100*n)-1, clamped to [0, n-1]. Dashboards assume this
// exact method; do not swap in an interpolating variant.
func (c *Calculator) Calculate(samples []types.Sample, scope types.Action, mask StatMask) types.StatsRecord {
	rec := types.StatsRecord{}

	var total, retrieve, normalize, size []float64
	for _, s := range samples {
		if scope != types.ActionAll && s.Action != scope {
			continue
		}
		total = append(total, s.TotalTimeMs)
		retrieve = append(retrieve, s.RetrieveParseTimeMs)
		normalize = append(normalize, s.NormalizationTimeMs)
		size = append(size, float64(s.SizeBytes))
	}

	rec.SampleCount = len(total)
	if rec.SampleCount == 0 {
		return rec
	}

	rec.AvgTotalTimeMs, rec.LowTotalTimeMs, rec.HighTotalTimeMs = c.metricStats(total, mask)
	rec.AvgRetrieveParseTimeMs, rec.LowRetrieveParseTimeMs, rec.HighRetrieveParseTimeMs = c.metricStats(retrieve, mask)
	rec.AvgNormalizationTimeMs, rec.LowNormalizationTimeMs, rec.HighNormalizationTimeMs = c.metricStats(normalize, mask)
	rec.AvgSizeBytes, rec.LowSizeBytes, rec.HighSizeBytes = c.metricStats(size, mask)

	return rec
}

// metricStats computes the masked statistics for one metric's values.
func (c *Calculator) metricStats(values []float64, mask StatMask) (avg, low, high float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	if mask&StatAvg != 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		avg = sum / float64(len(values))
	}

	if mask&(StatLow|StatHigh) != 0 {
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		if mask&StatLow != 0 {
			low = nearestRank(sorted, 10)
		}
		if mask&StatHigh != 0 {
			high = nearestRank(sorted, 90)
		}
	}

	return avg, low, high
}

// nearestRank picks the percentile element from an ascending-sorted slice.
func nearestRank(sorted []float64, percentile float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	idx := int(math.Ceil(percentile/100.0*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

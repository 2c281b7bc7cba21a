// Package buckets groups performance samples into fixed-size, calendar-aligned
// time buckets for trend charting.
package buckets

import (
	"time"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// Granularity selects the bucket size of a trend series.
type Granularity int

const (
	// Hour produces 24 whole-hour buckets covering the last 24 hours.
	Hour Granularity = iota
	// Day produces 30 calendar-day buckets covering the last 30 days.
	Day
	// Month produces 12 calendar-month buckets covering the last 12 months.
	Month
)

// Count returns the fixed series length for the granularity.
func (g Granularity) Count() int {
	switch g {
	case Hour:
		return 24
	case Day:
		return 30
	case Month:
		return 12
	default:
		return 0
	}
}

// Labels for the newest bucket of each series. The most recent bucket is
// always the present marker so charts read left-to-right into "now".
const (
	LabelNow       = "NOW"
	LabelToday     = "TODAY"
	LabelThisMonth = "THIS MONTH"
)

// StatsFunc computes the statistics record for one bucket's sample subset.
type StatsFunc func(samples []types.Sample) types.StatsRecord

// Window is one bucket's time span: [Start, End).
type Window struct {
	Label string
	Start time.Time
	End   time.Time
}

// Selector builds bucket series in a fixed time zone. Boundaries are
// calendar-aligned in that zone, so a sample's bucket depends on the zone's
// local clock, matching how the samples were stamped.
type Selector struct {
	loc *time.Location
}

// NewSelector creates a selector for the given zone. A nil location means UTC.
func NewSelector(loc *time.Location) *Selector {
	if loc == nil {
		loc = time.UTC
	}
	return &Selector{loc: loc}
}

// Windows returns the granularity's full ordered window set relative to now,
// oldest first, newest last. The window set is a pure function of
// (granularity, now), so repeated calls are identical.
func (s *Selector) Windows(g Granularity, now time.Time) []Window {
	now = now.In(s.loc)
	n := g.Count()
	windows := make([]Window, 0, n)

	switch g {
	case Hour:
		newest := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, s.loc)
		for i := n - 1; i >= 0; i-- {
			start := newest.Add(-time.Duration(i) * time.Hour)
			label := start.Format("15:00")
			if i == 0 {
				label = LabelNow
			}
			windows = append(windows, Window{Label: label, Start: start, End: start.Add(time.Hour)})
		}
	case Day:
		newest := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		for i := n - 1; i >= 0; i-- {
			start := newest.AddDate(0, 0, -i)
			label := start.Format("Jan 02")
			if i == 0 {
				label = LabelToday
			}
			windows = append(windows, Window{Label: label, Start: start, End: start.AddDate(0, 0, 1)})
		}
	case Month:
		newest := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		for i := n - 1; i >= 0; i-- {
			start := newest.AddDate(0, -i, 0)
			label := start.Format("Jan 2006")
			if i == 0 {
				label = LabelThisMonth
			}
			windows = append(windows, Window{Label: label, Start: start, End: start.AddDate(0, 1, 0)})
		}
	}

	return windows
}

// Series groups samples into the granularity's windows and hands each
// window's subset to statsFn. Buckets with no samples still appear, carrying
// the zero-valued record, so series length is always fixed.
//
// Samples outside the covered range are ignored. The input order does not
// matter; bucket membership is by timestamp alone.
func (s *Selector) Series(g Granularity, now time.Time, samples []types.Sample, statsFn StatsFunc) []types.BucketStat {
	windows := s.Windows(g, now)

	grouped := make([][]types.Sample, len(windows))
	for _, sample := range samples {
		ts := sample.Timestamp.In(s.loc)
		for i, w := range windows {
			if !ts.Before(w.Start) && ts.Before(w.End) {
				grouped[i] = append(grouped[i], sample)
				break
			}
		}
	}

	series := make([]types.BucketStat, len(windows))
	for i, w := range windows {
		series[i] = types.BucketStat{
			Label: w.Label,
			Start: w.Start,
			Stats: statsFn(grouped[i]),
		}
	}
	return series
}

// CurrentDay returns the window of the calendar day containing now.
func (s *Selector) CurrentDay(now time.Time) Window {
	now = now.In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return Window{Label: LabelToday, Start: start, End: start.AddDate(0, 0, 1)}
}

// CurrentMonth returns the window of the calendar month containing now.
func (s *Selector) CurrentMonth(now time.Time) Window {
	now = now.In(s.loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return Window{Label: LabelThisMonth, Start: start, End: start.AddDate(0, 1, 0)}
}

// CurrentYear returns the window of the calendar year containing now.
func (s *Selector) CurrentYear(now time.Time) Window {
	now = now.In(s.loc)
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc)
	return Window{Label: start.Format("2006"), Start: start, End: start.AddDate(1, 0, 0)}
}

// Contains reports whether ts falls in the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

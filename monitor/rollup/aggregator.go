// Package rollup computes the time-bucketed statistical summaries served to
// dashboards: one hierarchy of authority scope, action scope and view.
package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/buckets"
	"github.com/jimfhahn/qa-server/monitor/stats"
	"github.com/jimfhahn/qa-server/monitor/storage"
	"github.com/jimfhahn/qa-server/monitor/types"
)

// AuthorityLister is the external boundary returning the configured set of
// authority names to aggregate over.
type AuthorityLister interface {
	Authorities(ctx context.Context) ([]string, error)
}

// StaticLister serves a fixed authority list, the standard implementation
// backed by configuration.
type StaticLister struct {
	names []string
}

// NewStaticLister creates a lister over a fixed name set.
func NewStaticLister(names []string) *StaticLister {
	return &StaticLister{names: names}
}

// Authorities returns the configured names.
func (l *StaticLister) Authorities(ctx context.Context) ([]string, error) {
	return l.names, nil
}

// Aggregator turns the sample history into the full rollup structure. Its
// collaborators are explicit constructor parameters so tests can substitute
// them without shared mutable state.
type Aggregator struct {
	store    storage.SampleReader
	lister   AuthorityLister
	calc     *stats.Calculator
	selector *buckets.Selector
	now      func() time.Time
	log      logrus.FieldLogger
}

// AggregatorOption customizes an Aggregator beyond its required collaborators.
type AggregatorOption func(*Aggregator)

// WithCalculator substitutes the stats calculator.
func WithCalculator(calc *stats.Calculator) AggregatorOption {
	return func(a *Aggregator) { a.calc = calc }
}

// WithSelector substitutes the bucket selector.
func WithSelector(sel *buckets.Selector) AggregatorOption {
	return func(a *Aggregator) { a.selector = sel }
}

// WithAggregatorClock overrides the reference "now", for tests.
func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator with standard calculator and selector
// defaults. loc aligns bucket boundaries; nil means UTC.
func NewAggregator(store storage.SampleReader, lister AuthorityLister, loc *time.Location, log logrus.FieldLogger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:    store,
		lister:   lister,
		calc:     stats.NewCalculator(),
		selector: buckets.NewSelector(loc),
		now:      time.Now,
		log:      log.WithField("component", "aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildSnapshot computes the full rollup: every configured authority plus
// the synthetic all-authorities scope, each broken down by action and view.
// Unknown or sample-less scopes produce zero-valued records rather than
// failing the aggregation.
func (a *Aggregator) BuildSnapshot(ctx context.Context) (*types.PerformanceData, error) {
	now := a.now()

	names, err := a.lister.Authorities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorities: %w", err)
	}

	data := &types.PerformanceData{
		GeneratedAt: now,
		Authorities: make(map[string]*types.AuthorityRollup, len(names)+1),
	}

	scopes := append([]string{types.AllAuthorities}, names...)
	for _, name := range scopes {
		samples, err := a.store.ListSamples(ctx, types.SampleFilter{Authority: name})
		if err != nil {
			return nil, fmt.Errorf("failed to load samples for %s: %w", name, err)
		}
		data.Authorities[name] = a.buildAuthority(now, samples)
	}

	a.log.WithFields(logrus.Fields{
		"authorities":  len(names),
		"generated_at": now,
	}).Debug("Built rollup snapshot")
	return data, nil
}

// buildAuthority rolls one authority scope's samples into its three action
// scopes.
func (a *Aggregator) buildAuthority(now time.Time, samples []types.Sample) *types.AuthorityRollup {
	return &types.AuthorityRollup{
		Fetch:      a.buildAction(now, samples, types.ActionFetch),
		Search:     a.buildAction(now, samples, types.ActionSearch),
		AllActions: a.buildAction(now, samples, types.ActionAll),
	}
}

// buildAction computes one action scope's datatable record and trend series.
func (a *Aggregator) buildAction(now time.Time, samples []types.Sample, scope types.Action) types.ActionRollup {
	statsFn := func(subset []types.Sample) types.StatsRecord {
		return a.calc.Calculate(subset, scope, stats.StatAll)
	}

	return types.ActionRollup{
		Datatable:    a.datatable(now, samples, scope),
		Last24Hours:  a.selector.Series(buckets.Hour, now, samples, statsFn),
		Last30Days:   a.selector.Series(buckets.Day, now, samples, statsFn),
		Last12Months: a.selector.Series(buckets.Month, now, samples, statsFn),
	}
}

// datatable computes the current-period table statistics. The window is
// chosen by priority fallback: the current calendar day if it has matching
// samples, else the current month, else the current year, else the full
// history. Dashboards depend on this exact precedence.
func (a *Aggregator) datatable(now time.Time, samples []types.Sample, scope types.Action) types.StatsRecord {
	windows := []buckets.Window{
		a.selector.CurrentDay(now),
		a.selector.CurrentMonth(now),
		a.selector.CurrentYear(now),
	}

	for _, w := range windows {
		subset := samplesInWindow(samples, w, scope)
		if len(subset) > 0 {
			return a.calc.Calculate(subset, scope, stats.StatAll)
		}
	}

	return a.calc.Calculate(samples, scope, stats.StatAll)
}

// samplesInWindow filters samples to a window and action scope.
func samplesInWindow(samples []types.Sample, w buckets.Window, scope types.Action) []types.Sample {
	var out []types.Sample
	for _, s := range samples {
		if scope != types.ActionAll && s.Action != scope {
			continue
		}
		if w.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out
}

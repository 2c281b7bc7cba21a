package rollup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/cache"
	"github.com/jimfhahn/qa-server/monitor/types"
)

// ViewKind selects which part of the rollup a report request produces.
type ViewKind string

const (
	// ViewAll returns the complete rollup.
	ViewAll ViewKind = "all"
	// ViewGraphs returns only the trend series and hands them to the
	// graph renderer.
	ViewGraphs ViewKind = "graphs"
	// ViewDatatables returns only the current-period table records.
	ViewDatatables ViewKind = "datatables"
	// ViewNone produces nothing; used to suppress reporting entirely.
	ViewNone ViewKind = "none"
)

// ParseViewKind converts a request parameter into a ViewKind. Empty means all.
func ParseViewKind(s string) (ViewKind, error) {
	switch ViewKind(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewGraphs:
		return ViewGraphs, nil
	case ViewDatatables:
		return ViewDatatables, nil
	case ViewNone:
		return ViewNone, nil
	default:
		return "", fmt.Errorf("unknown view kind %q", s)
	}
}

// GraphRenderer is the external graph-rendering boundary. Graph-oriented
// report requests hand the rollup to it.
type GraphRenderer interface {
	RenderGraphs(data *types.PerformanceData) error
}

// LogRenderer is the default renderer: it only notes that graphs would be
// produced. The real renderer lives outside this system.
type LogRenderer struct {
	Log logrus.FieldLogger
}

// RenderGraphs logs the rollup hand-off.
func (r *LogRenderer) RenderGraphs(data *types.PerformanceData) error {
	r.Log.WithFields(logrus.Fields{
		"authorities":  len(data.Authorities),
		"generated_at": data.GeneratedAt,
	}).Info("Handing rollup to graph renderer")
	return nil
}

// Service is the reporting boundary over the cached rollup.
type Service struct {
	cache    *cache.SnapshotCache
	renderer GraphRenderer
	log      logrus.FieldLogger
}

// NewService creates the reporting service. A nil renderer falls back to the
// log-only default.
func NewService(snapshots *cache.SnapshotCache, renderer GraphRenderer, log logrus.FieldLogger) *Service {
	log = log.WithField("component", "rollup_service")
	if renderer == nil {
		renderer = &LogRenderer{Log: log}
	}
	return &Service{
		cache:    snapshots,
		renderer: renderer,
		log:      log,
	}
}

// PerformanceData returns the rollup projected to the requested view,
// recomputing through the cache as needed. The graphs view additionally
// hands the data to the renderer; renderer failures are logged, not
// propagated, since the data itself is still good.
func (s *Service) PerformanceData(ctx context.Context, kind ViewKind) (*types.PerformanceData, error) {
	if kind == ViewNone {
		return nil, nil
	}

	data, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ViewGraphs:
		projected := project(data, true)
		if err := s.renderer.RenderGraphs(projected); err != nil {
			s.log.WithError(err).Error("Graph renderer failed")
		}
		return projected, nil
	case ViewDatatables:
		return project(data, false), nil
	default:
		return data, nil
	}
}

// Refresh forces a full recomputation (write_all) and returns the new
// snapshot.
func (s *Service) Refresh(ctx context.Context) (*types.PerformanceData, error) {
	return s.cache.Refresh(ctx)
}

// Invalidate drops the cached snapshot so the next read recomputes.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// project copies the rollup keeping either the series (graphs=true) or the
// datatable records (graphs=false). The cached snapshot is shared with other
// readers and must not be mutated.
func project(data *types.PerformanceData, graphs bool) *types.PerformanceData {
	out := &types.PerformanceData{
		GeneratedAt: data.GeneratedAt,
		Authorities: make(map[string]*types.AuthorityRollup, len(data.Authorities)),
	}

	for name, auth := range data.Authorities {
		out.Authorities[name] = &types.AuthorityRollup{
			Fetch:      projectAction(auth.Fetch, graphs),
			Search:     projectAction(auth.Search, graphs),
			AllActions: projectAction(auth.AllActions, graphs),
		}
	}
	return out
}

func projectAction(ar types.ActionRollup, graphs bool) types.ActionRollup {
	if graphs {
		return types.ActionRollup{
			Last24Hours:  ar.Last24Hours,
			Last30Days:   ar.Last30Days,
			Last12Months: ar.Last12Months,
		}
	}
	return types.ActionRollup{Datatable: ar.Datatable}
}

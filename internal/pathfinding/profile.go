package pathfinding

import (
	"context"
	"sync/atomic"
	"time"
)

// NavigatorProfiler captures instrumentation hooks for block-level pathfinding.
type NavigatorProfiler interface {
	RecordNodeExpanded()
	RecordNeighborGeneration(count int)
	RecordHeuristicEvaluation()
	RecordRelaxation()
	RecordSearch(outcome Outcome, elapsed time.Duration)
}

// NavigatorMetrics accumulates profiling counters for Engine searches.
type NavigatorMetrics struct {
	searches             atomic.Int64
	found                atomic.Int64
	searchTime           atomic.Int64
	heuristicEvaluations atomic.Int64
	nodesExpanded        atomic.Int64
	neighborGenerations  atomic.Int64
	neighborCount        atomic.Int64
	relaxations          atomic.Int64
}

// MetricsSnapshot captures a point-in-time copy of navigator metrics.
type MetricsSnapshot struct {
	Searches             int64
	Found                int64
	SearchTime           time.Duration
	HeuristicEvaluations int64
	NodesExpanded        int64
	NeighborGenerations  int64
	NeighborCount        int64
	Relaxations          int64
}

// Profiler returns a NavigatorProfiler implementation backed by this metric set.
func (m *NavigatorMetrics) Profiler() NavigatorProfiler {
	if m == nil {
		return nil
	}
	return (*metricsProfiler)(m)
}

// Reset zeroes all counters in the metrics set.
func (m *NavigatorMetrics) Reset() {
	if m == nil {
		return
	}
	m.searches.Store(0)
	m.found.Store(0)
	m.searchTime.Store(0)
	m.heuristicEvaluations.Store(0)
	m.nodesExpanded.Store(0)
	m.neighborGenerations.Store(0)
	m.neighborCount.Store(0)
	m.relaxations.Store(0)
}

// Snapshot captures the current counter values.
func (m *NavigatorMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Searches:             m.searches.Load(),
		Found:                m.found.Load(),
		SearchTime:           time.Duration(m.searchTime.Load()),
		HeuristicEvaluations: m.heuristicEvaluations.Load(),
		NodesExpanded:        m.nodesExpanded.Load(),
		NeighborGenerations:  m.neighborGenerations.Load(),
		NeighborCount:        m.neighborCount.Load(),
		Relaxations:          m.relaxations.Load(),
	}
}

// metricsProfiler implements NavigatorProfiler by mutating the backing metrics set.
type metricsProfiler NavigatorMetrics

func (m *metricsProfiler) RecordNodeExpanded() {
	(*NavigatorMetrics)(m).nodesExpanded.Add(1)
}

func (m *metricsProfiler) RecordNeighborGeneration(count int) {
	metrics := (*NavigatorMetrics)(m)
	metrics.neighborGenerations.Add(1)
	metrics.neighborCount.Add(int64(count))
}

func (m *metricsProfiler) RecordHeuristicEvaluation() {
	(*NavigatorMetrics)(m).heuristicEvaluations.Add(1)
}

func (m *metricsProfiler) RecordRelaxation() {
	(*NavigatorMetrics)(m).relaxations.Add(1)
}

func (m *metricsProfiler) RecordSearch(outcome Outcome, elapsed time.Duration) {
	metrics := (*NavigatorMetrics)(m)
	metrics.searches.Add(1)
	if outcome == OutcomeFound {
		metrics.found.Add(1)
	}
	metrics.searchTime.Add(elapsed.Nanoseconds())
}

// MultiProfiler fans every hook out to each non-nil profiler.
func MultiProfiler(profilers ...NavigatorProfiler) NavigatorProfiler {
	var out multiProfiler
	for _, p := range profilers {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type multiProfiler []NavigatorProfiler

func (m multiProfiler) RecordNodeExpanded() {
	for _, p := range m {
		p.RecordNodeExpanded()
	}
}

func (m multiProfiler) RecordNeighborGeneration(count int) {
	for _, p := range m {
		p.RecordNeighborGeneration(count)
	}
}

func (m multiProfiler) RecordHeuristicEvaluation() {
	for _, p := range m {
		p.RecordHeuristicEvaluation()
	}
}

func (m multiProfiler) RecordRelaxation() {
	for _, p := range m {
		p.RecordRelaxation()
	}
}

func (m multiProfiler) RecordSearch(outcome Outcome, elapsed time.Duration) {
	for _, p := range m {
		p.RecordSearch(outcome, elapsed)
	}
}

type profilerContextKey struct{}

// ContextWithProfiler returns a context that will report the provided profiler during
// pathfinding operations.
func ContextWithProfiler(ctx context.Context, profiler NavigatorProfiler) context.Context {
	if profiler == nil {
		return ctx
	}
	return context.WithValue(ctx, profilerContextKey{}, profiler)
}

func profilerFromContext(ctx context.Context) NavigatorProfiler {
	if ctx == nil {
		return nil
	}
	if profiler, ok := ctx.Value(profilerContextKey{}).(NavigatorProfiler); ok {
		return profiler
	}
	return nil
}

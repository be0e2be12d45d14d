// Package telemetry exports navigation activity as Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/session"
)

const namespace = "voxelnav"

// Metrics implements pathfinding.NavigatorProfiler for the search workers and
// session.Observer for the simulation thread.
type Metrics struct {
	searches             *prometheus.CounterVec
	searchDuration       *prometheus.HistogramVec
	nodesExpanded        prometheus.Counter
	neighborGenerations  prometheus.Counter
	neighborCount        prometheus.Counter
	heuristicEvaluations prometheus.Counter
	relaxations          prometheus.Counter

	events      *prometheus.CounterVec
	cacheServed prometheus.Counter
	pathLength  prometheus.Histogram
	pathCost    prometheus.Histogram
}

// New registers the navigation collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed path searches by outcome.",
		}, []string{"outcome"}),
		searchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Path search wall time by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"outcome"}),
		nodesExpanded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_nodes_expanded_total",
			Help:      "Nodes removed from the open set.",
		}),
		neighborGenerations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_neighbor_generations_total",
			Help:      "Calls to the move-cost model.",
		}),
		neighborCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_neighbors_total",
			Help:      "Moves produced by the move-cost model.",
		}),
		heuristicEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_heuristic_evaluations_total",
			Help:      "Heuristic estimates computed.",
		}),
		relaxations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_relaxations_total",
			Help:      "Open set entries improved by a cheaper route.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Navigation session events by kind.",
		}, []string{"kind"}),
		cacheServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cached_paths_total",
			Help:      "Paths installed straight from the path cache.",
		}),
		pathLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_waypoints",
			Help:      "Waypoints per installed path.",
			Buckets:   []float64{2, 5, 10, 20, 50, 100, 200, 500},
		}),
		pathCost: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_cost",
			Help:      "Move cost of paths found by a search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) RecordNodeExpanded() {
	m.nodesExpanded.Inc()
}

func (m *Metrics) RecordNeighborGeneration(count int) {
	m.neighborGenerations.Inc()
	m.neighborCount.Add(float64(count))
}

func (m *Metrics) RecordHeuristicEvaluation() {
	m.heuristicEvaluations.Inc()
}

func (m *Metrics) RecordRelaxation() {
	m.relaxations.Inc()
}

func (m *Metrics) RecordSearch(outcome pathfinding.Outcome, elapsed time.Duration) {
	label := outcome.String()
	m.searches.WithLabelValues(label).Inc()
	m.searchDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// Observe counts session events. Paths are only measured when they are installed.
func (m *Metrics) Observe(e session.Event) {
	m.events.WithLabelValues(e.Kind.String()).Inc()
	if e.Kind != session.EventPathStarted {
		return
	}
	m.pathLength.Observe(float64(e.PathLength))
	if e.Cached {
		m.cacheServed.Inc()
		return
	}
	m.pathCost.Observe(e.Cost)
}

// RegisterCache exports the cache counters read through stats on every scrape.
func RegisterCache(reg prometheus.Registerer, stats func() pathcache.Stats) {
	factory := promauto.With(reg)
	gauge := func(name, help string, read func(pathcache.Stats) int) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}
	counter := func(name, help string, read func(pathcache.Stats) int64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}

	gauge("entries", "Paths currently cached.", func(s pathcache.Stats) int { return s.Size })
	gauge("capacity", "Entries that trigger a full clear.", func(s pathcache.Stats) int { return s.Capacity })
	counter("hits_total", "Cache lookups that returned a path.", func(s pathcache.Stats) int64 { return s.Hits })
	counter("misses_total", "Cache lookups without a usable path.", func(s pathcache.Stats) int64 { return s.Misses })
	counter("expired_total", "Entries dropped for exceeding the TTL.", func(s pathcache.Stats) int64 { return s.Expired })
	counter("clears_total", "Full cache clears.", func(s pathcache.Stats) int64 { return s.Clears })
}

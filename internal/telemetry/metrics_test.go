package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/session"
)

var _ pathfinding.NavigatorProfiler = (*Metrics)(nil)

func TestMetricsRecordSearches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordNodeExpanded()
	m.RecordNodeExpanded()
	m.RecordNeighborGeneration(8)
	m.RecordHeuristicEvaluation()
	m.RecordRelaxation()
	m.RecordSearch(pathfinding.OutcomeFound, 3*time.Millisecond)
	m.RecordSearch(pathfinding.OutcomeBudgetExceeded, 40*time.Millisecond)
	m.RecordSearch(pathfinding.OutcomeFound, time.Millisecond)

	if got := testutil.ToFloat64(m.nodesExpanded); got != 2 {
		t.Fatalf("expected 2 expanded nodes, got %v", got)
	}
	if got := testutil.ToFloat64(m.neighborCount); got != 8 {
		t.Fatalf("expected 8 neighbours, got %v", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("found")); got != 2 {
		t.Fatalf("expected 2 found searches, got %v", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("budget-exceeded")); got != 1 {
		t.Fatalf("expected 1 budget-exceeded search, got %v", got)
	}
	if got := testutil.CollectAndCount(m.searchDuration); got != 2 {
		t.Fatalf("expected one duration series per outcome, got %d", got)
	}
}

func TestMetricsObserveSessionEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(session.Event{Kind: session.EventPathStarted, PathLength: 5, Cost: 4})
	m.Observe(session.Event{Kind: session.EventPathStarted, PathLength: 5, Cached: true})
	m.Observe(session.Event{Kind: session.EventSearchFailed})
	m.Observe(session.Event{Kind: session.EventArrived})

	if got := testutil.ToFloat64(m.events.WithLabelValues("path_started")); got != 2 {
		t.Fatalf("expected 2 path_started events, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheServed); got != 1 {
		t.Fatalf("expected 1 cached path, got %v", got)
	}

	expected := `
# HELP voxelnav_path_cost Move cost of paths found by a search.
# TYPE voxelnav_path_cost histogram
voxelnav_path_cost_bucket{le="1"} 0
voxelnav_path_cost_bucket{le="2"} 0
voxelnav_path_cost_bucket{le="4"} 1
voxelnav_path_cost_bucket{le="8"} 1
voxelnav_path_cost_bucket{le="16"} 1
voxelnav_path_cost_bucket{le="32"} 1
voxelnav_path_cost_bucket{le="64"} 1
voxelnav_path_cost_bucket{le="128"} 1
voxelnav_path_cost_bucket{le="256"} 1
voxelnav_path_cost_bucket{le="512"} 1
voxelnav_path_cost_bucket{le="+Inf"} 1
voxelnav_path_cost_sum 4
voxelnav_path_cost_count 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "voxelnav_path_cost"); err != nil {
		t.Fatalf("unexpected path cost histogram: %v", err)
	}
}

func TestRegisterCacheReadsStatsOnScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := pathcache.Stats{Size: 3, Capacity: 50, Hits: 7, Misses: 2, Clears: 1}
	RegisterCache(reg, func() pathcache.Stats { return stats })

	expected := `
# HELP voxelnav_cache_entries Paths currently cached.
# TYPE voxelnav_cache_entries gauge
voxelnav_cache_entries 3
# HELP voxelnav_cache_hits_total Cache lookups that returned a path.
# TYPE voxelnav_cache_hits_total counter
voxelnav_cache_hits_total 7
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "voxelnav_cache_entries", "voxelnav_cache_hits_total"); err != nil {
		t.Fatalf("unexpected cache metrics: %v", err)
	}

	stats.Size = 0
	stats.Clears = 2
	if got, err := testutil.GatherAndCount(reg, "voxelnav_cache_clears_total"); err != nil || got != 1 {
		t.Fatalf("expected one clears series, got %d (%v)", got, err)
	}
	expected = `
# HELP voxelnav_cache_entries Paths currently cached.
# TYPE voxelnav_cache_entries gauge
voxelnav_cache_entries 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "voxelnav_cache_entries"); err != nil {
		t.Fatalf("gauge should follow the latest stats: %v", err)
	}
}

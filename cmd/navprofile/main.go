package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/terrain"
	"voxelnav/internal/world"
)

type pathJob struct {
	origin      world.Coord
	destination world.Coord
}

type profileConfig struct {
	requests    int
	concurrency int
	pairs       int
	budget      int
	heuristic   pathfinding.Heuristic
	timeout     time.Duration
	seed        int64
	terrain     terrain.Config
}

type profileResult struct {
	requests   int
	successes  int64
	failures   int64
	exhausted  int64
	timeouts   int64
	pathSteps  int64
	routeTime  int64
	wall       time.Duration
	candidates int
	metrics    pathfinding.MetricsSnapshot
	cache      pathcache.Stats
}

func main() {
	cfg := profileConfig{terrain: terrain.DefaultConfig()}
	var heuristic string
	flag.IntVar(&cfg.requests, "requests", 2000, "number of pathfinding requests to issue")
	flag.IntVar(&cfg.concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	flag.IntVar(&cfg.pairs, "pairs", 500, "distinct origin/destination pairs; repeats are served from the path cache")
	flag.IntVar(&cfg.budget, "budget", pathfinding.DefaultIterationBudget, "iteration budget per search")
	flag.StringVar(&heuristic, "heuristic", "admissible", "heuristic: admissible or euclidean")
	flag.DurationVar(&cfg.timeout, "timeout", 250*time.Millisecond, "per-request timeout")
	flag.Int64Var(&cfg.seed, "seed", 1337, "random seed for world and pair selection")
	flag.IntVar(&cfg.terrain.Size, "size", 96, "world size in blocks")
	flag.Parse()

	if cfg.requests <= 0 || cfg.concurrency <= 0 || cfg.pairs <= 0 {
		fmt.Fprintln(os.Stderr, "requests, concurrency and pairs must be positive")
		os.Exit(1)
	}
	h, err := pathfinding.ParseHeuristic(heuristic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.heuristic = h
	cfg.terrain.Seed = cfg.seed

	res, err := profile(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		os.Exit(1)
	}
	report(os.Stdout, cfg, res)
}

func profile(ctx context.Context, cfg profileConfig) (profileResult, error) {
	gen := terrain.NewGenerator(cfg.terrain, nil, log.New(io.Discard, "", 0))
	grid, err := gen.Generate(ctx)
	if err != nil {
		return profileResult{}, err
	}
	candidates := standingPoints(gen)
	if len(candidates) < 2 {
		return profileResult{}, fmt.Errorf("not enough standing points to profile")
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	pairs := make([]pathJob, cfg.pairs)
	for i := range pairs {
		origin := candidates[rng.Intn(len(candidates))]
		destination := candidates[rng.Intn(len(candidates))]
		for destination == origin {
			destination = candidates[rng.Intn(len(candidates))]
		}
		pairs[i] = pathJob{origin: origin, destination: destination}
	}

	field := world.Live(grid, world.NewHazardSet(world.DefaultHazards()...))
	engine := pathfinding.NewEngine(cfg.budget, cfg.heuristic)
	cache := pathcache.New(pathcache.Config{Capacity: cfg.pairs + 1})
	opts := pathfinding.DefaultOptions()
	var metrics pathfinding.NavigatorMetrics
	ctx = pathfinding.ContextWithProfiler(ctx, metrics.Profiler())

	res := profileResult{requests: cfg.requests, candidates: len(candidates)}
	jobs := make(chan pathJob)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < cfg.requests; i++ {
			select {
			case jobs <- pairs[rng.Intn(len(pairs))]:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < cfg.concurrency; i++ {
		g.Go(func() error {
			for job := range jobs {
				key := cache.KeyFor(job.origin, job.destination, opts)
				if path, ok := cache.Get(key); ok {
					atomic.AddInt64(&res.successes, 1)
					atomic.AddInt64(&res.pathSteps, int64(path.Len()-1))
					continue
				}

				searchCtx, cancel := context.WithTimeout(gctx, cfg.timeout)
				result := engine.Search(searchCtx, field, pathfinding.Request{
					Origin:      job.origin,
					Destination: job.destination,
					Options:     opts,
				})
				cancel()
				atomic.AddInt64(&res.routeTime, int64(result.Elapsed))

				switch result.Outcome {
				case pathfinding.OutcomeFound:
					cache.Put(key, result.Path)
					atomic.AddInt64(&res.successes, 1)
					atomic.AddInt64(&res.pathSteps, int64(result.Path.Len()-1))
				case pathfinding.OutcomeBudgetExceeded:
					atomic.AddInt64(&res.exhausted, 1)
				case pathfinding.OutcomeCancelled:
					if err := gctx.Err(); err != nil {
						return err
					}
					atomic.AddInt64(&res.timeouts, 1)
				default:
					atomic.AddInt64(&res.failures, 1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	res.wall = time.Since(start)
	res.metrics = metrics.Snapshot()
	res.cache = cache.Stats()
	return res, nil
}

func standingPoints(gen *terrain.Generator) []world.Coord {
	bounds := gen.Bounds()
	var points []world.Coord
	for x := bounds.Min.X; x <= bounds.Max.X; x++ {
		for z := bounds.Min.Z; z <= bounds.Max.Z; z++ {
			if c, ok := gen.StandingPoint(x, z); ok {
				points = append(points, c)
			}
		}
	}
	return points
}

func report(w io.Writer, cfg profileConfig, res profileResult) {
	searches := res.metrics.Searches
	avg := func(total int64) float64 {
		if searches == 0 {
			return 0
		}
		return float64(total) / float64(searches)
	}
	avgPath := 0.0
	if res.successes > 0 {
		avgPath = float64(res.pathSteps) / float64(res.successes)
	}
	hitRatio := 0.0
	if lookups := res.cache.Hits + res.cache.Misses; lookups > 0 {
		hitRatio = float64(res.cache.Hits) / float64(lookups) * 100
	}

	fmt.Fprintln(w, "== Voxel Navigation Profile ==")
	fmt.Fprintf(w, "World: %dx%d blocks, seed %d, %d standing points\n", cfg.terrain.Size, cfg.terrain.Size, cfg.seed, res.candidates)
	fmt.Fprintf(w, "Heuristic: %s, budget %d\n", cfg.heuristic, cfg.budget)
	fmt.Fprintf(w, "Requests: %d over %d pairs\n", res.requests, cfg.pairs)
	fmt.Fprintf(w, "Concurrency: %d\n", cfg.concurrency)
	fmt.Fprintf(w, "Successes: %d, Unreachable: %d, Budget exceeded: %d, Timeouts: %d\n", res.successes, res.failures, res.exhausted, res.timeouts)
	fmt.Fprintf(w, "Average path length (steps): %.2f\n", avgPath)
	fmt.Fprintf(w, "Searches run: %d\n", searches)
	fmt.Fprintf(w, "Average per-search duration: %s\n", time.Duration(avg(res.routeTime)))
	fmt.Fprintf(w, "Wall clock duration: %s\n", res.wall)
	fmt.Fprintf(w, "Average nodes expanded: %.2f\n", avg(res.metrics.NodesExpanded))
	fmt.Fprintf(w, "Average heuristic evaluations: %.2f\n", avg(res.metrics.HeuristicEvaluations))
	fmt.Fprintf(w, "Average relaxations: %.2f\n", avg(res.metrics.Relaxations))
	fmt.Fprintf(w, "Cache hit ratio: %.2f%% (%d hits, %d misses)\n", hitRatio, res.cache.Hits, res.cache.Misses)
}

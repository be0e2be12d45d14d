package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"voxelnav/internal/config"
	"voxelnav/internal/navlog"
	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/script"
	"voxelnav/internal/session"
	"voxelnav/internal/sim"
	"voxelnav/internal/statusfeed"
	"voxelnav/internal/telemetry"
	"voxelnav/internal/terrain"
	"voxelnav/internal/world"
)

const spawnSearchRadius = 16

type options struct {
	fromX, fromZ int
	toX, toZ     int
	command      string
	listen       string
	traceDir     string
	stay         bool
	// addr receives the bound listen address once the HTTP server is up.
	addr chan<- string
}

type report struct {
	Spawn       world.Coord
	Destination world.Coord
	Arrived     bool
	Outcome     string
	Ticks       uint64
	Final       world.Vec3
	Variables   map[string]string
}

// run generates a world, drives one avatar until it settles or ctx ends and reports
// where it got to.
func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) (report, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return report{}, err
	}
	gen := terrain.NewGenerator(cfg.TerrainConfig(), catalog, logger)
	grid, err := gen.Generate(ctx)
	if err != nil {
		return report{}, fmt.Errorf("generate world: %w", err)
	}

	spawn, ok := gen.NearestStandingPoint(opts.fromX, opts.fromZ, spawnSearchRadius)
	if !ok {
		return report{}, fmt.Errorf("no standing point near %d,%d", opts.fromX, opts.fromZ)
	}
	dest, ok := gen.NearestStandingPoint(opts.toX, opts.toZ, spawnSearchRadius)
	if !ok {
		return report{}, fmt.Errorf("no standing point near %d,%d", opts.toX, opts.toZ)
	}
	rep := report{Spawn: spawn, Destination: dest}

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	avatar := sim.NewKinematicAvatar(grid, spawn)
	nav, err := session.New(cfg.SessionConfig(), session.Deps{
		Avatar:   avatar,
		Terrain:  grid,
		Planner:  pathfinding.NewEngine(cfg.Search.IterationBudget, cfg.Heuristic()),
		Cache:    pathcache.New(cfg.CacheConfig()),
		Logger:   logger,
		Profiler: metrics,
	})
	if err != nil {
		return report{}, fmt.Errorf("initialise navigation: %w", err)
	}
	defer nav.Close()
	telemetry.RegisterCache(registry, nav.CacheStats)
	nav.Subscribe(metrics)

	hub := statusfeed.NewHub(logger)
	nav.Subscribe(hub)

	traceDir := cfg.Telemetry.TraceDir
	if opts.traceDir != "" {
		traceDir = opts.traceDir
	}
	if traceDir != "" {
		tracer := navlog.NewTracer(traceDir, logger)
		nav.Subscribe(tracer)
		defer func() {
			if err := tracer.Close(); err != nil {
				logger.Printf("close trace: %v", err)
			}
		}()
	}

	vars := script.NewMapVariables()
	binding := script.NewBinding(nav, vars, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	settled := make(chan struct{}, 1)
	nav.Subscribe(session.ObserverFunc(func(e session.Event) {
		switch e.Kind {
		case session.EventArrived, session.EventSearchFailed, session.EventStuck, session.EventAvatarLost:
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	}))

	nav.Start(ctx)
	command := splitCommand(opts.command)
	if len(command) == 0 {
		command = []string{strconv.Itoa(dest.X), strconv.Itoa(dest.Y), strconv.Itoa(dest.Z)}
	}
	out, err := binding.Execute(command)
	if err != nil {
		return rep, fmt.Errorf("pathfind %v: %w", command, err)
	}
	logger.Print(out)

	loop := sim.NewLoop(cfg.Simulation.TickRate.Duration(),
		avatar,
		sim.StepFunc(func(time.Duration) {
			nav.Tick()
			hub.Publish(nav.Status())
		}),
	)

	listen := cfg.Telemetry.Listen
	if opts.listen != "" {
		listen = opts.listen
	}
	g, gctx := errgroup.WithContext(ctx)
	if listen != "" {
		ln, err := net.Listen("tcp", listen)
		if err != nil {
			return rep, fmt.Errorf("listen %s: %w", listen, err)
		}
		if opts.addr != nil {
			opts.addr <- ln.Addr().String()
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		mux.Handle("/status", hub.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		loop.Start(gctx)
		defer loop.Wait()
		select {
		case <-gctx.Done():
		case <-settled:
			if opts.stay {
				<-gctx.Done()
			}
		}
		cancel()
		return nil
	})
	if err := g.Wait(); err != nil {
		return rep, err
	}

	status := nav.Status()
	rep.Arrived = status.Arrived
	rep.Outcome = status.Outcome
	rep.Ticks = loop.Ticks()
	rep.Final = avatar.Position()
	rep.Variables = make(map[string]string)
	for _, name := range vars.Names() {
		rep.Variables[name], _ = vars.Get(name)
	}
	return rep, nil
}

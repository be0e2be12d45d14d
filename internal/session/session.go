// Package session owns the single active navigation of one avatar.
//
// Navigate, Stop, SetHome, GoHome, Configure and Tick belong to the host's simulation
// thread. Searches run on a small worker pool against a terrain snapshot captured at
// dispatch time; their results are queued and only applied during Tick. Every request
// bumps a generation counter, and results carrying an older generation are discarded, so
// the most recent request always wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"voxelnav/internal/follower"
	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

var (
	ErrInvalidInput = errors.New("invalid navigation input")
	ErrNoAvatar     = errors.New("no controllable avatar")
	ErrNoHome       = errors.New("no home position set")
	ErrQueueFull    = errors.New("search queue is full")
	ErrClosed       = errors.New("session closed")
	ErrStuck        = errors.New("avatar stopped making progress")
)

// completionsPerTick bounds how many finished searches one Tick applies.
const completionsPerTick = 8

// Avatar is the controllable entity plus a presence check; Present is false while the
// host has no entity to drive.
type Avatar interface {
	follower.Avatar
	Present() bool
}

// Planner runs one search. *pathfinding.Engine satisfies it.
type Planner interface {
	Search(ctx context.Context, field world.Field, req pathfinding.Request) pathfinding.Result
}

// Config holds session tuning.
type Config struct {
	Defaults pathfinding.Options
	// Budget is the iteration budget passed with every request.
	Budget        int
	Workers       int
	QueueSize     int
	SearchTimeout time.Duration
	// Snapshot window margins around the origin/destination box.
	SnapshotMargin         int
	SnapshotVerticalMargin int
	Hazards                world.HazardSet
	// MaxDistance rejects destinations further than this many blocks from the avatar,
	// horizontally or vertically. Zero disables the check.
	MaxDistance int
	// MaxSnapshotVolume caps the voxels copied per search; larger windows are shrunk
	// around the origin.
	MaxSnapshotVolume int
	// StepwiseAdvance makes the follower consume at most one waypoint per tick.
	StepwiseAdvance bool
	// StuckTicks abandons a path after this many ticks without reaching a waypoint.
	// Zero disables the check.
	StuckTicks int
}

func DefaultConfig() Config {
	return Config{
		Defaults:               pathfinding.DefaultOptions(),
		Budget:                 pathfinding.DefaultIterationBudget,
		Workers:                2,
		QueueSize:              16,
		SearchTimeout:          2 * time.Second,
		SnapshotMargin:         24,
		SnapshotVerticalMargin: 16,
		Hazards:                world.NewHazardSet(world.DefaultHazards()...),
		MaxDistance:            256,
		MaxSnapshotVolume:      1 << 20,
		StuckTicks:             200,
	}
}

// Deps are the collaborators a session drives. Avatar and Terrain are required.
type Deps struct {
	Avatar   Avatar
	Terrain  world.Terrain
	Planner  Planner
	Cache    *pathcache.Cache
	Logger   *log.Logger
	Profiler pathfinding.NavigatorProfiler
}

// Dispatch describes what Navigate did with a request.
type Dispatch struct {
	Generation  uint64
	Origin      world.Coord
	Destination world.Coord
	// Cached is true when the path came from the cache and is already being followed.
	Cached     bool
	PathLength int
}

// Status is the caller-visible navigation state.
type Status struct {
	Generation  uint64      `json:"generation"`
	Searching   bool        `json:"searching"`
	Active      bool        `json:"active"`
	Arrived     bool        `json:"arrived"`
	Success     bool        `json:"success"`
	PathLength  int         `json:"path_length"`
	Remaining   int         `json:"remaining"`
	Outcome     string      `json:"outcome,omitempty"`
	Origin      world.Coord `json:"origin"`
	Destination world.Coord `json:"destination"`
	LastError   string      `json:"last_error,omitempty"`
}

type searchJob struct {
	generation uint64
	key        pathcache.Key
	field      world.Field
	request    pathfinding.Request
}

type Session struct {
	cfg      Config
	avatar   Avatar
	terrain  world.Terrain
	planner  Planner
	cache    *pathcache.Cache
	follower *follower.Follower
	logger   *log.Logger
	profiler pathfinding.NavigatorProfiler
	inbox    *completionQueue
	jobs     chan searchJob

	generation atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once
	closed atomic.Bool

	mu        sync.Mutex
	defaults  pathfinding.Options
	budget    int
	home      world.Coord
	hasHome   bool
	status    Status
	observers []Observer
}

func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Avatar == nil {
		return nil, fmt.Errorf("avatar must be set")
	}
	if deps.Terrain == nil {
		return nil, fmt.Errorf("terrain must be set")
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, err
	}
	if cfg.Budget <= 0 {
		cfg.Budget = pathfinding.DefaultIterationBudget
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Hazards == nil {
		cfg.Hazards = world.NewHazardSet(world.DefaultHazards()...)
	}
	if cfg.MaxSnapshotVolume <= 0 || cfg.MaxSnapshotVolume > world.MaxWindowVolume {
		cfg.MaxSnapshotVolume = world.MaxWindowVolume
	}

	planner := deps.Planner
	if planner == nil {
		planner = pathfinding.NewEngine(cfg.Budget, pathfinding.HeuristicAdmissible)
	}
	cache := deps.Cache
	if cache == nil {
		cache = pathcache.New(pathcache.Config{TTL: pathcache.DefaultTTL})
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "navigation ", log.LstdFlags|log.Lmicroseconds)
	}

	follow := follower.New()
	follow.SetStuckLimit(cfg.StuckTicks)
	follow.SetStepwise(cfg.StepwiseAdvance)

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:      cfg,
		avatar:   deps.Avatar,
		terrain:  deps.Terrain,
		planner:  planner,
		cache:    cache,
		follower: follow,
		logger:   logger,
		profiler: deps.Profiler,
		inbox:    newCompletionQueue(),
		jobs:     make(chan searchJob, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		defaults: cfg.Defaults,
		budget:   cfg.Budget,
	}, nil
}

// Start launches the search workers. Searches dispatched before Start wait in the queue.
// The workers stop when ctx ends or Close is called.
func (s *Session) Start(ctx context.Context) {
	s.start.Do(func() {
		if ctx != nil {
			go func() {
				select {
				case <-ctx.Done():
					s.cancel()
				case <-s.ctx.Done():
				}
			}()
		}
		for i := 0; i < s.cfg.Workers; i++ {
			s.wg.Add(1)
			go s.worker()
		}
	})
}

// Close cancels in-flight searches and waits for the workers to exit.
func (s *Session) Close() {
	s.closed.Store(true)
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every worker has exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Subscribe registers an observer for navigation events. Observers run on the
// simulation thread.
func (s *Session) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Navigate starts navigation from the avatar's current voxel to destination, replacing
// any previous navigation. A cache hit starts following immediately; otherwise a search
// is queued and its result is applied by a later Tick.
func (s *Session) Navigate(destination world.Coord, opts pathfinding.Options) (Dispatch, error) {
	if s.closed.Load() {
		return Dispatch{}, ErrClosed
	}
	if !s.avatar.Present() {
		s.recordFailure(ErrNoAvatar)
		return Dispatch{}, ErrNoAvatar
	}
	if err := opts.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		s.recordFailure(err)
		return Dispatch{}, err
	}

	origin := s.avatar.Position().Block()
	if err := s.checkReach(origin, destination); err != nil {
		s.recordFailure(err)
		return Dispatch{}, err
	}
	generation := s.generation.Add(1)
	s.follower.Stop(s.avatar)
	key := s.cache.KeyFor(origin, destination, opts)

	if path, ok := s.cache.Get(key); ok {
		s.logger.Printf("cache hit %v -> %v (%d waypoints)", origin, destination, path.Len())
		s.follower.Install(path, opts.PreferSprint)
		s.mu.Lock()
		s.status = Status{
			Generation:  generation,
			Active:      true,
			Success:     true,
			PathLength:  path.Len(),
			Remaining:   s.follower.Remaining(),
			Outcome:     pathfinding.OutcomeFound.String(),
			Origin:      origin,
			Destination: destination,
		}
		s.mu.Unlock()
		s.notify(Event{
			Kind:        EventPathStarted,
			Generation:  generation,
			Origin:      origin,
			Destination: destination,
			PathLength:  path.Len(),
			Cached:      true,
			Outcome:     pathfinding.OutcomeFound,
		})
		return Dispatch{Generation: generation, Origin: origin, Destination: destination, Cached: true, PathLength: path.Len()}, nil
	}

	bounds := world.BoundsAround(origin, destination, s.cfg.SnapshotMargin, s.cfg.SnapshotVerticalMargin)
	bounds = world.ClampVolume(bounds, origin, destination, s.cfg.MaxSnapshotVolume)
	snapshot, err := world.Capture(s.ctx, s.terrain, s.cfg.Hazards, bounds)
	if err != nil {
		return Dispatch{}, ErrClosed
	}

	s.mu.Lock()
	budget := s.budget
	s.mu.Unlock()
	job := searchJob{
		generation: generation,
		key:        key,
		field:      snapshot,
		request: pathfinding.Request{
			Origin:      origin,
			Destination: destination,
			Options:     opts,
			Budget:      budget,
		},
	}
	select {
	case s.jobs <- job:
	default:
		s.mu.Lock()
		s.status = Status{
			Generation:  generation,
			Origin:      origin,
			Destination: destination,
			LastError:   ErrQueueFull.Error(),
		}
		s.mu.Unlock()
		return Dispatch{}, ErrQueueFull
	}

	s.logger.Printf("search %d dispatched %v -> %v", generation, origin, destination)
	s.mu.Lock()
	s.status = Status{
		Generation:  generation,
		Searching:   true,
		Origin:      origin,
		Destination: destination,
	}
	s.mu.Unlock()
	return Dispatch{Generation: generation, Origin: origin, Destination: destination}, nil
}

// NavigateWith applies key/value option overrides on top of the session defaults before
// navigating. Overrides are applied in order, so a later alias of the same option wins.
func (s *Session) NavigateWith(destination world.Coord, overrides [][2]string) (Dispatch, error) {
	opts := s.Defaults()
	for _, kv := range overrides {
		if err := opts.Set(kv[0], kv[1]); err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
			s.recordFailure(err)
			return Dispatch{}, err
		}
	}
	return s.Navigate(destination, opts)
}

// Stop abandons the current navigation. A search still running will be discarded when
// it completes.
func (s *Session) Stop() {
	generation := s.generation.Add(1)
	s.follower.Stop(s.avatar)
	s.mu.Lock()
	wasActive := s.status.Active || s.status.Searching
	s.status.Generation = generation
	s.status.Active = false
	s.status.Searching = false
	s.status.Remaining = 0
	s.mu.Unlock()
	if wasActive {
		s.logger.Printf("navigation stopped")
	}
	s.notify(Event{Kind: EventStopped, Generation: generation})
}

// SetHome saves the avatar's current voxel as the home position.
func (s *Session) SetHome() (world.Coord, error) {
	if !s.avatar.Present() {
		return world.Coord{}, ErrNoAvatar
	}
	home := s.avatar.Position().Block()
	s.mu.Lock()
	s.home = home
	s.hasHome = true
	s.mu.Unlock()
	return home, nil
}

func (s *Session) Home() (world.Coord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.home, s.hasHome
}

// GoHome navigates to the saved home position with the session defaults.
func (s *Session) GoHome() (Dispatch, error) {
	home, ok := s.Home()
	if !ok {
		s.recordFailure(ErrNoHome)
		return Dispatch{}, ErrNoHome
	}
	return s.Navigate(home, s.Defaults())
}

// Configure changes one default option used by later requests. Besides the option
// names it accepts maxIterations, the search budget.
func (s *Session) Configure(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "maxiterations", "iterationbudget":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalidInput, key, value)
		}
		s.budget = n
		return nil
	}
	opts := s.defaults
	if err := opts.Set(key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.defaults = opts
	return nil
}

// Settings lists the current defaults and search budget as key/value pairs.
func (s *Session) Settings() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairs := s.defaults.Pairs()
	return append(pairs, [2]string{"maxIterations", strconv.Itoa(s.budget)})
}

func (s *Session) Defaults() pathfinding.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

func (s *Session) CacheStats() pathcache.Stats {
	return s.cache.Stats()
}

func (s *Session) CacheClear() {
	s.cache.Clear()
	s.logger.Printf("path cache cleared")
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Tick applies finished searches and advances the follower by one step. It must be
// called from the simulation thread once per tick.
func (s *Session) Tick() {
	for _, done := range s.inbox.Drain(completionsPerTick) {
		s.apply(done)
	}

	if !s.follower.Active() {
		return
	}
	if !s.avatar.Present() {
		s.follower.Stop(nil)
		s.mu.Lock()
		s.status.Active = false
		s.status.Success = false
		s.status.Remaining = 0
		s.status.LastError = ErrNoAvatar.Error()
		status := s.status
		s.mu.Unlock()
		s.logger.Printf("avatar lost on the way to %v, path abandoned", status.Destination)
		s.notify(Event{
			Kind:        EventAvatarLost,
			Generation:  status.Generation,
			Origin:      status.Origin,
			Destination: status.Destination,
			PathLength:  status.PathLength,
		})
		return
	}

	event := s.follower.Tick(s.avatar)
	s.mu.Lock()
	s.status.Remaining = s.follower.Remaining()
	switch event {
	case follower.EventArrived:
		s.status.Active = false
		s.status.Arrived = true
	case follower.EventStuck:
		s.status.Active = false
		s.status.Success = false
		s.status.LastError = ErrStuck.Error()
	}
	status := s.status
	s.mu.Unlock()

	kind := EventArrived
	switch event {
	case follower.EventArrived:
		s.logger.Printf("arrived at %v", status.Destination)
	case follower.EventStuck:
		s.logger.Printf("stuck on the way to %v, path abandoned", status.Destination)
		kind = EventStuck
	default:
		return
	}
	s.notify(Event{
		Kind:        kind,
		Generation:  status.Generation,
		Origin:      status.Origin,
		Destination: status.Destination,
		PathLength:  status.PathLength,
	})
}

func (s *Session) apply(done completion) {
	result := done.result
	event := Event{
		Generation:  done.generation,
		Origin:      done.origin,
		Destination: done.destination,
		Outcome:     result.Outcome,
		Expanded:    result.Expanded,
		Cost:        result.Cost,
		Elapsed:     result.Elapsed,
	}
	if done.generation != s.generation.Load() {
		s.logger.Printf("search %d discarded: superseded", done.generation)
		event.Kind = EventDiscarded
		s.notify(event)
		return
	}

	if !result.Found() {
		s.logger.Printf("search %d %v -> %v: %s after %d nodes (%s)",
			done.generation, done.origin, done.destination, result.Outcome, result.Expanded, result.Elapsed)
		s.mu.Lock()
		s.status.Searching = false
		s.status.Active = false
		s.status.Success = false
		s.status.Outcome = result.Outcome.String()
		s.mu.Unlock()
		event.Kind = EventSearchFailed
		s.notify(event)
		return
	}

	if s.cache.Put(done.key, result.Path) {
		s.logger.Printf("path cache full, cleared")
	}
	s.follower.Install(result.Path, done.options.PreferSprint)
	s.logger.Printf("search %d %v -> %v: %d waypoints, cost %.1f, %d nodes (%s)",
		done.generation, done.origin, done.destination, result.Path.Len(), result.Cost, result.Expanded, result.Elapsed)
	s.mu.Lock()
	s.status.Searching = false
	s.status.Active = true
	s.status.Success = true
	s.status.PathLength = result.Path.Len()
	s.status.Remaining = s.follower.Remaining()
	s.status.Outcome = result.Outcome.String()
	s.mu.Unlock()
	event.Kind = EventPathStarted
	event.PathLength = result.Path.Len()
	s.notify(event)
}

func (s *Session) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.jobs:
			if job.generation != s.generation.Load() {
				continue
			}
			s.inbox.Enqueue(s.run(job))
		}
	}
}

func (s *Session) run(job searchJob) completion {
	ctx := pathfinding.ContextWithProfiler(s.ctx, s.profiler)
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
	}
	return completion{
		generation:  job.generation,
		key:         job.key,
		origin:      job.request.Origin,
		destination: job.request.Destination,
		options:     job.request.Options,
		result:      s.planner.Search(ctx, job.field, job.request),
	}
}

// checkReach rejects destinations the search could never reach within its window.
func (s *Session) checkReach(origin, destination world.Coord) error {
	limit := s.cfg.MaxDistance
	if limit <= 0 {
		return nil
	}
	if origin.HorizontalDistance(destination) > float64(limit) ||
		math.Abs(float64(destination.Y)-float64(origin.Y)) > float64(limit) {
		return fmt.Errorf("%w: %v is more than %d blocks from %v", ErrInvalidInput, destination, limit, origin)
	}
	return nil
}

func (s *Session) recordFailure(err error) {
	s.mu.Lock()
	s.status.Success = false
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func (s *Session) notify(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	s.mu.Lock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o.Observe(event)
	}
}

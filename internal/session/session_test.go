package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

type testAvatar struct {
	mu       sync.Mutex
	pos      world.Vec3
	present  bool
	forward  bool
	sprint   bool
	yaw      float64
	grounded bool
}

func newTestAvatar(at world.Coord) *testAvatar {
	return &testAvatar{pos: at.Center(), present: true, grounded: true}
}

func (a *testAvatar) Position() world.Vec3 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

func (a *testAvatar) moveTo(c world.Coord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = c.Center()
}

func (a *testAvatar) Grounded() bool         { return a.grounded }
func (a *testAvatar) SetYaw(degrees float64) { a.yaw = degrees }
func (a *testAvatar) SetMoveForward(v bool)  { a.forward = v }
func (a *testAvatar) Jump()                  {}
func (a *testAvatar) SetSprint(v bool)       { a.sprint = v }
func (a *testAvatar) Present() bool          { return a.present }

// countingPlanner wraps a real engine and counts invocations.
type countingPlanner struct {
	engine *pathfinding.Engine
	calls  atomic.Int32
	mu     sync.Mutex
	last   pathfinding.Request
}

func (p *countingPlanner) Search(ctx context.Context, field world.Field, req pathfinding.Request) pathfinding.Result {
	p.calls.Add(1)
	p.mu.Lock()
	p.last = req
	p.mu.Unlock()
	return p.engine.Search(ctx, field, req)
}

func (p *countingPlanner) lastRequest() pathfinding.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// straightPlanner returns origin and destination as a two-waypoint path.
type straightPlanner struct {
	calls atomic.Int32
}

func (p *straightPlanner) Search(_ context.Context, _ world.Field, req pathfinding.Request) pathfinding.Result {
	p.calls.Add(1)
	return pathfinding.Result{
		Outcome: pathfinding.OutcomeFound,
		Path:    pathfinding.NewPath([]world.Coord{req.Origin, req.Destination}),
		Cost:    1,
	}
}

// gatedPlanner blocks its first search until release is closed.
type gatedPlanner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	first   atomic.Bool
}

func newGatedPlanner() *gatedPlanner {
	return &gatedPlanner{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedPlanner) Search(_ context.Context, _ world.Field, req pathfinding.Request) pathfinding.Result {
	if p.first.CompareAndSwap(false, true) {
		p.once.Do(func() { close(p.started) })
		<-p.release
	}
	return pathfinding.Result{
		Outcome: pathfinding.OutcomeFound,
		Path:    pathfinding.NewPath([]world.Coord{req.Origin, req.Destination}),
	}
}

type failingPlanner struct{}

func (failingPlanner) Search(context.Context, world.Field, pathfinding.Request) pathfinding.Result {
	return pathfinding.Result{Outcome: pathfinding.OutcomeBudgetExceeded, Expanded: 2000}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func flatWorld(t *testing.T) *world.Grid {
	t.Helper()
	grid := world.NewGrid(0)
	grid.Fill(world.Bounds{
		Min: world.Coord{X: -16, Y: 63, Z: -16},
		Max: world.Coord{X: 16, Y: 63, Z: 16},
	}, world.Cell{Kind: world.KindSolid, Material: "stone"})
	return grid
}

func newTestSession(t *testing.T, avatar Avatar, terrain world.Terrain, planner Planner) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.SnapshotMargin = 4
	cfg.SnapshotVerticalMargin = 4
	s, err := New(cfg, Deps{
		Avatar:  avatar,
		Terrain: terrain,
		Planner: planner,
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

// tickUntilSettled ticks until no search is pending.
func tickUntilSettled(t *testing.T, s *Session) Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Tick()
		if status := s.Status(); !status.Searching {
			return status
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("search did not complete: %+v", s.Status())
	return Status{}
}

func TestNavigateSearchesThenReusesCachedPath(t *testing.T) {
	origin := world.Coord{X: 0, Y: 64, Z: 0}
	dest := world.Coord{X: 5, Y: 64, Z: 0}
	avatar := newTestAvatar(origin)
	planner := &countingPlanner{engine: pathfinding.NewEngine(0, pathfinding.HeuristicAdmissible)}
	s := newTestSession(t, avatar, flatWorld(t), planner)

	dispatch, err := s.Navigate(dest, pathfinding.DefaultOptions())
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if dispatch.Cached || dispatch.Origin != origin {
		t.Fatalf("expected an uncached dispatch from %v, got %+v", origin, dispatch)
	}
	status := tickUntilSettled(t, s)
	if !status.Success || !status.Active || status.PathLength != 5 {
		t.Fatalf("expected active 5-waypoint navigation, got %+v", status)
	}

	s.Stop()
	dispatch, err = s.Navigate(dest, pathfinding.DefaultOptions())
	if err != nil {
		t.Fatalf("second navigate: %v", err)
	}
	if !dispatch.Cached || dispatch.PathLength != 5 {
		t.Fatalf("expected cached path of 5, got %+v", dispatch)
	}
	if calls := planner.calls.Load(); calls != 1 {
		t.Fatalf("expected the planner to run once, ran %d times", calls)
	}
	if stats := s.CacheStats(); stats.Hits != 1 || stats.Size != 1 {
		t.Fatalf("unexpected cache stats %#v", stats)
	}
	if status := s.Status(); !status.Active || status.Searching {
		t.Fatalf("cache hit should start following immediately, got %+v", status)
	}
}

func TestNavigateCacheOverflowResetsSize(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	s := newTestSession(t, avatar, flatWorld(t), &straightPlanner{})

	for i := 1; i <= 51; i++ {
		if _, err := s.Navigate(world.Coord{X: i % 16, Y: 64, Z: i / 16}, pathfinding.DefaultOptions()); err != nil {
			t.Fatalf("navigate %d: %v", i, err)
		}
		tickUntilSettled(t, s)
		if i <= 50 && s.CacheStats().Size != i {
			t.Fatalf("after %d inserts expected size %d, got %d", i, i, s.CacheStats().Size)
		}
	}
	if stats := s.CacheStats(); stats.Size != 1 || stats.Clears != 1 {
		t.Fatalf("expected overflow to leave one entry, got %#v", stats)
	}
}

func TestNewerRequestDiscardsStaleResult(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := newGatedPlanner()
	s := newTestSession(t, avatar, flatWorld(t), planner)
	events := &eventLog{}
	s.Subscribe(events)

	first := world.Coord{X: 10, Y: 64}
	second := world.Coord{X: -10, Y: 64}
	if _, err := s.Navigate(first, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate first: %v", err)
	}
	<-planner.started
	if _, err := s.Navigate(second, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate second: %v", err)
	}
	close(planner.release)

	status := tickUntilSettled(t, s)
	if status.Destination != second || !status.Active {
		t.Fatalf("expected navigation toward %v, got %+v", second, status)
	}
	// Drain the first result if it has not been applied yet.
	for i := 0; i < 100 && len(events.kinds()) < 2; i++ {
		s.Tick()
		time.Sleep(time.Millisecond)
	}
	kinds := events.kinds()
	if len(kinds) != 2 || kinds[0] != EventDiscarded || kinds[1] != EventPathStarted {
		t.Fatalf("expected discard then start, got %v", kinds)
	}
	if s.CacheStats().Size != 1 {
		t.Fatalf("stale result must not be cached, size=%d", s.CacheStats().Size)
	}
}

func TestStopDiscardsInFlightSearch(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := newGatedPlanner()
	s := newTestSession(t, avatar, flatWorld(t), planner)

	if _, err := s.Navigate(world.Coord{X: 8, Y: 64}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	<-planner.started
	s.Stop()
	close(planner.release)

	for i := 0; i < 50; i++ {
		s.Tick()
		time.Sleep(time.Millisecond)
	}
	if status := s.Status(); status.Active || status.Searching {
		t.Fatalf("stopped navigation resumed: %+v", status)
	}
}

func TestNavigateFailureLeavesFollowerIdle(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	s := newTestSession(t, avatar, flatWorld(t), failingPlanner{})
	events := &eventLog{}
	s.Subscribe(events)

	if _, err := s.Navigate(world.Coord{X: 12, Y: 64}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	status := tickUntilSettled(t, s)
	if status.Success || status.Active || status.Outcome != "budget-exceeded" {
		t.Fatalf("expected failed navigation, got %+v", status)
	}
	if kinds := events.kinds(); len(kinds) != 1 || kinds[0] != EventSearchFailed {
		t.Fatalf("expected a failure event, got %v", kinds)
	}
	if s.CacheStats().Size != 0 {
		t.Fatalf("failures must not be cached")
	}
}

func TestNavigateWalksToArrival(t *testing.T) {
	origin := world.Coord{X: 0, Y: 64, Z: 0}
	avatar := newTestAvatar(origin)
	s := newTestSession(t, avatar, flatWorld(t), nil)
	events := &eventLog{}
	s.Subscribe(events)

	if _, err := s.Navigate(world.Coord{X: 4, Y: 64, Z: 3}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	for i := 0; i < 20 && !s.Status().Arrived; i++ {
		s.Tick()
		if target, ok := s.follower.Target(); ok {
			avatar.moveTo(target)
		}
	}
	status := s.Status()
	if !status.Arrived || status.Active {
		t.Fatalf("expected arrival, got %+v", status)
	}
	if avatar.forward {
		t.Fatalf("forward intent left pressed after arrival")
	}
	kinds := events.kinds()
	if kinds[len(kinds)-1] != EventArrived {
		t.Fatalf("expected arrival event last, got %v", kinds)
	}
}

func TestNavigateRejectsMissingAvatarAndBadOptions(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := &straightPlanner{}
	s := newTestSession(t, avatar, flatWorld(t), planner)

	opts := pathfinding.DefaultOptions()
	opts.MaxDropHeight = 99
	if _, err := s.Navigate(world.Coord{X: 3, Y: 64}, opts); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := s.NavigateWith(world.Coord{X: 3, Y: 64}, [][2]string{{"allowParkour", "maybe"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for bad override, got %v", err)
	}

	avatar.present = false
	if _, err := s.Navigate(world.Coord{X: 3, Y: 64}, pathfinding.DefaultOptions()); !errors.Is(err, ErrNoAvatar) {
		t.Fatalf("expected no avatar, got %v", err)
	}
	if _, err := s.SetHome(); !errors.Is(err, ErrNoAvatar) {
		t.Fatalf("expected no avatar from SetHome, got %v", err)
	}
	if planner.calls.Load() != 0 {
		t.Fatalf("rejected requests must not reach the planner")
	}
	if status := s.Status(); status.Success || status.LastError == "" {
		t.Fatalf("expected failure to be reported, got %+v", status)
	}
}

func TestHomeRoundTrip(t *testing.T) {
	avatar := newTestAvatar(world.Coord{X: 2, Y: 64, Z: 2})
	s := newTestSession(t, avatar, flatWorld(t), &straightPlanner{})

	if _, err := s.GoHome(); !errors.Is(err, ErrNoHome) {
		t.Fatalf("expected no home, got %v", err)
	}
	home, err := s.SetHome()
	if err != nil {
		t.Fatalf("set home: %v", err)
	}
	if home != (world.Coord{X: 2, Y: 64, Z: 2}) {
		t.Fatalf("unexpected home %v", home)
	}

	avatar.moveTo(world.Coord{X: -5, Y: 64, Z: 7})
	dispatch, err := s.GoHome()
	if err != nil {
		t.Fatalf("go home: %v", err)
	}
	if dispatch.Destination != home {
		t.Fatalf("expected navigation to %v, got %+v", home, dispatch)
	}
}

func TestConfigureChangesDefaultsAndBudget(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := &countingPlanner{engine: pathfinding.NewEngine(0, pathfinding.HeuristicAdmissible)}
	s := newTestSession(t, avatar, flatWorld(t), planner)

	if err := s.Configure("allowParkour", "true"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := s.Configure("maxIterations", "500"); err != nil {
		t.Fatalf("configure budget: %v", err)
	}
	if err := s.Configure("maxIterations", "0"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid budget, got %v", err)
	}
	if err := s.Configure("fly", "true"); !errors.Is(err, ErrInvalidInput) || !errors.Is(err, pathfinding.ErrUnknownOption) {
		t.Fatalf("expected unknown option, got %v", err)
	}
	if !s.Defaults().AllowLeaps {
		t.Fatalf("expected leaps enabled in defaults")
	}

	if _, err := s.NavigateWith(world.Coord{X: 6, Y: 64}, [][2]string{{"sprint", "false"}}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	req := planner.lastRequest()
	if req.Budget != 500 || !req.Options.AllowLeaps || req.Options.PreferSprint {
		t.Fatalf("request did not carry configured defaults: %+v", req)
	}

	settings := s.Settings()
	if last := settings[len(settings)-1]; last != [2]string{"maxIterations", "500"} {
		t.Fatalf("unexpected settings tail %v", last)
	}
}

func TestCacheClear(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	s := newTestSession(t, avatar, flatWorld(t), &straightPlanner{})
	if _, err := s.Navigate(world.Coord{X: 3, Y: 64}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	s.CacheClear()
	if stats := s.CacheStats(); stats.Size != 0 {
		t.Fatalf("expected empty cache, got %#v", stats)
	}
}

func TestSessionKeyedByOptions(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := &straightPlanner{}
	cfg := DefaultConfig()
	cfg.Workers = 1
	s, err := New(cfg, Deps{
		Avatar:  avatar,
		Terrain: flatWorld(t),
		Planner: planner,
		Cache:   pathcache.New(pathcache.Config{KeyByOptions: true}),
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Start(context.Background())
	defer s.Close()

	dest := world.Coord{X: 4, Y: 64}
	if _, err := s.Navigate(dest, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	leaping := pathfinding.DefaultOptions()
	leaping.AllowLeaps = true
	dispatch, err := s.Navigate(dest, leaping)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if dispatch.Cached {
		t.Fatalf("different options must not share a cache entry")
	}
	tickUntilSettled(t, s)
	if planner.calls.Load() != 2 {
		t.Fatalf("expected two searches, got %d", planner.calls.Load())
	}
}

func TestNewRequiresAvatarAndTerrain(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{Terrain: world.NewGrid(0)}); err == nil {
		t.Fatalf("expected error without avatar")
	}
	if _, err := New(DefaultConfig(), Deps{Avatar: newTestAvatar(world.Coord{})}); err == nil {
		t.Fatalf("expected error without terrain")
	}
}

func TestNavigateAfterClose(t *testing.T) {
	s := newTestSession(t, newTestAvatar(world.Coord{Y: 64}), flatWorld(t), &straightPlanner{})
	s.Close()
	if _, err := s.Navigate(world.Coord{X: 1, Y: 64}, pathfinding.DefaultOptions()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestNavigateReportsStuckAvatar(t *testing.T) {
	origin := world.Coord{X: 0, Y: 64, Z: 0}
	avatar := newTestAvatar(origin)
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.StuckTicks = 5
	s, err := New(cfg, Deps{
		Avatar:  avatar,
		Terrain: flatWorld(t),
		Planner: &straightPlanner{},
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Start(context.Background())
	t.Cleanup(s.Close)
	events := &eventLog{}
	s.Subscribe(events)

	if _, err := s.Navigate(world.Coord{X: 6, Y: 64}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	for i := 0; i < 10 && s.Status().Active; i++ {
		s.Tick()
	}
	status := s.Status()
	if status.Active || status.Arrived || status.Success {
		t.Fatalf("expected abandoned navigation, got %+v", status)
	}
	if status.LastError != ErrStuck.Error() {
		t.Fatalf("expected stuck error, got %q", status.LastError)
	}
	kinds := events.kinds()
	if kinds[len(kinds)-1] != EventStuck {
		t.Fatalf("expected stuck event last, got %v", kinds)
	}
	if avatar.forward {
		t.Fatalf("forward intent left pressed")
	}
}

// windowPlanner records the field each search was given and reports no path.
type windowPlanner struct {
	mu     sync.Mutex
	fields []world.Field
}

func (p *windowPlanner) Search(_ context.Context, field world.Field, _ pathfinding.Request) pathfinding.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = append(p.fields, field)
	return pathfinding.Result{Outcome: pathfinding.OutcomeUnreachable}
}

func (p *windowPlanner) windows() []world.Bounds {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]world.Bounds, 0, len(p.fields))
	for _, f := range p.fields {
		out = append(out, f.(*world.Snapshot).Bounds())
	}
	return out
}

func TestNavigateRejectsDestinationBeyondReach(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := &straightPlanner{}
	s := newTestSession(t, avatar, flatWorld(t), planner)

	for _, dest := range []world.Coord{
		{X: 1000, Y: 64, Z: 1000},
		{X: 1 << 40, Y: 64, Z: 0},
		{X: 0, Y: 64 + 1<<20, Z: 0},
	} {
		started := time.Now()
		_, err := s.Navigate(dest, pathfinding.DefaultOptions())
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("navigate to %v: expected invalid input, got %v", dest, err)
		}
		if elapsed := time.Since(started); elapsed > 100*time.Millisecond {
			t.Fatalf("navigate to %v blocked the caller for %s", dest, elapsed)
		}
	}
	if planner.calls.Load() != 0 {
		t.Fatalf("out-of-reach requests must not reach the planner")
	}
	if status := s.Status(); status.Searching || status.Success || status.LastError == "" {
		t.Fatalf("expected the rejection in the status, got %+v", status)
	}

	if _, err := s.Navigate(world.Coord{X: 200, Y: 64, Z: 0}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("destination within reach rejected: %v", err)
	}
}

func TestNavigateClampsSnapshotWindow(t *testing.T) {
	origin := world.Coord{X: 0, Y: 64, Z: 0}
	avatar := newTestAvatar(origin)
	planner := &windowPlanner{}
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.MaxDistance = 0
	cfg.MaxSnapshotVolume = 4096
	s, err := New(cfg, Deps{
		Avatar:  avatar,
		Terrain: flatWorld(t),
		Planner: planner,
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Start(context.Background())
	t.Cleanup(s.Close)

	for _, dest := range []world.Coord{{X: 1000, Y: 64, Z: 1000}, {X: 1 << 40, Y: 64, Z: 0}} {
		if _, err := s.Navigate(dest, pathfinding.DefaultOptions()); err != nil {
			t.Fatalf("navigate to %v: %v", dest, err)
		}
		if status := tickUntilSettled(t, s); status.Success {
			t.Fatalf("unexpected success toward %v: %+v", dest, status)
		}
	}

	windows := planner.windows()
	if len(windows) != 2 {
		t.Fatalf("expected two searches, got %d", len(windows))
	}
	for _, w := range windows {
		if v := w.Volume(); v == 0 || v > cfg.MaxSnapshotVolume {
			t.Fatalf("window %+v holds %d voxels, limit %d", w, v, cfg.MaxSnapshotVolume)
		}
		if !w.Contains(origin) {
			t.Fatalf("window %+v does not contain the origin", w)
		}
	}
}

func TestTickReportsLostAvatar(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	s := newTestSession(t, avatar, flatWorld(t), &straightPlanner{})
	events := &eventLog{}
	s.Subscribe(events)

	if _, err := s.Navigate(world.Coord{X: 6, Y: 64}, pathfinding.DefaultOptions()); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	tickUntilSettled(t, s)
	if !s.Status().Active {
		t.Fatalf("expected an active navigation, got %+v", s.Status())
	}

	avatar.present = false
	s.Tick()

	status := s.Status()
	if status.Active || status.Success || status.LastError != ErrNoAvatar.Error() {
		t.Fatalf("expected the loss in the status, got %+v", status)
	}
	kinds := events.kinds()
	if kinds[len(kinds)-1] != EventAvatarLost {
		t.Fatalf("expected avatar_lost event last, got %v", kinds)
	}
	if s.follower.Active() {
		t.Fatalf("follower still active after the avatar was lost")
	}
}

func TestNavigateWithAppliesOverridesInOrder(t *testing.T) {
	avatar := newTestAvatar(world.Coord{Y: 64})
	planner := &countingPlanner{engine: pathfinding.NewEngine(0, pathfinding.HeuristicAdmissible)}
	s := newTestSession(t, avatar, flatWorld(t), planner)

	tests := []struct {
		dest      world.Coord
		overrides [][2]string
		want      bool
	}{
		{dest: world.Coord{X: 4, Y: 64}, overrides: [][2]string{{"avoidDanger", "true"}, {"avoidHazards", "false"}}, want: false},
		{dest: world.Coord{X: 5, Y: 64}, overrides: [][2]string{{"avoidHazards", "false"}, {"avoidDanger", "true"}}, want: true},
	}
	for _, tt := range tests {
		if _, err := s.NavigateWith(tt.dest, tt.overrides); err != nil {
			t.Fatalf("navigate %v: %v", tt.overrides, err)
		}
		tickUntilSettled(t, s)
		if got := planner.lastRequest().Options.AvoidHazards; got != tt.want {
			t.Fatalf("overrides %v: avoidHazards=%v, want %v", tt.overrides, got, tt.want)
		}
	}
}

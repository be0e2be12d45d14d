package sim

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubStepper struct {
	mu     sync.Mutex
	name   string
	order  *[]string
	deltas []time.Duration
	notify chan struct{}
}

func newStubStepper(name string, order *[]string) *stubStepper {
	return &stubStepper{name: name, order: order, notify: make(chan struct{}, 1)}
}

func (s *stubStepper) Step(delta time.Duration) {
	s.mu.Lock()
	s.deltas = append(s.deltas, delta)
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *stubStepper) waitForCalls(target int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		s.mu.Lock()
		count := len(s.deltas)
		s.mu.Unlock()
		if count >= target {
			return true
		}
		select {
		case <-s.notify:
		case <-deadline:
			return false
		}
	}
}

func (s *stubStepper) snapshot() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.deltas...)
}

func TestLoopClampsDeltaAndRunsStepsInOrder(t *testing.T) {
	var order []string
	first := newStubStepper("avatar", &order)
	second := newStubStepper("navigation", &order)
	tick := 10 * time.Millisecond
	loop := NewLoop(tick, first, second)

	base := time.Unix(0, 0)
	loop.now = func() time.Time { return base }

	times := []time.Time{
		base.Add(tick),      // normal interval
		base.Add(tick),      // zero delta -> clamp
		base.Add(20 * tick), // oversized delta -> clamp
		base.Add(22 * tick), // normal interval after the stall
	}
	tickerChan := make(chan time.Time, len(times))
	for _, tm := range times {
		tickerChan <- tm
	}
	loop.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return tickerChan, func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx)
	if !second.waitForCalls(len(times), time.Second) {
		t.Fatalf("loop did not emit expected ticks")
	}
	cancel()
	loop.Wait()

	want := []time.Duration{tick, tick, tick, 2 * tick}
	for _, stepper := range []*stubStepper{first, second} {
		deltas := stepper.snapshot()
		if len(deltas) != len(want) {
			t.Fatalf("%s: expected %d ticks, got %d", stepper.name, len(want), len(deltas))
		}
		for i, delta := range deltas {
			if delta != want[i] {
				t.Fatalf("%s tick %d delta = %v, want %v", stepper.name, i, delta, want[i])
			}
		}
	}
	for i := 0; i < len(order); i += 2 {
		if order[i] != "avatar" || order[i+1] != "navigation" {
			t.Fatalf("steps ran out of order: %v", order)
		}
	}
	if got := loop.Ticks(); got != uint64(len(times)) {
		t.Fatalf("expected %d completed ticks, got %d", len(times), got)
	}
}

func TestLoopDefaults(t *testing.T) {
	loop := NewLoop(0, StepFunc(func(time.Duration) {}))
	if loop.tick != defaultTick {
		t.Fatalf("default tick duration = %v, want %v", loop.tick, defaultTick)
	}
	if loop.newTicker == nil || loop.now == nil {
		t.Fatalf("expected ticker factory and time source to be initialized")
	}

	empty := NewLoop(time.Millisecond)
	empty.Start(context.Background())
	empty.Wait()
}

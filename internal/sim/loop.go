// Package sim hosts the fixed-rate simulation loop that drives avatars and navigation.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultTick = 50 * time.Millisecond

// Stepper advances one part of the simulation. Steps run in registration order on the
// loop goroutine, which is the simulation thread for everything it drives.
type Stepper interface {
	Step(delta time.Duration)
}

// StepFunc adapts a function to Stepper.
type StepFunc func(delta time.Duration)

func (f StepFunc) Step(delta time.Duration) {
	f(delta)
}

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

type Loop struct {
	steps     []Stepper
	tick      time.Duration
	wg        sync.WaitGroup
	ticks     atomic.Uint64
	newTicker tickerFactory
	now       timeSource
}

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

func NewLoop(tick time.Duration, steps ...Stepper) *Loop {
	if tick <= 0 {
		tick = defaultTick
	}
	return &Loop{
		steps:     steps,
		tick:      tick,
		newTicker: defaultTickerFactory(),
		now:       time.Now,
	}
}

func (l *Loop) Start(ctx context.Context) {
	if l == nil || len(l.steps) == 0 {
		return
	}
	l.wg.Add(1)
	go l.run(ctx)
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	if l.newTicker == nil {
		l.newTicker = defaultTickerFactory()
	}
	if l.now == nil {
		l.now = time.Now
	}

	tickerC, stop := l.newTicker(l.tick)
	defer stop()

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tickerC:
			// Stalls and clock jumps are replayed as a single nominal tick.
			delta := now.Sub(last)
			if delta <= 0 || delta > 10*l.tick {
				delta = l.tick
			}
			last = now
			for _, step := range l.steps {
				step.Step(delta)
			}
			l.ticks.Add(1)
		}
	}
}

// Ticks reports how many ticks have completed.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

func (l *Loop) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

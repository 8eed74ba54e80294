/*
Package timer provides the elapsed-time signal for an active session.

PURPOSE:
  Produces a monotonically non-decreasing elapsed-time tick for an active
  session on a 1-second cadence, from a background goroutine decoupled
  from whatever is consuming the ticks. Communication is one-directional
  message passing: commands in, ticks out. No shared mutable state crosses
  the boundary.

DESIGN:
  - One goroutine per Timer, owning all state (start time, paused flag,
    cumulative paused duration)
  - Elapsed = now - startTime - totalPaused
  - Pause freezes the elapsed value; Resume compensates by accumulating
    the paused span
  - Commands are acknowledged: Pause/Resume/Stop return once the run loop
    has applied them, so callers observe a consistent ordering
  - Stop is idempotent: the first call emits one final tick with the
    frozen value and tears the goroutine down; later calls are no-ops
  - The ticks channel is closed on Stop so consumers can range over it

The tick feeds the profit-per-hour denominator; it has no effect on the
ledger's correctness.

SEE ALSO:
  - ledger.ComputeStats: Consumes the elapsed value
*/
package timer

import (
	"sync"
	"time"
)

// =============================================================================
// TIMER - Background elapsed-time task
// =============================================================================

// Tick is one elapsed-time notification.
type Tick struct {
	Elapsed time.Duration
	Paused  bool
	Final   bool
}

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdStop
)

type command struct {
	kind commandKind
	ack  chan struct{}
}

// Timer emits elapsed-time ticks for one session at a fixed cadence.
type Timer struct {
	ticks    chan Tick
	commands chan command

	interval time.Duration
	clock    func() time.Time

	stopOnce sync.Once
	done     chan struct{}

	mu    sync.Mutex
	final time.Duration
}

// Option configures a Timer before it starts.
type Option func(*Timer)

// WithInterval overrides the 1s tick cadence (tests use a short one).
func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

// WithClock overrides the wall clock (tests use a fake).
func WithClock(clock func() time.Time) Option {
	return func(t *Timer) { t.clock = clock }
}

// Start launches the background goroutine counting from startTime and
// returns the running timer. Ticks arrive on Ticks() every interval.
func Start(startTime time.Time, opts ...Option) *Timer {
	t := &Timer{
		ticks:    make(chan Tick, 16),
		commands: make(chan command),
		interval: time.Second,
		clock:    time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run(startTime)
	return t
}

// Ticks is the outbound tick stream. Closed after the final tick.
func (t *Timer) Ticks() <-chan Tick { return t.ticks }

// Pause freezes the elapsed value until Resume. Returns once applied.
func (t *Timer) Pause() { t.send(cmdPause) }

// Resume continues counting; the paused span never counts as elapsed.
func (t *Timer) Resume() { t.send(cmdResume) }

// Stop tears the timer down. Idempotent: the first call emits one final
// tick with the frozen elapsed value and closes the tick channel.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		t.send(cmdStop)
		<-t.done
	})
}

// Elapsed returns the most recently published elapsed value; after Stop
// it is the frozen final value.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.final
}

func (t *Timer) send(kind commandKind) {
	cmd := command{kind: kind, ack: make(chan struct{})}
	select {
	case t.commands <- cmd:
		<-cmd.ack
	case <-t.done:
	}
}

// =============================================================================
// RUN LOOP - All state lives on this goroutine
// =============================================================================

func (t *Timer) run(startTime time.Time) {
	defer close(t.done)
	defer close(t.ticks)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var (
		paused      bool
		pausedSince time.Time
		totalPaused time.Duration
	)

	elapsed := func(now time.Time) time.Duration {
		pausedSpan := totalPaused
		if paused {
			pausedSpan += now.Sub(pausedSince)
		}
		e := now.Sub(startTime) - pausedSpan
		if e < 0 {
			e = 0
		}
		return e
	}

	publish := func(e time.Duration) {
		t.mu.Lock()
		t.final = e
		t.mu.Unlock()
	}

	emit := func(tick Tick) {
		select {
		case t.ticks <- tick:
		default:
			// Slow consumer: drop the tick rather than stall the loop.
		}
	}

	for {
		select {
		case <-ticker.C:
			if paused {
				continue
			}
			e := elapsed(t.clock())
			publish(e)
			emit(Tick{Elapsed: e})

		case c := <-t.commands:
			now := t.clock()
			switch c.kind {
			case cmdPause:
				if !paused {
					paused = true
					pausedSince = now
					e := elapsed(now)
					publish(e)
					emit(Tick{Elapsed: e, Paused: true})
				}
				close(c.ack)
			case cmdResume:
				if paused {
					totalPaused += now.Sub(pausedSince)
					paused = false
				}
				close(c.ack)
			case cmdStop:
				e := elapsed(now)
				publish(e)
				final := Tick{Elapsed: e, Final: true}
				select {
				case t.ticks <- final:
				default:
					// Buffer full: evict the oldest pending tick so the
					// final one always fits.
					select {
					case <-t.ticks:
					default:
					}
					select {
					case t.ticks <- final:
					default:
					}
				}
				close(c.ack)
				return
			}
		}
	}
}

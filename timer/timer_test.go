package timer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/timer"
)

// fakeClock is a settable clock safe to share with the timer goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC)}
}

// drainUntilFinal collects ticks until the final one arrives.
func drainUntilFinal(t *testing.T, ticks <-chan timer.Tick) []timer.Tick {
	t.Helper()
	var got []timer.Tick
	timeout := time.After(5 * time.Second)
	for {
		select {
		case tick, ok := <-ticks:
			if !ok {
				return got
			}
			got = append(got, tick)
			if tick.Final {
				return got
			}
		case <-timeout:
			t.Fatal("no final tick before timeout")
		}
	}
}

func TestTimer_StopEmitsFinalTickAndClosesChannel(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()

	tm := timer.Start(start, timer.WithClock(clock.Now), timer.WithInterval(time.Hour))
	clock.Advance(90 * time.Second)
	tm.Stop()

	ticks := drainUntilFinal(t, tm.Ticks())
	require.NotEmpty(t, ticks)
	last := ticks[len(ticks)-1]
	assert.True(t, last.Final)
	assert.Equal(t, 90*time.Second, last.Elapsed)

	// Channel is closed after the final tick.
	_, ok := <-tm.Ticks()
	assert.False(t, ok)
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	// GIVEN: A stopped timer
	clock := newFakeClock()
	tm := timer.Start(clock.Now(), timer.WithClock(clock.Now), timer.WithInterval(time.Hour))
	clock.Advance(42 * time.Second)
	tm.Stop()
	first := tm.Elapsed()

	// WHEN: Stop is called again after more wall time passes
	clock.Advance(time.Minute)
	tm.Stop()

	// THEN: The elapsed value stays frozen
	assert.Equal(t, first, tm.Elapsed())
	assert.Equal(t, 42*time.Second, tm.Elapsed())
}

func TestTimer_PauseFreezesAndResumeCompensates(t *testing.T) {
	clock := newFakeClock()
	tm := timer.Start(clock.Now(), timer.WithClock(clock.Now), timer.WithInterval(time.Hour))

	// 10s of play, then a 5s pause, then 3s more play.
	clock.Advance(10 * time.Second)
	tm.Pause()
	clock.Advance(5 * time.Second)
	tm.Resume()
	clock.Advance(3 * time.Second)
	tm.Stop()

	ticks := drainUntilFinal(t, tm.Ticks())

	var pauseTick *timer.Tick
	for i := range ticks {
		if ticks[i].Paused {
			pauseTick = &ticks[i]
		}
	}
	require.NotNil(t, pauseTick, "pause should emit a frozen tick")
	assert.Equal(t, 10*time.Second, pauseTick.Elapsed)

	// The paused span never counts toward elapsed time.
	assert.Equal(t, 13*time.Second, tm.Elapsed())
}

func TestTimer_TicksAtCadence(t *testing.T) {
	// Real ticker, real clock: just verify ticks flow and are non-decreasing.
	tm := timer.Start(time.Now(), timer.WithInterval(10*time.Millisecond))
	defer tm.Stop()

	var prev time.Duration
	for i := 0; i < 3; i++ {
		select {
		case tick := <-tm.Ticks():
			assert.GreaterOrEqual(t, tick.Elapsed, prev, "elapsed must be non-decreasing")
			prev = tick.Elapsed
		case <-time.After(time.Second):
			t.Fatal("expected a tick within 1s")
		}
	}
}

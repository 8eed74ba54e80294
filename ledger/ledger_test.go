package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var sessionStart = time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func event(t ledger.EventType, amount int64, offset time.Duration) ledger.Event {
	return ledger.Event{
		Timestamp: sessionStart.Add(offset),
		Type:      t,
		Amount:    d(amount),
	}
}

// =============================================================================
// TIMELINE REPLAY
// =============================================================================

func TestComputeTimeline_StartAnchorAlwaysFirst(t *testing.T) {
	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, nil)

	require.Len(t, timeline, 1)
	assert.Equal(t, ledger.EventSessionStart, timeline[0].Type)
	assert.True(t, timeline[0].Balance.Equal(d(1000)))
	assert.Equal(t, sessionStart, timeline[0].Timestamp)
}

func TestComputeTimeline_FoldRule(t *testing.T) {
	events := []ledger.Event{
		event(ledger.EventEarning, 500, 10*time.Minute),
		event(ledger.EventSpending, 200, 20*time.Minute),
		event(ledger.EventBalance, 2000, 30*time.Minute),
	}

	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, events)

	require.Len(t, timeline, 4)
	assert.True(t, timeline[1].Balance.Equal(d(1500)), "earning adds")
	assert.True(t, timeline[2].Balance.Equal(d(1300)), "spending subtracts")
	assert.True(t, timeline[3].Balance.Equal(d(2000)), "balance sets absolute")
	assert.True(t, timeline[3].Delta.Equal(d(700)), "balance delta is signed difference")
}

func TestComputeTimeline_SortsByTimestamp(t *testing.T) {
	// GIVEN: Events stored out of chronological order
	events := []ledger.Event{
		event(ledger.EventSpending, 200, 20*time.Minute),
		event(ledger.EventEarning, 500, 5*time.Minute),
	}

	// WHEN: The timeline is computed
	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, events)

	// THEN: Events are replayed oldest first
	require.Len(t, timeline, 3)
	assert.Equal(t, ledger.EventEarning, timeline[1].Type)
	assert.Equal(t, ledger.EventSpending, timeline[2].Type)
	assert.True(t, timeline[2].Balance.Equal(d(1300)))
}

func TestComputeTimeline_SameTimestampKeepsInsertionOrder(t *testing.T) {
	// Two events at the identical instant: insertion order is the tiebreak.
	at := 10 * time.Minute
	events := []ledger.Event{
		{Timestamp: sessionStart.Add(at), Type: ledger.EventEarning, Amount: d(100), Description: "first"},
		{Timestamp: sessionStart.Add(at), Type: ledger.EventBalance, Amount: d(5000), Description: "second"},
	}

	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, events)

	require.Len(t, timeline, 3)
	assert.Equal(t, "first", timeline[1].Description)
	assert.Equal(t, "second", timeline[2].Description)
	assert.True(t, timeline[2].Balance.Equal(d(5000)))
}

func TestComputeTimeline_EndAnchorOnlyWhenCompleted(t *testing.T) {
	events := []ledger.Event{event(ledger.EventEarning, 500, 10*time.Minute)}

	active := ledger.ComputeTimeline(d(1000), sessionStart, nil, events)
	assert.NotEqual(t, ledger.EventSessionEnd, active[len(active)-1].Type)

	endTime := sessionStart.Add(time.Hour)
	completed := ledger.ComputeTimeline(d(1000), sessionStart, &endTime, events)
	last := completed[len(completed)-1]
	assert.Equal(t, ledger.EventSessionEnd, last.Type)
	assert.True(t, last.Balance.Equal(d(1500)), "end anchor carries final balance")
	assert.Equal(t, endTime, last.Timestamp)
}

func TestComputeTimeline_ReplayDeterminism(t *testing.T) {
	// GIVEN: The same event set presented in two storage orders that sort
	// into the same chronological order
	a := []ledger.Event{
		event(ledger.EventEarning, 500, 10*time.Minute),
		event(ledger.EventSpending, 200, 20*time.Minute),
		event(ledger.EventBalance, 900, 30*time.Minute),
	}
	b := []ledger.Event{a[2], a[0], a[1]}

	// WHEN: Both are replayed
	ta := ledger.ComputeTimeline(d(1000), sessionStart, nil, a)
	tb := ledger.ComputeTimeline(d(1000), sessionStart, nil, b)

	// THEN: Balances are identical at every timestamp
	require.Equal(t, len(ta), len(tb))
	for i := range ta {
		assert.Equal(t, ta[i].Timestamp, tb[i].Timestamp)
		assert.True(t, ta[i].Balance.Equal(tb[i].Balance),
			"balance diverged at index %d: %s vs %s", i, ta[i].Balance, tb[i].Balance)
	}
}

// =============================================================================
// BALANCE-AT-INDEX LOOKUPS
// =============================================================================

func TestBalanceAt(t *testing.T) {
	events := []ledger.Event{
		event(ledger.EventEarning, 500, 10*time.Minute),
		event(ledger.EventSpending, 200, 20*time.Minute),
	}
	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, events)

	prev, cur := ledger.BalanceAt(timeline, 0)
	assert.True(t, prev.Equal(d(1000)), "prev at index 0 is the initial balance")
	assert.True(t, cur.Equal(d(1000)))

	prev, cur = ledger.BalanceAt(timeline, 1)
	assert.True(t, prev.Equal(d(1000)))
	assert.True(t, cur.Equal(d(1500)))

	prev, cur = ledger.BalanceAt(timeline, 2)
	assert.True(t, prev.Equal(d(1500)))
	assert.True(t, cur.Equal(d(1300)))
}

func TestBalanceAt_OutOfRangeClamped(t *testing.T) {
	timeline := ledger.ComputeTimeline(d(1000), sessionStart, nil, nil)

	prev, cur := ledger.BalanceAt(timeline, -1)
	assert.True(t, prev.Equal(d(1000)))
	assert.True(t, cur.Equal(d(1000)))

	prev, cur = ledger.BalanceAt(timeline, 99)
	assert.True(t, prev.Equal(d(1000)))
	assert.True(t, cur.Equal(d(1000)))

	prev, cur = ledger.BalanceAt(nil, 0)
	assert.True(t, prev.IsZero())
	assert.True(t, cur.IsZero())
}

// =============================================================================
// AGGREGATE STATS
// =============================================================================

func TestComputeStats_EarningAndSpending(t *testing.T) {
	// GIVEN: initial 1000, earn 500, spend 200
	events := []ledger.Event{
		event(ledger.EventEarning, 500, 10*time.Minute),
		event(ledger.EventSpending, 200, 20*time.Minute),
	}

	stats := ledger.ComputeStats(d(1000), events, time.Hour)

	assert.True(t, stats.TotalEarnings.Equal(d(500)))
	assert.True(t, stats.TotalSpend.Equal(d(200)))
	assert.True(t, stats.SessionProfit.Equal(d(300)))
	assert.True(t, stats.FinalBalance.Equal(d(1300)))
}

func TestComputeStats_BalanceJumpCountsAsImplicitEarning(t *testing.T) {
	// GIVEN: initial 1000, a balance correction to 1500
	events := []ledger.Event{event(ledger.EventBalance, 1500, 10*time.Minute)}

	stats := ledger.ComputeStats(d(1000), events, time.Hour)

	assert.True(t, stats.TotalEarnings.Equal(d(500)))
	assert.True(t, stats.TotalSpend.IsZero())
	assert.True(t, stats.SessionProfit.Equal(d(500)))
}

func TestComputeStats_BalanceDropCountsAsImplicitSpend(t *testing.T) {
	// GIVEN: initial 1000, a balance correction to 800
	events := []ledger.Event{event(ledger.EventBalance, 800, 10*time.Minute)}

	stats := ledger.ComputeStats(d(1000), events, time.Hour)

	assert.True(t, stats.TotalEarnings.IsZero())
	assert.True(t, stats.TotalSpend.Equal(d(200)))
	assert.True(t, stats.SessionProfit.Equal(d(-200)))
}

func TestComputeStats_ProfitIdentity(t *testing.T) {
	// profit == finalBalance - initialBalance must hold for any mix of
	// earnings, spend, and balance corrections.
	initial := d(2500)
	events := []ledger.Event{
		event(ledger.EventEarning, 700, 5*time.Minute),
		event(ledger.EventBalance, 1900, 10*time.Minute),
		event(ledger.EventSpending, 400, 15*time.Minute),
		event(ledger.EventBalance, 6000, 20*time.Minute),
		event(ledger.EventEarning, 50, 25*time.Minute),
	}

	stats := ledger.ComputeStats(initial, events, 2*time.Hour)

	assert.True(t, stats.SessionProfit.Equal(stats.FinalBalance.Sub(initial)),
		"profit %s != final %s - initial %s", stats.SessionProfit, stats.FinalBalance, initial)
}

func TestComputeStats_TotalsNeverNegative(t *testing.T) {
	events := []ledger.Event{
		event(ledger.EventBalance, 100, 5*time.Minute),
		event(ledger.EventBalance, 9000, 10*time.Minute),
		event(ledger.EventSpending, 8000, 15*time.Minute),
	}

	stats := ledger.ComputeStats(d(1000), events, time.Hour)

	assert.False(t, stats.TotalEarnings.IsNegative())
	assert.False(t, stats.TotalSpend.IsNegative())
}

func TestComputeStats_ProfitPerHour(t *testing.T) {
	events := []ledger.Event{event(ledger.EventEarning, 900, 10*time.Minute)}

	stats := ledger.ComputeStats(d(0), events, 30*time.Minute)

	// 900 over half an hour = 1800/h
	assert.True(t, stats.ProfitPerHour.Equal(d(1800)))
}

func TestComputeStats_ZeroElapsedUsesEpsilonFloor(t *testing.T) {
	// GIVEN: A profit recorded with zero elapsed time
	events := []ledger.Event{event(ledger.EventEarning, 10, time.Second)}

	// WHEN: Stats are computed
	stats := ledger.ComputeStats(d(0), events, 0)

	// THEN: The rate is computed against the 0.001h floor, not a div-by-zero
	assert.True(t, stats.ProfitPerHour.Equal(d(10000)),
		"10 / 0.001h should be 10000, got %s", stats.ProfitPerHour)
}

func TestComputeStats_AnchorsDoNotContribute(t *testing.T) {
	events := []ledger.Event{
		event(ledger.EventSessionStart, 1000, 0),
		event(ledger.EventEarning, 300, 10*time.Minute),
		event(ledger.EventSessionEnd, 1300, 20*time.Minute),
	}

	stats := ledger.ComputeStats(d(1000), events, time.Hour)

	assert.True(t, stats.TotalEarnings.Equal(d(300)))
	assert.True(t, stats.TotalSpend.IsZero())
	assert.True(t, stats.FinalBalance.Equal(d(1300)))
}

// =============================================================================
// BOUNDARY VALIDATION
// =============================================================================

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ledger.ValidateAmount(decimal.Zero), "zero is a legal absolute balance")
	assert.NoError(t, ledger.ValidateAmount(ledger.MaxAmount))

	err := ledger.ValidateAmount(d(-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNegativeAmount)
	assert.True(t, ledger.IsValidation(err))

	err = ledger.ValidateAmount(ledger.MaxAmount.Add(d(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAmountTooLarge)
}

func TestValidateEvent(t *testing.T) {
	ok := event(ledger.EventEarning, 100, time.Minute)
	assert.NoError(t, ledger.ValidateEvent(ok))

	bad := ok
	bad.Type = "treasure"
	assert.ErrorIs(t, ledger.ValidateEvent(bad), ledger.ErrUnknownEventType)

	bad = ok
	bad.Timestamp = time.Time{}
	assert.ErrorIs(t, ledger.ValidateEvent(bad), ledger.ErrInvalidInput)
}

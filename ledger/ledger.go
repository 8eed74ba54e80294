/*
ledger.go - Timeline replay and aggregation

PURPOSE:
  Turns (initialBalance, events) into derived views: the chronological
  balance timeline, per-index balance lookups, and aggregate statistics.
  This is the single source of the fold rule - no other package derives
  balances on its own.

FOLD RULE (per event, oldest first):
  earning        balance += amount
  spending       balance -= amount
  balance        balance := amount   (delta = amount - prior balance)
  session_start  balance unchanged   (timeline anchor)
  session_end    balance unchanged   (timeline anchor)

CRITICAL INVARIANT:
  Replaying the full ordered event list from the initial balance is
  deterministic and equals the displayed current balance at every point.
  A balance correction that raises the balance counts as an implicit
  earning; one that lowers it counts as implicit spend. This keeps the
  profit identity exact: profit == finalBalance - initialBalance.

SEE ALSO:
  - types.go: Event and TimelinePoint definitions
  - projection.go: Chart projection over a computed timeline
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIMELINE REPLAY
// =============================================================================

// ComputeTimeline replays events over initialBalance and returns the full
// balance timeline, oldest first.
//
// Events are stable-sorted ascending by timestamp: same-timestamp events
// keep their insertion order, which is the de facto tiebreak everywhere in
// the system. A synthetic session_start anchor carrying initialBalance is
// always the first point. When endTime is non-nil (the session completed),
// a synthetic session_end anchor carrying the final balance is appended.
func ComputeTimeline(initialBalance decimal.Decimal, startTime time.Time, endTime *time.Time, events []Event) []TimelinePoint {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	timeline := make([]TimelinePoint, 0, len(sorted)+2)
	timeline = append(timeline, TimelinePoint{
		Timestamp: startTime,
		Balance:   initialBalance,
		Type:      EventSessionStart,
		Amount:    initialBalance,
	})

	balance := initialBalance
	for _, e := range sorted {
		var delta decimal.Decimal
		switch e.Type {
		case EventEarning:
			delta = e.Amount
			balance = balance.Add(e.Amount)
		case EventSpending:
			delta = e.Amount.Neg()
			balance = balance.Sub(e.Amount)
		case EventBalance:
			delta = e.Amount.Sub(balance)
			balance = e.Amount
		case EventSessionStart, EventSessionEnd:
			// Anchors never move the balance.
		}
		timeline = append(timeline, TimelinePoint{
			Timestamp:   e.Timestamp,
			Balance:     balance,
			Type:        e.Type,
			Amount:      e.Amount,
			Delta:       delta,
			Description: e.Description,
		})
	}

	if endTime != nil {
		timeline = append(timeline, TimelinePoint{
			Timestamp: *endTime,
			Balance:   balance,
			Type:      EventSessionEnd,
			Amount:    balance,
		})
	}

	return timeline
}

// BalanceAt returns the balance immediately before and after the timeline
// point at index, for delta display in both oldest-first and newest-first
// orderings. The previous balance for index 0 is the initial balance
// (carried by the start anchor). Out-of-range indexes are clamped.
func BalanceAt(timeline []TimelinePoint, index int) (prev, current decimal.Decimal) {
	if len(timeline) == 0 {
		return decimal.Zero, decimal.Zero
	}
	if index < 0 {
		index = 0
	}
	if index >= len(timeline) {
		index = len(timeline) - 1
	}
	current = timeline[index].Balance
	if index == 0 {
		prev = timeline[0].Balance
		return prev, current
	}
	return timeline[index-1].Balance, current
}

// =============================================================================
// AGGREGATION
// =============================================================================

// ComputeStats folds events over initialBalance and returns the aggregate
// totals plus the profit-per-hour rate for the given elapsed time.
//
// Balance events contribute implicitly: a correction that raises the
// balance adds the difference to TotalEarnings, one that lowers it adds
// the absolute difference to TotalSpend. This keeps the profit identity
// (profit == finalBalance - initialBalance) exact.
//
// ComputeStats is total: it never fails, and elapsed == 0 is handled by
// the MinElapsedHours epsilon floor rather than a division by zero.
func ComputeStats(initialBalance decimal.Decimal, events []Event, elapsed time.Duration) Stats {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	earnings := decimal.Zero
	spend := decimal.Zero
	balance := initialBalance

	for _, e := range sorted {
		switch e.Type {
		case EventEarning:
			earnings = earnings.Add(e.Amount)
			balance = balance.Add(e.Amount)
		case EventSpending:
			spend = spend.Add(e.Amount)
			balance = balance.Sub(e.Amount)
		case EventBalance:
			diff := e.Amount.Sub(balance)
			if diff.IsPositive() {
				earnings = earnings.Add(diff)
			} else if diff.IsNegative() {
				spend = spend.Add(diff.Abs())
			}
			balance = e.Amount
		case EventSessionStart, EventSessionEnd:
			// Anchors carry no delta.
		}
	}

	profit := earnings.Sub(spend)

	hours := decimal.NewFromFloat(elapsed.Hours())
	if hours.LessThan(MinElapsedHours) {
		hours = MinElapsedHours
	}

	return Stats{
		TotalEarnings: earnings,
		TotalSpend:    spend,
		SessionProfit: profit,
		FinalBalance:  balance,
		ProfitPerHour: profit.Div(hours).Round(0),
	}
}

/*
Package ledger provides the pure session-ledger engine.

PURPOSE:
  This package contains the event-sourced core of the voyage tracker.
  A session's balance is never stored as a mutable field - it is always
  derived by replaying the session's event log over the initial balance.
  Every surface that shows a balance, a total, or a profit rate calls
  into this package instead of re-deriving the fold itself.

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: An immutable, timestamped balance-affecting record
  - EventType: The closed set of event kinds (earning, spending, ...)
  - TimelinePoint: One running-balance snapshot in the derived timeline
  - Stats: Aggregate totals and the profit-per-hour rate

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no side effects. Elapsed time is an input.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Determinism: Replaying the same events always yields the same balances
  4. Totality: Compute functions accept any well-formed input; validation
     happens at the boundary (see errors.go), never inside the fold

SEE ALSO:
  - ledger.go: Timeline replay and aggregation
  - projection.go: Chart-ready projection of a timeline
  - errors.go: Boundary validation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EVENT - Immutable balance-affecting record
// =============================================================================

type EventType string

const (
	// EventEarning adds its amount to the running balance.
	EventEarning EventType = "earning"

	// EventSpending subtracts its amount from the running balance.
	EventSpending EventType = "spending"

	// EventBalance sets the running balance to an absolute value. The
	// signed difference against the prior balance decides whether it is
	// displayed (and counted) as a gain or a loss.
	EventBalance EventType = "balance"

	// EventSessionStart and EventSessionEnd are timeline anchors. They
	// never change the balance; their amount carries the balance snapshot
	// at the session boundary.
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
)

// Event is one typed, timestamped balance-affecting record.
//
// INVARIANTS:
//   - Immutable once appended to a session.
//   - Amount is non-negative for every type: for earning/spending it is
//     the delta magnitude, for balance it is the new absolute balance,
//     for the anchors it is the boundary snapshot.
//   - Ordering within a session is by Timestamp; same-timestamp events
//     keep their insertion order (stable sort, no explicit tiebreaker).
type Event struct {
	ID          string
	Timestamp   time.Time
	Type        EventType
	Amount      decimal.Decimal
	Description string
}

// ValidTypes lists every accepted event type, in display order.
var ValidTypes = []EventType{
	EventEarning, EventSpending, EventBalance, EventSessionStart, EventSessionEnd,
}

// IsValid reports whether t is a member of the closed event-type set.
func (t EventType) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// =============================================================================
// TIMELINE POINT - Running-balance snapshot after one event
// =============================================================================

// TimelinePoint is one entry in the derived balance timeline. Balance is
// the running balance AFTER applying the event; Delta is the signed change
// it introduced (for balance events: new balance minus prior balance).
type TimelinePoint struct {
	Timestamp   time.Time
	Balance     decimal.Decimal
	Type        EventType
	Amount      decimal.Decimal
	Delta       decimal.Decimal
	Description string
}

// =============================================================================
// STATS - Aggregate view over a full event log
// =============================================================================

// Stats is the aggregate view of a session's event log.
//
// The core identity, tested in ledger_test.go:
//
//	SessionProfit == FinalBalance - initialBalance
type Stats struct {
	TotalEarnings decimal.Decimal
	TotalSpend    decimal.Decimal
	SessionProfit decimal.Decimal
	FinalBalance  decimal.Decimal
	ProfitPerHour decimal.Decimal
}

// =============================================================================
// LIMITS
// =============================================================================

// MaxAmount is the application-wide input ceiling for a single amount.
// Enforced at the boundary (ValidateAmount), never by the replay fold.
var MaxAmount = decimal.NewFromInt(1_000_000_000_000)

// MinElapsedHours is the epsilon floor for the profit-per-hour
// denominator, preventing division by zero near session start
// (0.001 hours, about 3.6 seconds).
var MinElapsedHours = decimal.NewFromFloat(0.001)

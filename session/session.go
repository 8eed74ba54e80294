/*
Package session provides the Session aggregate and its lifecycle rules.

PURPOSE:
  A Session owns identity, the append-only event log, and the lifecycle
  invariants: no events after completion, the closing balance event and
  the end time committed as one step, at most one active session per user
  (enforced by the Service, not the aggregate).

KEY CONCEPTS IN THIS FILE (session.go):
  - Session: aggregate root (id, times, initial balance, event log)
  - Functional updates: mutations return a new Session value, keeping the
    ledger's determinism trivial to test
  - Derived views: Timeline/Stats/Chart delegate to the ledger package

LIFECYCLE:
  created (active, empty events)
    -> events appended
    -> ended (endTime set, optional session log, no further appends)
    -> optionally deleted (whole aggregate; journal entries are detached,
       never deleted - see store implementations)

SEE ALSO:
  - service.go: Orchestration, single-active-session invariant
  - store.go: Persistence collaborator interface
  - ledger: The pure replay engine
*/
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborlog/session-engine/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidState is the root of every lifecycle violation.
	ErrInvalidState = errors.New("invalid state")

	// ErrSessionEnded is returned when appending to or ending a session
	// whose end time is already set. Completion is permanent.
	ErrSessionEnded = fmt.Errorf("%w: session already ended", ErrInvalidState)

	// ErrActiveSessionExists is returned when creating a session for a
	// user who already has one without an end time.
	ErrActiveSessionExists = fmt.Errorf("%w: an active session already exists", ErrInvalidState)

	// ErrNotFound is returned when a session id resolves to nothing.
	ErrNotFound = errors.New("session not found")
)

// IsInvalidState reports whether err is a lifecycle violation.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// =============================================================================
// SESSION - Aggregate root
// =============================================================================

// Session is one tracked play period. EndTime nil means active; once set,
// the session is completed permanently and accepts no further events.
type Session struct {
	ID             string
	UserID         string
	Description    string
	StartTime      time.Time
	EndTime        *time.Time
	InitialBalance decimal.Decimal
	Events         []ledger.Event
	SessionLog     string
}

// New validates inputs and returns a fresh active session.
func New(userID, description string, initialBalance decimal.Decimal, now time.Time) (Session, error) {
	if description == "" {
		return Session{}, &ledger.ValidationError{Field: "description", Reason: ledger.ErrEmptyDescription}
	}
	if err := ledger.ValidateAmount(initialBalance); err != nil {
		return Session{}, err
	}
	return Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Description:    description,
		StartTime:      now,
		InitialBalance: initialBalance,
	}, nil
}

// Active reports whether the session has no end time yet.
func (s Session) Active() bool { return s.EndTime == nil }

// AppendEvent returns a copy of the session with the event appended.
// Fails with ErrSessionEnded once the end time is set, and rejects
// events that violate the boundary contract.
func (s Session) AppendEvent(e ledger.Event) (Session, error) {
	if !s.Active() {
		return s, ErrSessionEnded
	}
	if err := ledger.ValidateEvent(e); err != nil {
		return s, err
	}
	events := make([]ledger.Event, len(s.Events), len(s.Events)+1)
	copy(events, s.Events)
	s.Events = append(events, e)
	return s, nil
}

// End returns a completed copy of the session: a closing balance event is
// appended and the end time is set in the same step, so a caller can never
// observe one without the other. The optional session log is attachable
// only here.
func (s Session) End(finalBalance decimal.Decimal, sessionLog string, now time.Time) (Session, ledger.Event, error) {
	if !s.Active() {
		return s, ledger.Event{}, ErrSessionEnded
	}
	closing := ledger.Event{
		ID:          uuid.NewString(),
		Timestamp:   now,
		Type:        ledger.EventBalance,
		Amount:      finalBalance,
		Description: "closing balance",
	}
	ended, err := s.AppendEvent(closing)
	if err != nil {
		return s, ledger.Event{}, err
	}
	end := now
	ended.EndTime = &end
	ended.SessionLog = sessionLog
	return ended, closing, nil
}

// WithDescription returns a copy with the label replaced. Allowed at any
// lifecycle stage.
func (s Session) WithDescription(text string) (Session, error) {
	if text == "" {
		return s, &ledger.ValidationError{Field: "description", Reason: ledger.ErrEmptyDescription}
	}
	s.Description = text
	return s, nil
}

// =============================================================================
// DERIVED VIEWS - Thin delegation to the ledger engine
// =============================================================================

// Timeline replays the event log into the full balance timeline.
func (s Session) Timeline() []ledger.TimelinePoint {
	return ledger.ComputeTimeline(s.InitialBalance, s.StartTime, s.EndTime, s.Events)
}

// Elapsed returns the session's wall-clock span: end minus start for a
// completed session, now minus start for an active one.
func (s Session) Elapsed(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// Stats aggregates the event log for the given elapsed time.
func (s Session) Stats(elapsed time.Duration) ledger.Stats {
	return ledger.ComputeStats(s.InitialBalance, s.Events, elapsed)
}

// Chart projects the timeline into plot-ready points.
func (s Session) Chart() []ledger.ChartPoint {
	return ledger.ProjectChart(s.StartTime, s.Timeline())
}

// CurrentBalance is the balance after replaying every event.
func (s Session) CurrentBalance() decimal.Decimal {
	tl := s.Timeline()
	return tl[len(tl)-1].Balance
}

/*
service.go - Session orchestration

PURPOSE:
  The Service is the single mutation path for sessions. It enforces the
  one-active-session-per-user invariant at creation, validates input at
  the boundary, persists through the Store, and emits change signals for
  the realtime feed after each successful write.

ERROR CONTRACT:
  - Boundary rejections: typed *ledger.ValidationError
  - Lifecycle violations: ErrSessionEnded / ErrActiveSessionExists
  - Store failures: propagated unchanged, no silent retries

SEE ALSO:
  - session.go: The aggregate the service orchestrates
  - api/handlers.go: HTTP surface over this service
*/
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborlog/session-engine/ledger"
)

// Service coordinates session mutations against the store.
type Service struct {
	Store    Store
	Notifier Notifier   // optional; nil disables change signals
	Clock    func() time.Time
}

// NewService creates a service with the real clock.
func NewService(store Store) *Service {
	return &Service{Store: store, Clock: time.Now}
}

func (sv *Service) now() time.Time {
	if sv.Clock != nil {
		return sv.Clock()
	}
	return time.Now()
}

func (sv *Service) notify(userID, sessionID string) {
	if sv.Notifier != nil {
		sv.Notifier.SessionChanged(userID, sessionID)
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns every session for the user, newest first.
func (sv *Service) List(ctx context.Context, userID string) ([]Session, error) {
	return sv.Store.Sessions(ctx, userID)
}

// Get returns one session by id.
func (sv *Service) Get(ctx context.Context, id string) (*Session, error) {
	return sv.Store.Session(ctx, id)
}

// Active returns the user's active session, or nil.
func (sv *Service) Active(ctx context.Context, userID string) (*Session, error) {
	return sv.Store.ActiveSession(ctx, userID)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create starts a new session for the user. At most one active session
// may exist per user; a second create fails with ErrActiveSessionExists.
// A nil initialBalance defaults to the final balance of the user's most
// recently completed session (zero when there is none).
func (sv *Service) Create(ctx context.Context, userID, description string, initialBalance *decimal.Decimal) (Session, error) {
	active, err := sv.Store.ActiveSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if active != nil {
		return Session{}, ErrActiveSessionExists
	}

	balance := decimal.Zero
	if initialBalance != nil {
		balance = *initialBalance
	} else if prev, err := sv.lastCompleted(ctx, userID); err != nil {
		return Session{}, err
	} else if prev != nil {
		balance = prev.CurrentBalance()
	}

	s, err := New(userID, description, balance, sv.now())
	if err != nil {
		return Session{}, err
	}
	if err := sv.Store.CreateSession(ctx, s); err != nil {
		return Session{}, err
	}
	sv.notify(userID, s.ID)
	return s, nil
}

// Record validates and appends one event to an active session.
func (sv *Service) Record(ctx context.Context, sessionID string, eventType ledger.EventType, amount decimal.Decimal, description string) (ledger.Event, error) {
	s, err := sv.Store.Session(ctx, sessionID)
	if err != nil {
		return ledger.Event{}, err
	}

	e := ledger.Event{
		ID:          uuid.NewString(),
		Timestamp:   sv.now(),
		Type:        eventType,
		Amount:      amount,
		Description: description,
	}
	if _, err := s.AppendEvent(e); err != nil {
		return ledger.Event{}, err
	}
	if err := sv.Store.AppendEvent(ctx, s.ID, e); err != nil {
		return ledger.Event{}, err
	}
	sv.notify(s.UserID, s.ID)
	return e, nil
}

// End completes a session: the closing balance event and the end time are
// committed in one store transaction, with the optional session log.
func (sv *Service) End(ctx context.Context, sessionID string, finalBalance decimal.Decimal, sessionLog string) (Session, error) {
	s, err := sv.Store.Session(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if err := ledger.ValidateAmount(finalBalance); err != nil {
		return Session{}, err
	}

	ended, closing, err := s.End(finalBalance, sessionLog, sv.now())
	if err != nil {
		return Session{}, err
	}
	if err := sv.Store.EndSession(ctx, s.ID, closing, *ended.EndTime, sessionLog); err != nil {
		return Session{}, err
	}
	sv.notify(s.UserID, s.ID)
	return ended, nil
}

// Rename updates the session description. Allowed at any stage.
func (sv *Service) Rename(ctx context.Context, sessionID, description string) (Session, error) {
	s, err := sv.Store.Session(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	renamed, err := s.WithDescription(description)
	if err != nil {
		return Session{}, err
	}
	if err := sv.Store.UpdateSession(ctx, renamed); err != nil {
		return Session{}, err
	}
	sv.notify(s.UserID, s.ID)
	return renamed, nil
}

// Delete removes the whole aggregate. Journal entries referencing the
// session are detached by the store, not deleted.
func (sv *Service) Delete(ctx context.Context, sessionID string) error {
	s, err := sv.Store.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sv.Store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	sv.notify(s.UserID, s.ID)
	return nil
}

// lastCompleted returns the most recently ended session, or nil.
func (sv *Service) lastCompleted(ctx context.Context, userID string) (*Session, error) {
	sessions, err := sv.Store.Sessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	var last *Session
	for i := range sessions {
		s := sessions[i]
		if s.EndTime == nil {
			continue
		}
		if last == nil || s.EndTime.After(*last.EndTime) {
			last = &s
		}
	}
	return last, nil
}

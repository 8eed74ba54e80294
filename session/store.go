/*
store.go - Persistence collaborator interface for sessions

PURPOSE:
  Defines the contract between the session domain and storage. The event
  log is append-only: events are never updated or removed individually,
  only the whole session aggregate is deletable.

ATOMICITY:
  EndSession commits the closing balance event AND the end time as one
  write. Implementations must make this transactional: a crash can never
  leave an end time without its closing event, or the reverse.

DELETE SEMANTICS:
  DeleteSession removes the aggregate (session + events) but journal
  entries that reference the session are detached, never deleted. This is
  a product requirement: logs survive the sessions they were written about.

IMPLEMENTATIONS:
  - store/sqlite: production store (WAL, single-transaction end/delete)
  - store/memory: in-memory store for tests and dev

SEE ALSO:
  - service.go: The only caller of these methods
*/
package session

import (
	"context"
	"time"

	"github.com/harborlog/session-engine/ledger"
)

// Store persists session aggregates. Each loaded Session includes its
// full event log in storage order.
type Store interface {
	// Sessions returns every session for the user, newest first.
	Sessions(ctx context.Context, userID string) ([]Session, error)

	// Session returns one aggregate by id, or ErrNotFound.
	Session(ctx context.Context, id string) (*Session, error)

	// ActiveSession returns the user's session without an end time, or
	// nil when every session is completed.
	ActiveSession(ctx context.Context, userID string) (*Session, error)

	// CreateSession persists a new aggregate.
	CreateSession(ctx context.Context, s Session) error

	// UpdateSession persists mutable header fields (description).
	// Events are never written through this method.
	UpdateSession(ctx context.Context, s Session) error

	// AppendEvent adds one event to the session's log. Append-only.
	AppendEvent(ctx context.Context, sessionID string, e ledger.Event) error

	// EndSession atomically appends the closing event and sets the end
	// time and session log. Either both are committed or neither is.
	EndSession(ctx context.Context, sessionID string, closing ledger.Event, endTime time.Time, sessionLog string) error

	// DeleteSession removes the aggregate and detaches (never deletes)
	// journal entries referencing it.
	DeleteSession(ctx context.Context, id string) error
}

// Notifier receives change signals after successful writes. Signals are
// re-fetch triggers only; they carry no row data.
type Notifier interface {
	SessionChanged(userID, sessionID string)
}

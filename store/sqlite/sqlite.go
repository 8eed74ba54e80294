/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements session.Store and social.Store on SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Event rows are never updated or deleted individually:
  - No UPDATE statements on the events table
  - The only DELETE is the whole-session cascade in DeleteSession

KEY TABLES:
  sessions:        Session aggregates (one active per user, enforced by
                   a partial unique index)
  events:          Append-only event log, insertion order preserved
  journal_entries: Captain's log; session_id is a weak reference that is
                   detached (set NULL) when the session is deleted
  friendships:     One row per requester/addressee pair
  polls, poll_options, votes: Community voting; votes keyed (poll, user)
                   so a re-vote replaces the earlier choice

ATOMICITY:
  EndSession writes the closing event and the end time inside one SQL
  transaction - a crash can never leave one without the other.
  DeleteSession detaches journal entries in the same transaction as the
  delete.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block, single
  writer at a time, better crash recovery.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Writes are serialized here, and
  two writers on the same session get last-write-wins.

USAGE:
  store, err := sqlite.New("./data/voyages.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - session/store.go, social/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/session"
	"github.com/harborlog/session-engine/social"
)

// Store implements session.Store and social.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sessions (aggregate header)
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		initial_balance TEXT NOT NULL,
		session_log TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user
		ON sessions(user_id, start_time DESC);

	-- CRITICAL: At most one active session per user. The service checks
	-- this too; the index turns the race into a constraint error instead
	-- of two active sessions.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON sessions(user_id) WHERE end_time IS NULL;

	-- Events (append-only log; rowid preserves insertion order, which is
	-- the tiebreak for same-timestamp events)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		timestamp TEXT NOT NULL,
		event_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session
		ON events(session_id);

	-- Journal entries (captain's log). session_id is a weak reference;
	-- the detach happens in the DeleteSession transaction so the memory
	-- store and this one behave identically.
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		image_key TEXT NOT NULL DEFAULT '',
		session_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_user
		ON journal_entries(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_journal_session
		ON journal_entries(session_id) WHERE session_id IS NOT NULL;

	-- Friendships (one row per pair)
	CREATE TABLE IF NOT EXISTS friendships (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL,
		addressee_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(requester_id, addressee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_friendships_requester
		ON friendships(requester_id);
	CREATE INDEX IF NOT EXISTS idx_friendships_addressee
		ON friendships(addressee_id);

	-- Community polls
	CREATE TABLE IF NOT EXISTS polls (
		id TEXT PRIMARY KEY,
		creator_id TEXT NOT NULL,
		question TEXT NOT NULL,
		created_at TEXT NOT NULL,
		closes_at TEXT
	);

	CREATE TABLE IF NOT EXISTS poll_options (
		id TEXT PRIMARY KEY,
		poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_options_poll
		ON poll_options(poll_id, position);

	-- Votes: primary key (poll, user) makes re-voting a replace
	CREATE TABLE IF NOT EXISTS votes (
		poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		option_id TEXT NOT NULL,
		cast_at TEXT NOT NULL,
		PRIMARY KEY (poll_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_votes_poll
		ON votes(poll_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STORE (session.Store interface)
// =============================================================================

// Sessions returns every session for the user, newest first, with full
// event logs.
func (s *Store) Sessions(ctx context.Context, userID string) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, description, start_time, end_time, initial_balance, session_log
		FROM sessions
		WHERE user_id = ?
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		events, err := s.loadEvents(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Events = events
	}
	return sessions, nil
}

// Session returns one aggregate by id.
func (s *Store) Session(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadSession(ctx, id)
}

func (s *Store) loadSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, description, start_time, end_time, initial_balance, session_log
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	events, err := s.loadEvents(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Events = events
	return &sess, nil
}

// ActiveSession returns the user's session without an end time, or nil.
func (s *Store) ActiveSession(ctx context.Context, userID string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM sessions WHERE user_id = ? AND end_time IS NULL", userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active session: %w", err)
	}
	return s.loadSession(ctx, id)
}

// CreateSession persists a new aggregate.
func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, description, start_time, end_time, initial_balance, session_log, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.UserID,
		sess.Description,
		sess.StartTime.UTC().Format(time.RFC3339Nano),
		nullTime(sess.EndTime),
		sess.InitialBalance.String(),
		sess.SessionLog,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return session.ErrActiveSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	for _, e := range sess.Events {
		if err := s.insertEvent(ctx, s.db, sess.ID, e); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSession persists mutable header fields (description only - the
// event log and lifecycle fields have their own write paths).
func (s *Store) UpdateSession(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET description = ? WHERE id = ?",
		sess.Description, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// AppendEvent adds one event to an active session's log.
func (s *Store) AppendEvent(ctx context.Context, sessionID string, e ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended, err := s.sessionEnded(ctx, sessionID)
	if err != nil {
		return err
	}
	if ended {
		return session.ErrSessionEnded
	}
	return s.insertEvent(ctx, s.db, sessionID, e)
}

// EndSession atomically appends the closing event and sets end time and
// session log. Either both are committed or neither is.
func (s *Store) EndSession(ctx context.Context, sessionID string, closing ledger.Event, endTime time.Time, sessionLog string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended, err := s.sessionEnded(ctx, sessionID)
	if err != nil {
		return err
	}
	if ended {
		return session.ErrSessionEnded
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.insertEvent(ctx, sqlTx, sessionID, closing); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE sessions SET end_time = ?, session_log = ? WHERE id = ?",
		endTime.UTC().Format(time.RFC3339Nano), sessionLog, sessionID,
	); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return sqlTx.Commit()
}

// DeleteSession removes the aggregate and detaches journal entries in
// the same transaction. Entries are never deleted with the session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE journal_entries SET session_id = NULL WHERE session_id = ?", id,
	); err != nil {
		return fmt.Errorf("failed to detach journal entries: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM events WHERE session_id = ?", id,
	); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	res, err := sqlTx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}

	return sqlTx.Commit()
}

func (s *Store) sessionEnded(ctx context.Context, sessionID string) (bool, error) {
	var endTime sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT end_time FROM sessions WHERE id = ?", sessionID,
	).Scan(&endTime)
	if err == sql.ErrNoRows {
		return false, session.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session state: %w", err)
	}
	return endTime.Valid, nil
}

func (s *Store) insertEvent(ctx context.Context, db execer, sessionID string, e ledger.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, session_id, timestamp, event_type, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		sessionID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Type),
		e.Amount.String(),
		e.Description,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// loadEvents returns the session's events in insertion order (rowid).
// Chronological ordering is the ledger's job; storage never reorders.
func (s *Store) loadEvents(ctx context.Context, sessionID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, amount, description
		FROM events
		WHERE session_id = ?
		ORDER BY rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var (
			e         ledger.Event
			timestamp string
			eventType string
			amount    string
		)
		if err := rows.Scan(&e.ID, &timestamp, &eventType, &amount, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		e.Type = ledger.EventType(eventType)
		e.Amount = parseDecimal(amount)
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.Session, error) {
	var (
		sess           session.Session
		startTime      string
		endTime        sql.NullString
		initialBalance string
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Description,
		&startTime, &endTime, &initialBalance, &sess.SessionLog)
	if err != nil {
		return sess, err
	}
	sess.StartTime, _ = time.Parse(time.RFC3339Nano, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339Nano, endTime.String)
		sess.EndTime = &t
	}
	sess.InitialBalance = parseDecimal(initialBalance)
	return sess, nil
}

// =============================================================================
// JOURNAL STORE (social.Store interface)
// =============================================================================

// Entries returns the user's journal entries, newest first.
func (s *Store) Entries(ctx context.Context, userID string) ([]social.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, image_key, session_id, created_at, updated_at
		FROM journal_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []social.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entry returns one journal entry by id.
func (s *Store) Entry(ctx context.Context, id string) (*social.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, body, image_key, session_id, created_at, updated_at
		FROM journal_entries
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, social.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry writes a new journal entry.
func (s *Store) CreateEntry(ctx context.Context, e social.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, title, body, image_key, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UserID, e.Title, e.Body, e.ImageKey,
		nullString(e.SessionID),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

// UpdateEntry replaces the mutable fields of an entry.
func (s *Store) UpdateEntry(ctx context.Context, e social.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE journal_entries
		SET title = ?, body = ?, image_key = ?, session_id = ?, updated_at = ?
		WHERE id = ?
	`,
		e.Title, e.Body, e.ImageKey, nullString(e.SessionID),
		e.UpdatedAt.UTC().Format(time.RFC3339Nano), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update journal entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return social.ErrEntryNotFound
	}
	return nil
}

// DeleteEntry removes one journal entry.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM journal_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return social.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row rowScanner) (social.JournalEntry, error) {
	var (
		e         social.JournalEntry
		sessionID sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Body, &e.ImageKey,
		&sessionID, &createdAt, &updatedAt)
	if err != nil {
		return e, err
	}
	e.SessionID = sessionID.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, nil
}

// =============================================================================
// FRIEND STORE (social.Store interface)
// =============================================================================

// Friendships returns every row involving the user, newest first.
func (s *Store) Friendships(ctx context.Context, userID string) ([]social.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM friendships
		WHERE requester_id = ? OR addressee_id = ?
		ORDER BY created_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query friendships: %w", err)
	}
	defer rows.Close()

	var friendships []social.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}

// Friendship returns one row by id.
func (s *Store) Friendship(ctx context.Context, id string) (*social.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM friendships
		WHERE id = ?
	`, id)

	f, err := scanFriendship(row)
	if err == sql.ErrNoRows {
		return nil, social.ErrFriendshipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FriendshipBetween returns the pair's row in either direction, or nil.
func (s *Store) FriendshipBetween(ctx context.Context, a, b string) (*social.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM friendships
		WHERE (requester_id = ? AND addressee_id = ?)
		   OR (requester_id = ? AND addressee_id = ?)
	`, a, b, b, a)

	f, err := scanFriendship(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFriendship inserts a new pair row.
func (s *Store) CreateFriendship(ctx context.Context, f social.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO friendships (id, requester_id, addressee_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		f.ID, f.RequesterID, f.AddresseeID, string(f.Status),
		f.CreatedAt.UTC().Format(time.RFC3339Nano),
		f.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return social.ErrFriendshipExists
		}
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// UpdateFriendship persists a status transition.
func (s *Store) UpdateFriendship(ctx context.Context, f social.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE friendships SET status = ?, updated_at = ? WHERE id = ?",
		string(f.Status), f.UpdatedAt.UTC().Format(time.RFC3339Nano), f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update friendship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return social.ErrFriendshipNotFound
	}
	return nil
}

// DeleteFriendship removes one pair row.
func (s *Store) DeleteFriendship(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM friendships WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return social.ErrFriendshipNotFound
	}
	return nil
}

func scanFriendship(row rowScanner) (social.Friendship, error) {
	var (
		f         social.Friendship
		status    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &status, &createdAt, &updatedAt)
	if err != nil {
		return f, err
	}
	f.Status = social.FriendshipStatus(status)
	f.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return f, nil
}

// =============================================================================
// POLL STORE (social.Store interface)
// =============================================================================

// Polls returns every poll, newest first, with options populated.
func (s *Store) Polls(ctx context.Context) ([]social.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, creator_id, question, created_at, closes_at
		FROM polls
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	var polls []social.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		options, err := s.loadOptions(ctx, polls[i].ID)
		if err != nil {
			return nil, err
		}
		polls[i].Options = options
	}
	return polls, nil
}

// Poll returns one poll with its options.
func (s *Store) Poll(ctx context.Context, id string) (*social.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, creator_id, question, created_at, closes_at
		FROM polls
		WHERE id = ?
	`, id)

	p, err := scanPoll(row)
	if err == sql.ErrNoRows {
		return nil, social.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	options, err := s.loadOptions(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Options = options
	return &p, nil
}

// CreatePoll inserts the poll and its options atomically.
func (s *Store) CreatePoll(ctx context.Context, p social.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO polls (id, creator_id, question, created_at, closes_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		p.ID, p.CreatorID, p.Question,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullTime(p.ClosesAt),
	); err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	for i, o := range p.Options {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO poll_options (id, poll_id, label, position)
			VALUES (?, ?, ?, ?)
		`, o.ID, p.ID, o.Label, i); err != nil {
			return fmt.Errorf("failed to create poll option: %w", err)
		}
	}

	return sqlTx.Commit()
}

// SaveVote inserts or replaces the user's vote on a poll.
func (s *Store) SaveVote(ctx context.Context, v social.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (poll_id, user_id, option_id, cast_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(poll_id, user_id) DO UPDATE SET option_id = excluded.option_id, cast_at = excluded.cast_at
	`,
		v.PollID, v.UserID, v.OptionID,
		v.CastAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

// Votes returns every current vote for a poll.
func (s *Store) Votes(ctx context.Context, pollID string) ([]social.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT poll_id, user_id, option_id, cast_at
		FROM votes
		WHERE poll_id = ?
		ORDER BY cast_at ASC
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []social.Vote
	for rows.Next() {
		var (
			v      social.Vote
			castAt string
		)
		if err := rows.Scan(&v.PollID, &v.UserID, &v.OptionID, &castAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.CastAt, _ = time.Parse(time.RFC3339Nano, castAt)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *Store) loadOptions(ctx context.Context, pollID string) ([]social.PollOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, label
		FROM poll_options
		WHERE poll_id = ?
		ORDER BY position ASC
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll options: %w", err)
	}
	defer rows.Close()

	var options []social.PollOption
	for rows.Next() {
		var o social.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.Label); err != nil {
			return nil, fmt.Errorf("failed to scan poll option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func scanPoll(row rowScanner) (social.Poll, error) {
	var (
		p         social.Poll
		createdAt string
		closesAt  sql.NullString
	)
	err := row.Scan(&p.ID, &p.CreatorID, &p.Question, &createdAt, &closesAt)
	if err != nil {
		return p, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if closesAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, closesAt.String)
		p.ClosesAt = &t
	}
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

/*
store.go - Persistence interface for the social layer

PURPOSE:
  The storage contract for journal entries, friendships, and polls.
  Implementations live next to the session store (store/sqlite,
  store/memory) and share its database.

SEE ALSO:
  - service.go: The rules enforced above this interface
*/
package social

import (
	"context"
	"time"
)

// Store persists the social layer.
type Store interface {
	// --- Journal ---

	// Entries returns the user's journal entries, newest first.
	Entries(ctx context.Context, userID string) ([]JournalEntry, error)

	// Entry returns one entry by id, or ErrEntryNotFound.
	Entry(ctx context.Context, id string) (*JournalEntry, error)

	CreateEntry(ctx context.Context, e JournalEntry) error
	UpdateEntry(ctx context.Context, e JournalEntry) error
	DeleteEntry(ctx context.Context, id string) error

	// --- Friends ---

	// Friendships returns every row involving the user, any status.
	Friendships(ctx context.Context, userID string) ([]Friendship, error)

	// Friendship returns one row by id, or ErrFriendshipNotFound.
	Friendship(ctx context.Context, id string) (*Friendship, error)

	// FriendshipBetween returns the row for the pair in either direction,
	// or nil when none exists.
	FriendshipBetween(ctx context.Context, a, b string) (*Friendship, error)

	CreateFriendship(ctx context.Context, f Friendship) error
	UpdateFriendship(ctx context.Context, f Friendship) error
	DeleteFriendship(ctx context.Context, id string) error

	// --- Voting ---

	// Polls returns every poll, newest first, with options populated.
	Polls(ctx context.Context) ([]Poll, error)

	// Poll returns one poll with options, or ErrPollNotFound.
	Poll(ctx context.Context, id string) (*Poll, error)

	CreatePoll(ctx context.Context, p Poll) error

	// SaveVote inserts or replaces the user's vote on a poll.
	SaveVote(ctx context.Context, v Vote) error

	// Votes returns every current vote for a poll.
	Votes(ctx context.Context, pollID string) ([]Vote, error)
}

// Clock is the time source for the service; tests substitute a fake.
type Clock func() time.Time

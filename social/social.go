/*
Package social provides the journal, friends, and community voting layer.

PURPOSE:
  The social layer around the session tracker: free-text "captain's log"
  journal entries (optionally referencing a session), friendship requests,
  and community polls with one-vote-per-user tallies.

KEY CONCEPTS IN THIS FILE (social.go):
  - JournalEntry: text + optional image, weakly referencing a session
  - Friendship: requester/addressee pair with a pending/accepted status
  - Poll/PollOption/Vote: community voting with per-option tallies

WEAK SESSION REFERENCE:
  A journal entry's SessionID is a back-reference, never ownership.
  Deleting a session detaches entries (SessionID cleared); it must never
  cascade-delete them.

SEE ALSO:
  - service.go: Rules (self-friendship, re-vote replaces, ...)
  - store.go: Persistence interface
*/
package social

import (
	"errors"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEntryNotFound is returned when a journal entry id resolves to nothing.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrFriendshipNotFound is returned for unknown friendship ids.
	ErrFriendshipNotFound = errors.New("friendship not found")

	// ErrSelfFriendship is returned when a user befriends themselves.
	ErrSelfFriendship = errors.New("cannot send a friend request to yourself")

	// ErrFriendshipExists is returned when a pair already has a row.
	ErrFriendshipExists = errors.New("friendship already exists")

	// ErrNotPending is returned when accepting or declining a request
	// that is not in the pending state.
	ErrNotPending = errors.New("friend request is not pending")

	// ErrPollNotFound is returned for unknown poll ids.
	ErrPollNotFound = errors.New("poll not found")

	// ErrPollClosed is returned when voting on a poll past its close time.
	ErrPollClosed = errors.New("poll is closed")

	// ErrUnknownOption is returned when a vote names an option the poll
	// does not have.
	ErrUnknownOption = errors.New("option does not belong to poll")
)

// =============================================================================
// JOURNAL - Captain's log entries
// =============================================================================

// JournalEntry is one captain's log entry. SessionID is a weak reference:
// empty means unattached, and a deleted session clears it.
type JournalEntry struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	ImageKey  string // object-storage key, empty when no image
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// FRIENDS
// =============================================================================

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipDeclined FriendshipStatus = "declined"
)

// Friendship is one row per (requester, addressee) pair.
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
	Status      FriendshipStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether the user is either side of the friendship.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the opposite side of the friendship for the given user.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// =============================================================================
// COMMUNITY VOTING
// =============================================================================

// Poll is one community question with a fixed option set.
type Poll struct {
	ID        string
	CreatorID string
	Question  string
	Options   []PollOption
	CreatedAt time.Time
	ClosesAt  *time.Time // nil = open-ended
}

// Open reports whether the poll still accepts votes at the given time.
func (p Poll) Open(now time.Time) bool {
	return p.ClosesAt == nil || now.Before(*p.ClosesAt)
}

// HasOption reports whether the option id belongs to this poll.
func (p Poll) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// PollOption is one selectable answer.
type PollOption struct {
	ID     string
	PollID string
	Label  string
}

// Vote is one user's current choice on a poll. One row per (poll, user):
// re-voting replaces the previous choice.
type Vote struct {
	PollID   string
	UserID   string
	OptionID string
	CastAt   time.Time
}

// Tally is the vote count for one option.
type Tally struct {
	OptionID string
	Label    string
	Count    int
}

/*
service.go - Social layer rules

PURPOSE:
  Thin orchestration over the store. The rules that exist:
  - journal entries need a non-empty title
  - no self-friendship, one row per pair, accept/decline only from pending
  - polls need a question and at least two options
  - one vote per user per poll; re-voting replaces the earlier choice

Everything else is storage plumbing. Store failures propagate unchanged.
*/
package social

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harborlog/session-engine/ledger"
)

// Service coordinates social-layer mutations.
type Service struct {
	Store Store
	Clock Clock
}

func NewService(store Store) *Service {
	return &Service{Store: store, Clock: time.Now}
}

func (sv *Service) now() time.Time {
	if sv.Clock != nil {
		return sv.Clock()
	}
	return time.Now()
}

// =============================================================================
// JOURNAL
// =============================================================================

// CreateEntry writes a new captain's log entry. SessionID may be empty
// or reference any session (the reference stays valid even after that
// session is deleted, at which point the store clears it).
func (sv *Service) CreateEntry(ctx context.Context, userID, title, body, imageKey, sessionID string) (JournalEntry, error) {
	if title == "" {
		return JournalEntry{}, &ledger.ValidationError{Field: "title", Reason: ledger.ErrEmptyDescription}
	}
	now := sv.now()
	e := JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		ImageKey:  imageKey,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sv.Store.CreateEntry(ctx, e); err != nil {
		return JournalEntry{}, err
	}
	return e, nil
}

// UpdateEntry replaces title, body, and image of an existing entry.
func (sv *Service) UpdateEntry(ctx context.Context, id, title, body, imageKey string) (JournalEntry, error) {
	if title == "" {
		return JournalEntry{}, &ledger.ValidationError{Field: "title", Reason: ledger.ErrEmptyDescription}
	}
	e, err := sv.Store.Entry(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Title = title
	e.Body = body
	e.ImageKey = imageKey
	e.UpdatedAt = sv.now()
	if err := sv.Store.UpdateEntry(ctx, *e); err != nil {
		return JournalEntry{}, err
	}
	return *e, nil
}

// DeleteEntry removes one entry.
func (sv *Service) DeleteEntry(ctx context.Context, id string) error {
	return sv.Store.DeleteEntry(ctx, id)
}

// =============================================================================
// FRIENDS
// =============================================================================

// RequestFriend creates a pending friendship row for the pair.
func (sv *Service) RequestFriend(ctx context.Context, requesterID, addresseeID string) (Friendship, error) {
	if requesterID == addresseeID {
		return Friendship{}, ErrSelfFriendship
	}
	existing, err := sv.Store.FriendshipBetween(ctx, requesterID, addresseeID)
	if err != nil {
		return Friendship{}, err
	}
	if existing != nil {
		return Friendship{}, ErrFriendshipExists
	}
	now := sv.now()
	f := Friendship{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := sv.Store.CreateFriendship(ctx, f); err != nil {
		return Friendship{}, err
	}
	return f, nil
}

// Accept transitions a pending request to accepted.
func (sv *Service) Accept(ctx context.Context, friendshipID string) (Friendship, error) {
	return sv.resolve(ctx, friendshipID, FriendshipAccepted)
}

// Decline transitions a pending request to declined.
func (sv *Service) Decline(ctx context.Context, friendshipID string) (Friendship, error) {
	return sv.resolve(ctx, friendshipID, FriendshipDeclined)
}

func (sv *Service) resolve(ctx context.Context, friendshipID string, status FriendshipStatus) (Friendship, error) {
	f, err := sv.Store.Friendship(ctx, friendshipID)
	if err != nil {
		return Friendship{}, err
	}
	if f.Status != FriendshipPending {
		return Friendship{}, ErrNotPending
	}
	f.Status = status
	f.UpdatedAt = sv.now()
	if err := sv.Store.UpdateFriendship(ctx, *f); err != nil {
		return Friendship{}, err
	}
	return *f, nil
}

// RemoveFriend deletes the friendship row between the pair.
func (sv *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	f, err := sv.Store.FriendshipBetween(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrFriendshipNotFound
	}
	return sv.Store.DeleteFriendship(ctx, f.ID)
}

// Friends returns the accepted friendships involving the user.
func (sv *Service) Friends(ctx context.Context, userID string) ([]Friendship, error) {
	all, err := sv.Store.Friendships(ctx, userID)
	if err != nil {
		return nil, err
	}
	accepted := make([]Friendship, 0, len(all))
	for _, f := range all {
		if f.Status == FriendshipAccepted {
			accepted = append(accepted, f)
		}
	}
	return accepted, nil
}

// =============================================================================
// VOTING
// =============================================================================

// CreatePoll opens a community poll with the given option labels.
func (sv *Service) CreatePoll(ctx context.Context, creatorID, question string, optionLabels []string, closesAt *time.Time) (Poll, error) {
	if question == "" {
		return Poll{}, &ledger.ValidationError{Field: "question", Reason: ledger.ErrEmptyDescription}
	}
	if len(optionLabels) < 2 {
		return Poll{}, &ledger.ValidationError{Field: "options", Reason: ledger.ErrInvalidInput, Value: "need at least two"}
	}
	p := Poll{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Question:  question,
		CreatedAt: sv.now(),
		ClosesAt:  closesAt,
	}
	for _, label := range optionLabels {
		p.Options = append(p.Options, PollOption{
			ID:     uuid.NewString(),
			PollID: p.ID,
			Label:  label,
		})
	}
	if err := sv.Store.CreatePoll(ctx, p); err != nil {
		return Poll{}, err
	}
	return p, nil
}

// CastVote records the user's choice. A second vote on the same poll
// replaces the first; votes on closed polls or foreign options fail.
func (sv *Service) CastVote(ctx context.Context, pollID, userID, optionID string) error {
	p, err := sv.Store.Poll(ctx, pollID)
	if err != nil {
		return err
	}
	now := sv.now()
	if !p.Open(now) {
		return ErrPollClosed
	}
	if !p.HasOption(optionID) {
		return ErrUnknownOption
	}
	return sv.Store.SaveVote(ctx, Vote{
		PollID:   pollID,
		UserID:   userID,
		OptionID: optionID,
		CastAt:   now,
	})
}

// Results tallies the current votes per option, preserving option order.
func (sv *Service) Results(ctx context.Context, pollID string) ([]Tally, error) {
	p, err := sv.Store.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes, err := sv.Store.Votes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(p.Options))
	for _, v := range votes {
		counts[v.OptionID]++
	}
	tallies := make([]Tally, len(p.Options))
	for i, o := range p.Options {
		tallies[i] = Tally{OptionID: o.ID, Label: o.Label, Count: counts[o.ID]}
	}
	return tallies, nil
}

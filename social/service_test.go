package social_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/social"
	"github.com/harborlog/session-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *social.Service {
	t.Helper()
	sv := social.NewService(memory.New())
	sv.Clock = func() time.Time { return testNow }
	return sv
}

func newPoll(t *testing.T, sv *social.Service, closesAt *time.Time) social.Poll {
	t.Helper()
	p, err := sv.CreatePoll(context.Background(), "user-1",
		"Best grind spot this patch?", []string{"Customs", "Shoreline", "Labs"}, closesAt)
	require.NoError(t, err)
	return p
}

// =============================================================================
// JOURNAL TESTS
// =============================================================================

func TestCreateEntry_RequiresTitle(t *testing.T) {
	sv := newTestService(t)

	_, err := sv.CreateEntry(context.Background(), "user-1", "", "body", "", "")

	assert.True(t, ledger.IsValidation(err))
}

func TestCreateEntry_RoundTrip(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	e, err := sv.CreateEntry(ctx, "user-1", "Night raid", "went south fast", "img/raid.png", "sess-1")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	entries, err := sv.Store.Entries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Night raid", entries[0].Title)
	assert.Equal(t, "sess-1", entries[0].SessionID)
}

func TestUpdateEntry_UnknownID(t *testing.T) {
	sv := newTestService(t)

	_, err := sv.UpdateEntry(context.Background(), "nope", "title", "", "")

	assert.ErrorIs(t, err, social.ErrEntryNotFound)
}

// =============================================================================
// FRIEND TESTS
// =============================================================================

func TestRequestFriend_SelfRejected(t *testing.T) {
	sv := newTestService(t)

	_, err := sv.RequestFriend(context.Background(), "user-1", "user-1")

	assert.ErrorIs(t, err, social.ErrSelfFriendship)
}

func TestRequestFriend_DuplicatePairRejected_EitherDirection(t *testing.T) {
	// GIVEN: user-1 already requested user-2
	// WHEN: Either side requests again
	// THEN: ErrFriendshipExists

	sv := newTestService(t)
	ctx := context.Background()

	_, err := sv.RequestFriend(ctx, "user-1", "user-2")
	require.NoError(t, err)

	_, err = sv.RequestFriend(ctx, "user-1", "user-2")
	assert.ErrorIs(t, err, social.ErrFriendshipExists)

	_, err = sv.RequestFriend(ctx, "user-2", "user-1")
	assert.ErrorIs(t, err, social.ErrFriendshipExists, "the pair is undirected")
}

func TestAccept_PendingBecomesAccepted(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	f, err := sv.RequestFriend(ctx, "user-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, social.FriendshipPending, f.Status)

	accepted, err := sv.Accept(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, social.FriendshipAccepted, accepted.Status)

	friends, err := sv.Friends(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "user-1", friends[0].Other("user-2"))
}

func TestAccept_NonPending_Rejected(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	f, err := sv.RequestFriend(ctx, "user-1", "user-2")
	require.NoError(t, err)
	_, err = sv.Decline(ctx, f.ID)
	require.NoError(t, err)

	_, err = sv.Accept(ctx, f.ID)

	assert.ErrorIs(t, err, social.ErrNotPending)
}

func TestFriends_ExcludesPendingAndDeclined(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	_, err := sv.RequestFriend(ctx, "user-1", "user-2") // stays pending
	require.NoError(t, err)
	declined, err := sv.RequestFriend(ctx, "user-1", "user-3")
	require.NoError(t, err)
	_, err = sv.Decline(ctx, declined.ID)
	require.NoError(t, err)

	friends, err := sv.Friends(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestRemoveFriend_DeletesPairRow(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	f, err := sv.RequestFriend(ctx, "user-1", "user-2")
	require.NoError(t, err)
	_, err = sv.Accept(ctx, f.ID)
	require.NoError(t, err)

	require.NoError(t, sv.RemoveFriend(ctx, "user-2", "user-1"))

	friends, err := sv.Friends(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, friends)

	// A fresh request is possible again.
	_, err = sv.RequestFriend(ctx, "user-2", "user-1")
	assert.NoError(t, err)
}

// =============================================================================
// VOTING TESTS
// =============================================================================

func TestCreatePoll_RequiresQuestionAndTwoOptions(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()

	_, err := sv.CreatePoll(ctx, "user-1", "", []string{"a", "b"}, nil)
	assert.True(t, ledger.IsValidation(err))

	_, err = sv.CreatePoll(ctx, "user-1", "one horse race?", []string{"a"}, nil)
	assert.True(t, ledger.IsValidation(err))
}

func TestCastVote_ReVoteReplaces(t *testing.T) {
	// GIVEN: user-2 voted for the first option
	// WHEN: user-2 votes again for the second option
	// THEN: One vote total, counted on the second option

	sv := newTestService(t)
	ctx := context.Background()
	p := newPoll(t, sv, nil)

	require.NoError(t, sv.CastVote(ctx, p.ID, "user-2", p.Options[0].ID))
	require.NoError(t, sv.CastVote(ctx, p.ID, "user-2", p.Options[1].ID))

	tallies, err := sv.Results(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 3)
	assert.Equal(t, 0, tallies[0].Count)
	assert.Equal(t, 1, tallies[1].Count)
	assert.Equal(t, 0, tallies[2].Count)
}

func TestCastVote_UnknownOption_Rejected(t *testing.T) {
	sv := newTestService(t)
	p := newPoll(t, sv, nil)

	err := sv.CastVote(context.Background(), p.ID, "user-2", "not-an-option")

	assert.ErrorIs(t, err, social.ErrUnknownOption)
}

func TestCastVote_ClosedPoll_Rejected(t *testing.T) {
	sv := newTestService(t)
	closed := testNow.Add(-time.Minute)
	p := newPoll(t, sv, &closed)

	err := sv.CastVote(context.Background(), p.ID, "user-2", p.Options[0].ID)

	assert.ErrorIs(t, err, social.ErrPollClosed)
}

func TestResults_PreservesOptionOrder(t *testing.T) {
	sv := newTestService(t)
	ctx := context.Background()
	p := newPoll(t, sv, nil)

	require.NoError(t, sv.CastVote(ctx, p.ID, "user-2", p.Options[2].ID))
	require.NoError(t, sv.CastVote(ctx, p.ID, "user-3", p.Options[2].ID))

	tallies, err := sv.Results(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Customs", tallies[0].Label)
	assert.Equal(t, "Shoreline", tallies[1].Label)
	assert.Equal(t, "Labs", tallies[2].Label)
	assert.Equal(t, 2, tallies[2].Count)
}

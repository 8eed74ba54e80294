package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/session"
	"github.com/harborlog/session-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// recordingNotifier captures change signals for assertions.
type recordingNotifier struct {
	signals []string
}

func (n *recordingNotifier) SessionChanged(userID, sessionID string) {
	n.signals = append(n.signals, userID+"/"+sessionID)
}

func newTestService(t *testing.T) (*session.Service, *memory.Memory, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	notifier := &recordingNotifier{}

	sv := session.NewService(store)
	sv.Notifier = notifier
	now := start
	sv.Clock = func() time.Time { return now }
	return sv, store, notifier
}

func balancePtr(v int64) *decimal.Decimal {
	b := d(v)
	return &b
}

// =============================================================================
// SINGLE ACTIVE SESSION INVARIANT
// =============================================================================

func TestCreate_SecondActiveSession_Rejected(t *testing.T) {
	// GIVEN: A user with an active session
	// WHEN: Starting another one
	// THEN: ErrActiveSessionExists

	sv, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := sv.Create(ctx, "user-1", "first", balancePtr(100))
	require.NoError(t, err)

	_, err = sv.Create(ctx, "user-1", "second", balancePtr(200))

	assert.ErrorIs(t, err, session.ErrActiveSessionExists)
}

func TestCreate_OtherUserUnaffected(t *testing.T) {
	sv, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := sv.Create(ctx, "user-1", "mine", balancePtr(100))
	require.NoError(t, err)

	_, err = sv.Create(ctx, "user-2", "theirs", balancePtr(100))

	assert.NoError(t, err, "the invariant is per user")
}

func TestCreate_AfterEnd_Allowed(t *testing.T) {
	sv, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := sv.Create(ctx, "user-1", "first", balancePtr(100))
	require.NoError(t, err)
	_, err = sv.End(ctx, first.ID, d(150), "")
	require.NoError(t, err)

	_, err = sv.Create(ctx, "user-1", "second", balancePtr(150))

	assert.NoError(t, err)
}

// =============================================================================
// DEFAULT INITIAL BALANCE
// =============================================================================

func TestCreate_NilBalance_DefaultsToLastCompletedFinal(t *testing.T) {
	// GIVEN: A completed session that ended at 1450
	// WHEN: Starting a new session without an initial balance
	// THEN: The new session opens at 1450

	sv, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := sv.Create(ctx, "user-1", "first", balancePtr(1000))
	require.NoError(t, err)
	_, err = sv.End(ctx, first.ID, d(1450), "")
	require.NoError(t, err)

	second, err := sv.Create(ctx, "user-1", "second", nil)
	require.NoError(t, err)

	assert.True(t, second.InitialBalance.Equal(d(1450)),
		"expected 1450, got %s", second.InitialBalance)
}

func TestCreate_NilBalance_NoHistory_DefaultsToZero(t *testing.T) {
	sv, _, _ := newTestService(t)

	s, err := sv.Create(context.Background(), "fresh-user", "first ever", nil)
	require.NoError(t, err)

	assert.True(t, s.InitialBalance.IsZero())
}

// =============================================================================
// RECORDING AND ENDING
// =============================================================================

func TestRecord_PersistsAndNotifies(t *testing.T) {
	sv, store, notifier := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "grind", balancePtr(1000))
	require.NoError(t, err)

	e, err := sv.Record(ctx, s.ID, ledger.EventSpending, d(200), "repairs")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	stored, err := store.Session(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, stored.Events, 1)
	assert.True(t, stored.CurrentBalance().Equal(d(800)))

	assert.Contains(t, notifier.signals, "user-1/"+s.ID)
}

func TestRecord_InvalidAmount_NotPersisted(t *testing.T) {
	sv, store, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "grind", balancePtr(1000))
	require.NoError(t, err)

	_, err = sv.Record(ctx, s.ID, ledger.EventEarning, d(-5), "bad")
	assert.ErrorIs(t, err, ledger.ErrNegativeAmount)

	stored, err := store.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Events, "rejected events must not reach the store")
}

func TestRecord_OnEndedSession_Rejected(t *testing.T) {
	sv, _, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "grind", balancePtr(1000))
	require.NoError(t, err)
	_, err = sv.End(ctx, s.ID, d(1000), "")
	require.NoError(t, err)

	_, err = sv.Record(ctx, s.ID, ledger.EventEarning, d(10), "late")

	assert.ErrorIs(t, err, session.ErrSessionEnded)
}

func TestEnd_StoresClosingEventEndTimeAndLog(t *testing.T) {
	sv, store, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "grind", balancePtr(1000))
	require.NoError(t, err)

	ended, err := sv.End(ctx, s.ID, d(1450), "good night, two wipes")
	require.NoError(t, err)
	assert.False(t, ended.Active())

	stored, err := store.Session(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, "good night, two wipes", stored.SessionLog)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, ledger.EventBalance, stored.Events[0].Type)
	assert.True(t, stored.Events[0].Amount.Equal(d(1450)))
}

func TestEnd_Twice_Rejected(t *testing.T) {
	sv, _, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "grind", balancePtr(1000))
	require.NoError(t, err)
	_, err = sv.End(ctx, s.ID, d(1000), "")
	require.NoError(t, err)

	_, err = sv.End(ctx, s.ID, d(999), "again")

	assert.ErrorIs(t, err, session.ErrSessionEnded)
}

// =============================================================================
// QUERIES AND DELETION
// =============================================================================

func TestActive_ReturnsNilWhenNone(t *testing.T) {
	sv, _, _ := newTestService(t)

	s, err := sv.Active(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestGet_UnknownID(t *testing.T) {
	sv, _, _ := newTestService(t)

	_, err := sv.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDelete_RemovesSession(t *testing.T) {
	sv, _, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "short lived", balancePtr(100))
	require.NoError(t, err)

	require.NoError(t, sv.Delete(ctx, s.ID))

	_, err = sv.Get(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRename_UpdatesDescriptionOnly(t *testing.T) {
	sv, store, _ := newTestService(t)
	ctx := context.Background()

	s, err := sv.Create(ctx, "user-1", "old name", balancePtr(100))
	require.NoError(t, err)
	_, err = sv.Record(ctx, s.ID, ledger.EventEarning, d(50), "")
	require.NoError(t, err)

	renamed, err := sv.Rename(ctx, s.ID, "new name")
	require.NoError(t, err)
	assert.Equal(t, "new name", renamed.Description)

	stored, err := store.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", stored.Description)
	assert.Len(t, stored.Events, 1, "rename must not touch the event log")
}

package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlog/session-engine/api"
)

func receiveSignal(t *testing.T, ch chan api.ChangeSignal) api.ChangeSignal {
	t.Helper()
	select {
	case sig := <-ch:
		return sig
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change signal")
		return api.ChangeSignal{}
	}
}

func TestHub_DeliversToMatchingSubscriber(t *testing.T) {
	hub := api.NewHub()
	ch := hub.Subscribe("user-1")
	defer hub.Unsubscribe(ch)

	hub.SessionChanged("user-1", "sess-1")

	sig := receiveSignal(t, ch)
	assert.Equal(t, "user-1", sig.UserID)
	assert.Equal(t, "sess-1", sig.SessionID)
}

func TestHub_FiltersOtherUsers(t *testing.T) {
	hub := api.NewHub()
	mine := hub.Subscribe("user-1")
	defer hub.Unsubscribe(mine)

	hub.SessionChanged("user-2", "sess-9")

	select {
	case sig := <-mine:
		t.Fatalf("unexpected signal: %+v", sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_EmptyFilterReceivesEverything(t *testing.T) {
	hub := api.NewHub()
	all := hub.Subscribe("")
	defer hub.Unsubscribe(all)

	hub.SessionChanged("user-1", "a")
	hub.SessionChanged("user-2", "b")

	assert.Equal(t, "a", receiveSignal(t, all).SessionID)
	assert.Equal(t, "b", receiveSignal(t, all).SessionID)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := api.NewHub()
	ch := hub.Subscribe("user-1")
	defer hub.Unsubscribe(ch)

	// Overfill the buffer; SessionChanged must return regardless.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.SessionChanged("user-1", "sess")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SessionChanged blocked on a slow subscriber")
	}

	// Whatever was buffered is still readable.
	require.NotEmpty(t, receiveSignal(t, ch).SessionID)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := api.NewHub()
	ch := hub.Subscribe("user-1")
	hub.Unsubscribe(ch)

	hub.SessionChanged("user-1", "sess-1")

	select {
	case sig := <-ch:
		t.Fatalf("unexpected signal after unsubscribe: %+v", sig)
	case <-time.After(50 * time.Millisecond):
	}
}

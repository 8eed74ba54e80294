/*
realtime.go - Server-Sent Events feed for session changes

PURPOSE:
  Pushes "session changed" signals to connected clients so an open
  dashboard refreshes without polling. The Hub implements
  session.Notifier; the Service calls SessionChanged after every
  successful write and the hub fans the signal out to every subscriber
  watching that user.

DELIVERY CONTRACT:
  Signals are at-most-once hints, not a replayable stream. A slow
  subscriber's buffer fills and further signals for it are dropped;
  the client re-fetches state on reconnect anyway. The authoritative
  record is always the store.

WIRE FORMAT (SSE):
  event: session
  data: {"user_id":"u1","session_id":"abc"}

SEE ALSO:
  - session/store.go: The Notifier interface
  - handlers.go: Feed route registration
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ChangeSignal is one realtime notification.
type ChangeSignal struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Hub fans session change signals out to SSE subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan ChangeSignal]string // channel -> userID filter ("" = all)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan ChangeSignal]string)}
}

// SessionChanged implements session.Notifier. Never blocks: signals to
// slow subscribers are dropped.
func (h *Hub) SessionChanged(userID, sessionID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sig := ChangeSignal{UserID: userID, SessionID: sessionID}
	for ch, filter := range h.subs {
		if filter != "" && filter != userID {
			continue
		}
		select {
		case ch <- sig:
		default:
		}
	}
}

// Subscribe registers a listener. An empty userID receives every signal.
func (h *Hub) Subscribe(userID string) chan ChangeSignal {
	ch := make(chan ChangeSignal, 8)
	h.mu.Lock()
	h.subs[ch] = userID
	h.mu.Unlock()
	feedSubscribers.Inc()
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (h *Hub) Unsubscribe(ch chan ChangeSignal) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	feedSubscribers.Dec()
}

// ServeFeed streams change signals for one user as Server-Sent Events.
// GET /api/users/{id}/feed
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial comment so proxies commit the stream immediately.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := h.Subscribe(userID)
	defer h.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case sig := <-ch:
			payload, err := json.Marshal(sig)
			if err != nil {
				log.Printf("[Realtime] marshal signal: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

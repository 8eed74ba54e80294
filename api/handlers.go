/*
handlers.go - HTTP API handlers for the session tracker

PURPOSE:
  Exposes the session ledger engine and the social layer via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Sessions:
    GET    /api/users/{id}/sessions         List user's sessions
    POST   /api/users/{id}/sessions         Start a session
    GET    /api/users/{id}/sessions/active  The active session, if any
    GET    /api/users/{id}/feed             SSE change feed
    GET    /api/sessions/{id}               Session detail
    PUT    /api/sessions/{id}               Rename session
    DELETE /api/sessions/{id}               Delete session
    GET    /api/sessions/{id}/events        Event log
    POST   /api/sessions/{id}/events        Record an event
    GET    /api/sessions/{id}/timeline      Replayed balance timeline
    GET    /api/sessions/{id}/stats         Aggregated stats
    GET    /api/sessions/{id}/chart         Plot-ready projection
    POST   /api/sessions/{id}/end           End with final balance

  Social:
    GET    /api/users/{id}/journal          List journal entries
    POST   /api/users/{id}/journal          Write an entry
    GET    /api/journal/{id}                Entry detail
    PUT    /api/journal/{id}                Update entry
    DELETE /api/journal/{id}                Delete entry
    GET    /api/users/{id}/friends          Accepted friendships
    POST   /api/users/{id}/friends          Send friend request
    DELETE /api/users/{id}/friends/{friendID} Remove friend
    POST   /api/friends/{id}/accept         Accept request
    POST   /api/friends/{id}/decline        Decline request
    GET    /api/polls                       List polls
    POST   /api/polls                       Create poll
    GET    /api/polls/{id}                  Poll detail
    GET    /api/polls/{id}/results          Current tallies
    POST   /api/polls/{id}/vote             Cast or replace a vote

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Lifecycle conflicts (ended session, duplicate active session)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - realtime.go: SSE feed
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/session"
	"github.com/harborlog/session-engine/social"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the services the HTTP layer delegates to.
type Handler struct {
	Sessions *session.Service
	Social   *social.Service
	Hub      *Hub
}

// NewHandler wires the handler and registers the hub as the session
// service's change notifier.
func NewHandler(sessions *session.Service, soc *social.Service, hub *Hub) *Handler {
	sessions.Notifier = hub
	return &Handler{Sessions: sessions, Social: soc, Hub: hub}
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// ListSessions returns every session for the user, newest first.
// GET /api/users/{id}/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	sessions, err := h.Sessions.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, toSessionDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSession starts a new session for the user.
// POST /api/users/{id}/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var initial *decimal.Decimal
	if req.InitialBalance != nil {
		d, err := decimal.NewFromString(*req.InitialBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid initial_balance", err)
			return
		}
		initial = &d
	}

	s, err := h.Sessions.Create(r.Context(), userID, req.Description, initial)
	if err != nil {
		writeDomainError(w, "Failed to create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

// ActiveSession returns the user's active session, 404 when none exists.
// GET /api/users/{id}/sessions/active
func (h *Handler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	s, err := h.Sessions.Active(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to load active session", err)
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*s))
}

// GetSession returns one session with its full event log.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*s))
}

// RenameSession updates the session description.
// PUT /api/sessions/{id}
func (h *Handler) RenameSession(w http.ResponseWriter, r *http.Request) {
	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Sessions.Rename(r.Context(), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeDomainError(w, "Failed to rename session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DeleteSession removes the session. Journal entries referencing it are
// detached, never deleted.
// DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListEvents returns the session's event log in insertion order.
// GET /api/sessions/{id}/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}

	dtos := make([]EventDTO, 0, len(s.Events))
	for _, e := range s.Events {
		dtos = append(dtos, toEventDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordEvent appends one earning, spending, or balance event.
// POST /api/sessions/{id}/events
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	e, err := h.Sessions.Record(r.Context(), chi.URLParam(r, "id"),
		ledger.EventType(req.Type), amount, req.Description)
	if err != nil {
		writeDomainError(w, "Failed to record event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e))
}

// Timeline replays the event log into the balance timeline.
// GET /api/sessions/{id}/timeline
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineDTOs(s.Timeline()))
}

// Stats returns the aggregated ledger view for the session.
// GET /api/sessions/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}

	elapsed := s.Elapsed(time.Now())
	writeJSON(w, http.StatusOK, toStatsDTO(s.Stats(elapsed), elapsed))
}

// Chart returns the plot-ready projection keyed by elapsed seconds.
// GET /api/sessions/{id}/chart
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, toChartDTOs(s.Chart()))
}

// EndSession completes the session with a counted final balance. The
// closing balance event and the end time are committed atomically.
// POST /api/sessions/{id}/end
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	finalBalance, err := decimal.NewFromString(req.FinalBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid final_balance", err)
		return
	}

	s, err := h.Sessions.End(r.Context(), chi.URLParam(r, "id"), finalBalance, req.SessionLog)
	if err != nil {
		writeDomainError(w, "Failed to end session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// =============================================================================
// JOURNAL ENDPOINTS
// =============================================================================

// ListEntries returns the user's journal entries, newest first.
// GET /api/users/{id}/journal
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Social.Store.Entries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list journal entries", err)
		return
	}

	dtos := make([]JournalEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry writes a new captain's log entry.
// POST /api/users/{id}/journal
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Social.CreateEntry(r.Context(), chi.URLParam(r, "id"),
		req.Title, req.Body, req.ImageKey, req.SessionID)
	if err != nil {
		writeDomainError(w, "Failed to create journal entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// GetEntry returns one journal entry.
// GET /api/journal/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.Social.Store.Entry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*e))
}

// UpdateEntry replaces the mutable fields of an entry.
// PUT /api/journal/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Social.UpdateEntry(r.Context(), chi.URLParam(r, "id"),
		req.Title, req.Body, req.ImageKey)
	if err != nil {
		writeDomainError(w, "Failed to update journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// DeleteEntry removes one journal entry.
// DELETE /api/journal/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Social.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete journal entry", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// FRIEND ENDPOINTS
// =============================================================================

// ListFriends returns the user's accepted friendships.
// GET /api/users/{id}/friends
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.Social.Friends(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list friends", err)
		return
	}

	dtos := make([]FriendshipDTO, 0, len(friends))
	for _, f := range friends {
		dtos = append(dtos, toFriendshipDTO(f))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RequestFriend sends a friend request.
// POST /api/users/{id}/friends
func (h *Handler) RequestFriend(w http.ResponseWriter, r *http.Request) {
	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	f, err := h.Social.RequestFriend(r.Context(), chi.URLParam(r, "id"), req.FriendID)
	if err != nil {
		writeDomainError(w, "Failed to send friend request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFriendshipDTO(f))
}

// RemoveFriend deletes the friendship between the pair.
// DELETE /api/users/{id}/friends/{friendID}
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	err := h.Social.RemoveFriend(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "friendID"))
	if err != nil {
		writeDomainError(w, "Failed to remove friend", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// AcceptFriend accepts a pending request.
// POST /api/friends/{id}/accept
func (h *Handler) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	f, err := h.Social.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to accept friend request", err)
		return
	}
	writeJSON(w, http.StatusOK, toFriendshipDTO(f))
}

// DeclineFriend declines a pending request.
// POST /api/friends/{id}/decline
func (h *Handler) DeclineFriend(w http.ResponseWriter, r *http.Request) {
	f, err := h.Social.Decline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to decline friend request", err)
		return
	}
	writeJSON(w, http.StatusOK, toFriendshipDTO(f))
}

// =============================================================================
// POLL ENDPOINTS
// =============================================================================

// ListPolls returns every community poll, newest first.
// GET /api/polls
func (h *Handler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.Social.Store.Polls(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list polls", err)
		return
	}

	now := time.Now()
	dtos := make([]PollDTO, 0, len(polls))
	for _, p := range polls {
		dtos = append(dtos, toPollDTO(p, now))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePoll opens a new community poll.
// POST /api/polls
func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var closesAt *time.Time
	if req.ClosesAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ClosesAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid closes_at", err)
			return
		}
		closesAt = &t
	}

	p, err := h.Social.CreatePoll(r.Context(), req.CreatorID, req.Question, req.Options, closesAt)
	if err != nil {
		writeDomainError(w, "Failed to create poll", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPollDTO(p, time.Now()))
}

// GetPoll returns one poll with its options.
// GET /api/polls/{id}
func (h *Handler) GetPoll(w http.ResponseWriter, r *http.Request) {
	p, err := h.Social.Store.Poll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load poll", err)
		return
	}
	writeJSON(w, http.StatusOK, toPollDTO(*p, time.Now()))
}

// PollResults returns the current tallies per option.
// GET /api/polls/{id}/results
func (h *Handler) PollResults(w http.ResponseWriter, r *http.Request) {
	tallies, err := h.Social.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load poll results", err)
		return
	}
	writeJSON(w, http.StatusOK, toTallyDTOs(tallies))
}

// CastVote records the user's choice; a second vote replaces the first.
// POST /api/polls/{id}/vote
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Social.CastVote(r.Context(), chi.URLParam(r, "id"), req.UserID, req.OptionID)
	if err != nil {
		writeDomainError(w, "Failed to cast vote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsValidation(err),
		errors.Is(err, social.ErrSelfFriendship),
		errors.Is(err, social.ErrUnknownOption):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, social.ErrEntryNotFound),
		errors.Is(err, social.ErrFriendshipNotFound),
		errors.Is(err, social.ErrPollNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case session.IsInvalidState(err),
		errors.Is(err, social.ErrFriendshipExists),
		errors.Is(err, social.ErrNotPending),
		errors.Is(err, social.ErrPollClosed):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

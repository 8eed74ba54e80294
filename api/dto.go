/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNT ENCODING:
  Amounts travel as decimal strings ("1500", "-0.25"), never float64.
  The same rule as the storage layer: exactness end to end.

TYPES:
  Session:
    SessionDTO, CreateSessionRequest, RenameSessionRequest,
    EndSessionRequest, EventDTO, RecordEventRequest,
    StatsDTO, TimelinePointDTO, ChartPointDTO

  Social:
    JournalEntryDTO, CreateEntryRequest, UpdateEntryRequest,
    FriendshipDTO, FriendRequestRequest,
    PollDTO, PollOptionDTO, CreatePollRequest, CastVoteRequest, TallyDTO

VALIDATION:
  Validation is done in handlers and domain code, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/session"
	"github.com/harborlog/session-engine/social"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// SessionDTO represents a session in API responses.
type SessionDTO struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Description    string     `json:"description"`
	StartTime      string     `json:"start_time"`
	EndTime        *string    `json:"end_time,omitempty"`
	InitialBalance string     `json:"initial_balance"`
	CurrentBalance string     `json:"current_balance"`
	Active         bool       `json:"active"`
	SessionLog     string     `json:"session_log,omitempty"`
	Events         []EventDTO `json:"events"`
}

// CreateSessionRequest is the request to start a session. A missing
// initial_balance defaults to the final balance of the user's most
// recently completed session.
type CreateSessionRequest struct {
	Description    string  `json:"description"`
	InitialBalance *string `json:"initial_balance,omitempty"`
}

// RenameSessionRequest updates the session description.
type RenameSessionRequest struct {
	Description string `json:"description"`
}

// EndSessionRequest completes a session with a counted final balance and
// an optional free-text log.
type EndSessionRequest struct {
	FinalBalance string `json:"final_balance"`
	SessionLog   string `json:"session_log,omitempty"`
}

// EventDTO represents one ledger event.
type EventDTO struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// RecordEventRequest appends an event to an active session. A missing
// timestamp means "now".
type RecordEventRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// StatsDTO is the aggregate view of a session's ledger.
type StatsDTO struct {
	TotalEarnings  string `json:"total_earnings"`
	TotalSpend     string `json:"total_spend"`
	SessionProfit  string `json:"session_profit"`
	FinalBalance   string `json:"final_balance"`
	ProfitPerHour  string `json:"profit_per_hour"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

// TimelinePointDTO is one replayed balance point.
type TimelinePointDTO struct {
	Timestamp   string `json:"timestamp"`
	Balance     string `json:"balance"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Delta       string `json:"delta"`
	Description string `json:"description,omitempty"`
}

// ChartPointDTO is one plot-ready point, keyed by whole elapsed seconds.
type ChartPointDTO struct {
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	Balance        string `json:"balance"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
}

// =============================================================================
// SOCIAL TYPES
// =============================================================================

// JournalEntryDTO represents a captain's log entry.
type JournalEntryDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateEntryRequest writes a new journal entry.
type CreateEntryRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// UpdateEntryRequest replaces the mutable fields of an entry.
type UpdateEntryRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	ImageKey string `json:"image_key,omitempty"`
}

// FriendshipDTO represents one friendship row.
type FriendshipDTO struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	AddresseeID string `json:"addressee_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// FriendRequestRequest sends a friend request to another user.
type FriendRequestRequest struct {
	FriendID string `json:"friend_id"`
}

// PollDTO represents a community poll with live tallies.
type PollDTO struct {
	ID        string          `json:"id"`
	CreatorID string          `json:"creator_id"`
	Question  string          `json:"question"`
	Options   []PollOptionDTO `json:"options"`
	CreatedAt string          `json:"created_at"`
	ClosesAt  *string         `json:"closes_at,omitempty"`
	Open      bool            `json:"open"`
}

// PollOptionDTO is one selectable answer.
type PollOptionDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CreatePollRequest opens a poll with at least two option labels.
type CreatePollRequest struct {
	CreatorID string   `json:"creator_id"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	ClosesAt  *string  `json:"closes_at,omitempty"`
}

// CastVoteRequest records a user's choice. A second vote replaces the first.
type CastVoteRequest struct {
	UserID   string `json:"user_id"`
	OptionID string `json:"option_id"`
}

// TallyDTO is the current vote count for one option.
type TallyDTO struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toSessionDTO(s session.Session) SessionDTO {
	dto := SessionDTO{
		ID:             s.ID,
		UserID:         s.UserID,
		Description:    s.Description,
		StartTime:      s.StartTime.UTC().Format(time.RFC3339),
		InitialBalance: s.InitialBalance.String(),
		CurrentBalance: s.CurrentBalance().String(),
		Active:         s.Active(),
		SessionLog:     s.SessionLog,
		Events:         make([]EventDTO, 0, len(s.Events)),
	}
	if s.EndTime != nil {
		end := s.EndTime.UTC().Format(time.RFC3339)
		dto.EndTime = &end
	}
	for _, e := range s.Events {
		dto.Events = append(dto.Events, toEventDTO(e))
	}
	return dto
}

func toEventDTO(e ledger.Event) EventDTO {
	return EventDTO{
		ID:          e.ID,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
		Type:        string(e.Type),
		Amount:      e.Amount.String(),
		Description: e.Description,
	}
}

func toStatsDTO(st ledger.Stats, elapsed time.Duration) StatsDTO {
	return StatsDTO{
		TotalEarnings:  st.TotalEarnings.String(),
		TotalSpend:     st.TotalSpend.String(),
		SessionProfit:  st.SessionProfit.String(),
		FinalBalance:   st.FinalBalance.String(),
		ProfitPerHour:  st.ProfitPerHour.String(),
		ElapsedSeconds: int64(elapsed / time.Second),
	}
}

func toTimelineDTOs(points []ledger.TimelinePoint) []TimelinePointDTO {
	dtos := make([]TimelinePointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, TimelinePointDTO{
			Timestamp:   p.Timestamp.UTC().Format(time.RFC3339),
			Balance:     p.Balance.String(),
			Type:        string(p.Type),
			Amount:      p.Amount.String(),
			Delta:       p.Delta.String(),
			Description: p.Description,
		})
	}
	return dtos
}

func toChartDTOs(points []ledger.ChartPoint) []ChartPointDTO {
	dtos := make([]ChartPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, ChartPointDTO{
			ElapsedSeconds: p.ElapsedSeconds,
			Balance:        p.Balance.String(),
			Type:           string(p.Type),
			Amount:         p.Amount.String(),
			Description:    p.Description,
		})
	}
	return dtos
}

func toEntryDTO(e social.JournalEntry) JournalEntryDTO {
	return JournalEntryDTO{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Body:      e.Body,
		ImageKey:  e.ImageKey,
		SessionID: e.SessionID,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toFriendshipDTO(f social.Friendship) FriendshipDTO {
	return FriendshipDTO{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPollDTO(p social.Poll, now time.Time) PollDTO {
	dto := PollDTO{
		ID:        p.ID,
		CreatorID: p.CreatorID,
		Question:  p.Question,
		Options:   make([]PollOptionDTO, 0, len(p.Options)),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		Open:      p.Open(now),
	}
	if p.ClosesAt != nil {
		closes := p.ClosesAt.UTC().Format(time.RFC3339)
		dto.ClosesAt = &closes
	}
	for _, o := range p.Options {
		dto.Options = append(dto.Options, PollOptionDTO{ID: o.ID, Label: o.Label})
	}
	return dto
}

func toTallyDTOs(tallies []social.Tally) []TallyDTO {
	dtos := make([]TallyDTO, 0, len(tallies))
	for _, t := range tallies {
		dtos = append(dtos, TallyDTO{OptionID: t.OptionID, Label: t.Label, Count: t.Count})
	}
	return dtos
}

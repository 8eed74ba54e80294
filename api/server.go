/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the browser frontend
  5. Metrics:    Prometheus request counts and latency

ROUTE GROUPS:
  /api/users/*      Per-user sessions, journal, friends, SSE feed
  /api/sessions/*   Session detail, events, stats, chart, end
  /api/journal/*    Journal entry detail
  /api/friends/*    Friend request resolution
  /api/polls/*      Community voting
  /metrics          Prometheus scrape endpoint
  /health           Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(Metrics)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Per-user routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/sessions", h.ListSessions)
			r.Post("/sessions", h.CreateSession)
			r.Get("/sessions/active", h.ActiveSession)
			r.Get("/feed", h.Hub.ServeFeed)

			r.Get("/journal", h.ListEntries)
			r.Post("/journal", h.CreateEntry)

			r.Get("/friends", h.ListFriends)
			r.Post("/friends", h.RequestFriend)
			r.Delete("/friends/{friendID}", h.RemoveFriend)
		})

		// Session routes
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/", h.RenameSession)
			r.Delete("/", h.DeleteSession)
			r.Get("/events", h.ListEvents)
			r.Post("/events", h.RecordEvent)
			r.Get("/timeline", h.Timeline)
			r.Get("/stats", h.Stats)
			r.Get("/chart", h.Chart)
			r.Post("/end", h.EndSession)
		})

		// Journal entry routes
		r.Route("/journal/{id}", func(r chi.Router) {
			r.Get("/", h.GetEntry)
			r.Put("/", h.UpdateEntry)
			r.Delete("/", h.DeleteEntry)
		})

		// Friend request resolution
		r.Route("/friends/{id}", func(r chi.Router) {
			r.Post("/accept", h.AcceptFriend)
			r.Post("/decline", h.DeclineFriend)
		})

		// Community voting
		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.ListPolls)
			r.Post("/", h.CreatePoll)
			r.Get("/{id}", h.GetPoll)
			r.Get("/{id}/results", h.PollResults)
			r.Post("/{id}/vote", h.CastVote)
		})
	})

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through the charm logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser front end

ROUTE GROUPS:
  /api/today, /api/call/*, /api/settings, /api/reset   Local timer
  /api/goals/*                                         Savings goals
  /api/sync, /api/nickname, /api/adjustments           Shared records
  /api/stats, /api/leaderboard                         Period views
  /healthz                                             Liveness

SECURITY NOTE:
  No authentication middleware. The server is meant to run on the
  worker's own machine; identity for shared writes comes from the
  identity provider, not from the HTTP caller.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows the default local front-end origins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/today", h.GetToday)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/reset", h.ResetEarnings)

		// Call routes
		r.Route("/call", func(r chi.Router) {
			r.Post("/start", h.StartCall)
			r.Post("/stop", h.StopCall)
			r.Post("/toggle", h.ToggleCall)
			r.Get("/stream", h.StreamCall)
		})

		// Goal routes
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.ListGoals)
			r.Post("/", h.CreateGoal)
			r.Delete("/{id}", h.DeleteGoal)
		})

		// Shared record routes
		r.Post("/sync", h.Sync)
		r.Get("/nickname", h.GetNickname)
		r.Put("/nickname", h.SetNickname)
		r.Post("/adjustments", h.CreateAdjustment)
		r.Get("/stats", h.GetStats)
		r.Get("/leaderboard", h.GetLeaderboard)
	})

	return r
}

// requestLogger logs one line per request at debug level, or warn for 5xx.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				}
				if ww.Status() >= http.StatusInternalServerError {
					logger.Warn("request", fields...)
					return
				}
				logger.Debug("request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

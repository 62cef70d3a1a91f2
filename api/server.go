/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend, origins from config
  5. Viewer:     X-Viewer-Role header into the request context

ROUTE GROUPS:
  /api/clients/{client}/*   Tenant-scoped capacity and budget views
  /api/scenarios/*          Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ViewerRoleHeader carries the caller's role, set by the auth proxy.
const ViewerRoleHeader = "X-Viewer-Role"

type viewerRoleKey struct{}

// ViewerRole returns the role stored by the viewer middleware.
func ViewerRole(ctx context.Context) string {
	role, _ := ctx.Value(viewerRoleKey{}).(string)
	return role
}

func viewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.ToLower(strings.TrimSpace(r.Header.Get(ViewerRoleHeader)))
		ctx := context.WithValue(r.Context(), viewerRoleKey{}, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ViewerRoleHeader},
		AllowCredentials: true,
	}))
	r.Use(viewer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/clients/{client}", func(r chi.Router) {
			r.Get("/team-capacity", h.TeamCapacity)
			r.Get("/people/{id}/capacity", h.PersonCapacity)
			r.Get("/holidays", h.ListHolidays)

			r.Get("/budget-execution", h.BudgetExecution)
			r.Route("/budget", func(r chi.Router) {
				r.Get("/adjustments", h.ListAdjustments)
				r.Post("/carryover", h.Carryover)
			})
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

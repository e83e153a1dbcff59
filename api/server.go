/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/operations/*   Operation lifecycle
  /api/deals/*        Per-deal operation history
  /api/payments/*     Payment balances
  /api/accounts       Chart of accounts

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/operations", func(r chi.Router) {
			r.Get("/", h.ListOperations)
			r.Post("/", h.RequestOperation)
			r.Get("/{id}", h.GetOperation)
			r.Post("/{id}/approve", h.ApproveOperation)
			r.Post("/{id}/reject", h.RejectOperation)
			r.Post("/{id}/execute", h.ExecuteOperation)
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/{id}/operations", h.OperationsByDeal)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/{id}/balance", h.PaymentBalance)
		})

		r.Get("/accounts", h.ListAccounts)
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*       Owning account records
  /api/investments/*    Lifecycle, valuation, reconciliation, ledger
  /api/withdrawals/*    Withdrawal settlement
  /api/payouts/*        Approval workflow
  /api/admin/*          Clock override (time machine)

SECURITY NOTE:
  Actor identity comes from X-Actor-ID / X-Actor-Role headers or request
  bodies. There is no authentication middleware; front the service with
  a gateway before exposing it.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
		})

		// Investment routes
		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.ListInvestments)
			r.Post("/", h.CreateInvestment)
			r.Get("/{id}", h.GetInvestment)
			r.Post("/{id}/submit", h.SubmitInvestment)
			r.Post("/{id}/transition", h.TransitionInvestment)
			r.Get("/{id}/valuation", h.GetValuation)
			r.Post("/{id}/reconcile", h.ReconcileInvestment)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Post("/{id}/withdrawal", h.QuoteWithdrawal)
			r.Post("/{id}/terminate", h.TerminateInvestment)
		})

		// Withdrawal routes
		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/{id}/finalize", h.FinalizeWithdrawal)
		})

		// Payout approval routes
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/pending", h.ListPendingPayouts)
			r.Post("/approve-batch", h.ApprovePayoutBatch)
			r.Post("/{id}/approve", h.ApprovePayout)
			r.Post("/{id}/reject", h.RejectPayout)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/clock", h.GetClock)
			r.Post("/clock", h.SetClock)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

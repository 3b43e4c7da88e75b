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
  /api/tenancies/*     Tenancy management and billing queries
  /api/invoices/*      Invoice lifecycle
  /api/utility-bills/* Metered utility billing
  /api/rooms/*         Per-room utility bill listing
  /api/admin/*         Bulk billing run and overdue sweep

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenancy routes
		r.Route("/tenancies", func(r chi.Router) {
			r.Get("/", h.ListTenancies)
			r.Post("/", h.CreateTenancy)
			r.Get("/{id}", h.GetTenancy)
			r.Get("/{id}/billing-status", h.GetBillingStatus)
			r.Get("/{id}/charges/preview", h.PreviewCharges)
			r.Get("/{id}/history", h.GetHistory)
			r.Get("/{id}/invoices", h.ListTenancyInvoices)
			r.Get("/{id}/summary", h.GetSummary)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/generate", h.GenerateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/pay", h.PayInvoice)
			r.Post("/{id}/cancel", h.CancelInvoice)
		})

		// Utility bill routes
		r.Route("/utility-bills", func(r chi.Router) {
			r.Post("/", h.CreateUtilityBill)
			r.Get("/{id}", h.GetUtilityBill)
			r.Post("/{id}/pay", h.PayUtilityBill)
		})
		r.Get("/rooms/{roomID}/utility-bills", h.ListRoomUtilityBills)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/billing-run", h.RunBilling)
			r.Post("/overdue-sweep", h.SweepOverdue)
		})
	})

	return r
}

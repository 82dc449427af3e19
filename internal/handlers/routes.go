package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)

	// WebSocket sits outside the timeout middleware
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Public API
		r.Get("/api/stats", h.handleGetStats)
		r.Get("/api/entries", h.handleGetBoard)
		r.Get("/api/entries/{id}/qr", h.handleEntryQR)

		// Payment and entry submission are throttled per client
		r.Group(func(r chi.Router) {
			r.Use(h.Limiter.Middleware)
			r.Post("/api/payment", h.handleAuthorize)
			r.Post("/api/entries", h.handleSubmitEntry)
			r.Post("/api/admin/login", h.handleLogin)
		})

		// Admin API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuthAPI)

			r.Post("/api/admin/logout", h.handleLogout)

			// Settings
			r.Get("/api/admin/settings", h.handleGetSettings)
			r.Patch("/api/admin/settings", h.handleUpdateSettings)

			// Entries
			r.Get("/api/admin/entries", h.handleListEntries)
			r.Post("/api/admin/entries", h.handleCreateManualEntry)
			r.Get("/api/admin/entries/{id}", h.handleGetEntry)
			r.Post("/api/admin/entries/{id}/refund", h.handleRefundEntry)

			// Winner
			r.Post("/api/admin/draw", h.handleDrawWinner)
			r.Get("/api/admin/winner", h.handleGetWinner)
		})
	})

	return r
}

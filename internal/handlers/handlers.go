package handlers

import (
	"github.com/abrezinsky/chanceraffle/internal/auth"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/ratelimit"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Entries  services.EntryServicer
	Payments services.PaymentServicer
	Winner   services.WinnerServicer
	Settings services.SettingsServicer
	Stats    services.StatsServicer
	Auth     *auth.Auth
	Hub      *websocket.Hub
	Limiter  *ratelimit.Limiter
	Log      logger.Logger
}

// Deps groups the services the handlers call
type Deps struct {
	Entries  services.EntryServicer
	Payments services.PaymentServicer
	Winner   services.WinnerServicer
	Settings services.SettingsServicer
	Stats    services.StatsServicer
}

// New creates a new Handlers instance. hub and limiter may be nil; without a
// hub the /ws route is not mounted and without a limiter nothing is throttled.
func New(log logger.Logger, deps Deps, adminAuth *auth.Auth, hub *websocket.Hub, limiter *ratelimit.Limiter) *Handlers {
	return &Handlers{
		Entries:  deps.Entries,
		Payments: deps.Payments,
		Winner:   deps.Winner,
		Settings: deps.Settings,
		Stats:    deps.Stats,
		Auth:     adminAuth,
		Hub:      hub,
		Limiter:  limiter,
		Log:      log,
	}
}

package handlers

import (
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// BoardResponse is the public view of taken numbers
type BoardResponse struct {
	Numbers []models.TakenNumber `json:"numbers"`
	Count   int                  `json:"count"`
}

// EntriesResponse is the admin entry listing
type EntriesResponse struct {
	Entries []models.Entry `json:"entries"`
	Count   int            `json:"count"`
}

// LoginResponse returns the admin token. The same token is also set as a
// cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status string `json:"status"`
}

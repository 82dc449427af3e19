package services

import (
	"context"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// OverflowServicer defines the interface for overflow window operations
type OverflowServicer interface {
	CheckAndArmOverflow(ctx context.Context) (bool, error)
	RemainingWindow(ctx context.Context) (time.Duration, bool, error)
}

// EntryServicer defines the interface for entry operations
type EntryServicer interface {
	SubmitEntry(ctx context.Context, contact models.Contact, authRef string) (*models.Entry, error)
	CreateManualEntry(ctx context.Context, in ManualEntry) (*models.Entry, error)
	RefundEntry(ctx context.Context, id string) (*models.Entry, error)
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	ListEntries(ctx context.Context) ([]models.Entry, error)
	ListTakenNumbers(ctx context.Context) ([]models.TakenNumber, error)
	TicketQR(ctx context.Context, id string) ([]byte, error)
	AuditStalePending(ctx context.Context, maxAge time.Duration) (int, error)
}

// PaymentServicer defines the interface for payment authorization
type PaymentServicer interface {
	Authorize(ctx context.Context, in AuthorizeInput) (*payment.Authorization, error)
}

// WinnerServicer defines the interface for the winner draw
type WinnerServicer interface {
	DrawWinner(ctx context.Context) (*DrawResult, error)
	GetWinner(ctx context.Context) (*models.Entry, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	Initialize(ctx context.Context, initial models.Settings) (bool, error)
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, patch SettingsPatch) (*models.Settings, error)
	SetBroadcaster(b Broadcaster)
}

// StatsServicer defines the interface for raffle statistics
type StatsServicer interface {
	GetStats(ctx context.Context) (*models.RaffleStats, error)
}

// Ensure concrete types implement interfaces
var (
	_ OverflowServicer = (*OverflowService)(nil)
	_ EntryServicer    = (*EntryService)(nil)
	_ PaymentServicer  = (*PaymentService)(nil)
	_ WinnerServicer   = (*WinnerService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
	_ StatsServicer    = (*StatsService)(nil)
)

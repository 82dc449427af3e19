package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// Ledger is the set of entry and settings operations that make up a unit of
// work. *Repository implements it both directly and inside WithTx.
type Ledger interface {
	LockSettings(ctx context.Context) error
	GetSettings(ctx context.Context) (*models.Settings, error)
	InitSettings(ctx context.Context, s models.Settings) (bool, error)
	UpdateSettings(ctx context.Context, s *models.Settings) error
	ArmOverflow(ctx context.Context, now time.Time) (bool, error)
	SetWinner(ctx context.Context, entryID string, at time.Time) error

	TakenNumbers(ctx context.Context) ([]int, error)
	CountTakenPrimary(ctx context.Context) (int, error)
	MaxOverflowNumber(ctx context.Context) (int, error)
	InsertEntry(ctx context.Context, e *models.Entry) error
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	UpdateEntryStatus(ctx context.Context, id string, from, to models.EntryStatus, at time.Time) error
	ListConfirmedEntries(ctx context.Context) ([]models.Entry, error)
}

// LedgerStore is a Ledger that can open transactions
type LedgerStore interface {
	Ledger
	WithTx(ctx context.Context, fn func(tx Ledger) error) error
}

// EntryReader serves read-only listings and counters
type EntryReader interface {
	ListEntries(ctx context.Context) ([]models.Entry, error)
	ListTakenNumbers(ctx context.Context) ([]models.TakenNumber, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Entry, error)
	CountActiveByKind(ctx context.Context) (map[models.EntryKind]int, error)
}

// AdminRepository defines admin account operations
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	UpsertAdmin(ctx context.Context, email, passwordHash string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	LedgerStore
	EntryReader
	AdminRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)

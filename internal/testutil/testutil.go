package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// DefaultSettings returns the settings row used by most tests: an active
// raffle with overflow allowed for the default 180 minutes.
func DefaultSettings() models.Settings {
	return models.Settings{
		CampaignName:            "Test Raffle",
		PrizeDescription:        "Test Prize",
		CashValue:               models.DefaultCashValueCents,
		IsActive:                true,
		OverflowEnabled:         true,
		OverflowDurationMinutes: models.DefaultOverflowMinutes,
		UpdatedAt:               time.Now().UTC(),
	}
}

// NewEmptyRepository creates a fresh in-memory repository with migrations
// applied and no settings row.
func NewEmptyRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// NewTestRepository creates a fresh in-memory repository whose settings row
// is initialized with DefaultSettings.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()
	return NewTestRepositoryWithSettings(t, DefaultSettings())
}

// NewTestRepositoryWithSettings creates a fresh in-memory repository with the
// given settings row.
func NewTestRepositoryWithSettings(t *testing.T, s models.Settings) *repository.Repository {
	t.Helper()

	repo := NewEmptyRepository(t)
	if _, err := repo.InitSettings(context.Background(), s); err != nil {
		t.Fatalf("failed to initialize settings: %v", err)
	}
	return repo
}

// SeedEntries inserts entries directly, bypassing allocation. Each number
// gets one entry of the given kind and status.
func SeedEntries(t *testing.T, repo repository.Ledger, kind models.EntryKind, status models.EntryStatus, numbers ...int) []models.Entry {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	entries := make([]models.Entry, 0, len(numbers))
	for _, n := range numbers {
		id := uuid.NewString()
		ref := "seed_" + id
		e := models.Entry{
			ID:             id,
			AssignedNumber: n,
			Kind:           kind,
			AmountCharged:  models.AmountForNumber(n),
			PaymentRef:     &ref,
			Status:         status,
			Contact: models.Contact{
				Name:  "Seed Participant",
				Email: "seed@example.com",
				Phone: "5550001111",
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.InsertEntry(ctx, &e); err != nil {
			t.Fatalf("failed to seed entry %d: %v", n, err)
		}
		entries = append(entries, e)
	}
	return entries
}

// FillPrimary seeds CONFIRMED primary entries for numbers 1..models.PrimaryPoolSize
// except the ones listed in skip.
func FillPrimary(t *testing.T, repo repository.Ledger, skip ...int) {
	t.Helper()

	skipped := make(map[int]bool, len(skip))
	for _, n := range skip {
		skipped[n] = true
	}
	numbers := make([]int, 0, models.PrimaryPoolSize)
	for n := 1; n <= models.PrimaryPoolSize; n++ {
		if !skipped[n] {
			numbers = append(numbers, n)
		}
	}
	SeedEntries(t, repo, models.KindPrimary, models.StatusConfirmed, numbers...)
}

package services

import (
	"context"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// StatsServiceRepository defines the repository methods needed by StatsService
type StatsServiceRepository interface {
	repository.Ledger
	repository.EntryReader
}

// StatsService summarizes the raffle for the public page
type StatsService struct {
	repo StatsServiceRepository
	now  func() time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(repo StatsServiceRepository) *StatsService {
	return &StatsService{repo: repo, now: time.Now}
}

// SetClock sets a custom time source (for testing)
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

// GetStats returns entry counts, pool state and the overflow countdown
func (s *StatsService) GetStats(ctx context.Context) (*models.RaffleStats, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, settingsError(err)
	}
	counts, err := s.repo.CountActiveByKind(ctx)
	if err != nil {
		return nil, err
	}
	heldPrimary, err := s.repo.CountTakenPrimary(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.RaffleStats{
		CampaignName:         settings.CampaignName,
		PrizeDescription:     settings.PrizeDescription,
		CashValue:            settings.CashValue,
		IsActive:             settings.IsActive,
		PrimaryEntriesCount:  counts[models.KindPrimary],
		OverflowEntriesCount: counts[models.KindOverflow],
		ManualEntriesCount:   counts[models.KindManual],
		PrimaryRemaining:     models.PrimaryPoolSize - heldPrimary,
		WinnerEntryID:        settings.WinnerEntryID,
	}
	stats.TotalEntries = stats.PrimaryEntriesCount + stats.OverflowEntriesCount + stats.ManualEntriesCount
	stats.IsPrimarySoldOut = stats.PrimaryRemaining <= 0

	if remaining, open := overflowRemaining(settings, s.now()); open {
		ms := remaining.Milliseconds()
		stats.IsOverflowActive = true
		stats.OverflowTimeRemaining = &ms
	}
	return stats, nil
}

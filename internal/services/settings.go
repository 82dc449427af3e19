package services

import (
	"context"
	"strings"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// maxOverflowMinutes caps the overflow window at one week
const maxOverflowMinutes = 7 * 24 * 60

// SettingsService handles raffle configuration
type SettingsService struct {
	log         logger.Logger
	repo        repository.LedgerStore
	broadcaster Broadcaster
	now         func() time.Time
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.LedgerStore) *SettingsService {
	return &SettingsService{log: log, repo: repo, now: time.Now}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SettingsService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock sets a custom time source (for testing)
func (s *SettingsService) SetClock(now func() time.Time) {
	s.now = now
}

// SettingsPatch holds the administrator-editable fields; nil means unchanged.
// The overflow start time and the winner can never be set here.
type SettingsPatch struct {
	CampaignName            *string
	PrizeDescription        *string
	CashValue               *int64
	IsActive                *bool
	OverflowEnabled         *bool
	OverflowDurationMinutes *int
}

// Initialize creates the settings row at raffle setup. It reports whether
// the row was created; an existing row is left untouched.
func (s *SettingsService) Initialize(ctx context.Context, initial models.Settings) (bool, error) {
	if err := validateSettings(&initial); err != nil {
		return false, err
	}
	initial.OverflowStartTime = nil
	initial.WinnerEntryID = nil
	initial.WinnerDrawnAt = nil
	initial.UpdatedAt = s.now().UTC()

	var created bool
	err := s.repo.WithTx(ctx, func(tx repository.Ledger) error {
		var err error
		created, err = tx.InitSettings(ctx, initial)
		return err
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("Raffle settings initialized", "campaign", initial.CampaignName,
			"active", initial.IsActive, "overflow_enabled", initial.OverflowEnabled,
			"overflow_minutes", initial.OverflowDurationMinutes)
	}
	return created, nil
}

// Get returns the current settings
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, settingsError(err)
	}
	return settings, nil
}

// Update applies a patch and returns the resulting settings
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (*models.Settings, error) {
	var updated *models.Settings
	err := s.repo.WithTx(ctx, func(tx repository.Ledger) error {
		if err := tx.LockSettings(ctx); err != nil {
			return err
		}
		current, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}

		applyPatch(current, patch)
		if err := validateSettings(current); err != nil {
			return err
		}
		current.UpdatedAt = s.now().UTC()
		if err := tx.UpdateSettings(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, settingsError(err)
	}

	s.log.Info("Raffle settings updated", "campaign", updated.CampaignName, "active", updated.IsActive,
		"overflow_enabled", updated.OverflowEnabled, "overflow_minutes", updated.OverflowDurationMinutes)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatsChanged()
	}
	return updated, nil
}

func applyPatch(s *models.Settings, p SettingsPatch) {
	if p.CampaignName != nil {
		s.CampaignName = strings.TrimSpace(*p.CampaignName)
	}
	if p.PrizeDescription != nil {
		s.PrizeDescription = strings.TrimSpace(*p.PrizeDescription)
	}
	if p.CashValue != nil {
		s.CashValue = *p.CashValue
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.OverflowEnabled != nil {
		s.OverflowEnabled = *p.OverflowEnabled
	}
	if p.OverflowDurationMinutes != nil {
		s.OverflowDurationMinutes = *p.OverflowDurationMinutes
	}
}

func validateSettings(s *models.Settings) error {
	if strings.TrimSpace(s.CampaignName) == "" {
		return errors.Validation("campaign name is required")
	}
	if strings.TrimSpace(s.PrizeDescription) == "" {
		return errors.Validation("prize description is required")
	}
	if s.CashValue < 0 {
		return errors.Validation("cash value cannot be negative")
	}
	if s.OverflowDurationMinutes < 1 || s.OverflowDurationMinutes > maxOverflowMinutes {
		return errors.Validationf("overflow duration must be between 1 and %d minutes", maxOverflowMinutes)
	}
	return nil
}

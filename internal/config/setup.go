package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// Setup is the raffle configuration applied when the settings row is first
// created
type Setup struct {
	CampaignName            string `toml:"campaign_name"`
	PrizeDescription        string `toml:"prize_description"`
	CashValueCents          int64  `toml:"cash_value_cents"`
	IsActive                bool   `toml:"is_active"`
	OverflowEnabled         bool   `toml:"overflow_enabled"`
	OverflowDurationMinutes int    `toml:"overflow_duration_minutes"`
}

// DefaultSetup returns the setup used when no file is given
func DefaultSetup() Setup {
	return Setup{
		CampaignName:            "Friendship Circle Chance Raffle",
		PrizeDescription:        "Luxury Rolex Watch",
		CashValueCents:          models.DefaultCashValueCents,
		IsActive:                true,
		OverflowEnabled:         false,
		OverflowDurationMinutes: models.DefaultOverflowMinutes,
	}
}

// LoadSetup reads a TOML setup file over the defaults. Keys missing from the
// file keep their default. An empty path returns the defaults.
func LoadSetup(path string) (Setup, error) {
	s := DefaultSetup()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read setup file: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse setup file %s: %w", path, err)
	}
	return s, nil
}

// Settings converts the setup into an initial settings row
func (s Setup) Settings(now time.Time) models.Settings {
	return models.Settings{
		CampaignName:            s.CampaignName,
		PrizeDescription:        s.PrizeDescription,
		CashValue:               s.CashValueCents,
		IsActive:                s.IsActive,
		OverflowEnabled:         s.OverflowEnabled,
		OverflowDurationMinutes: s.OverflowDurationMinutes,
		UpdatedAt:               now.UTC(),
	}
}

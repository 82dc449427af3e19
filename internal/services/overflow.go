package services

import (
	"context"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// OverflowService arms the overflow window and reports its remaining time.
// Expiry is computed on read; nothing closes the window.
type OverflowService struct {
	log  logger.Logger
	repo repository.LedgerStore
	now  func() time.Time
}

// NewOverflowService creates a new OverflowService
func NewOverflowService(log logger.Logger, repo repository.LedgerStore) *OverflowService {
	return &OverflowService{log: log, repo: repo, now: time.Now}
}

// SetClock sets a custom time source (for testing)
func (s *OverflowService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckAndArmOverflow arms the overflow window if every primary number is
// held and the window has never been armed. It reports whether this call
// armed it; later calls are no-ops.
func (s *OverflowService) CheckAndArmOverflow(ctx context.Context) (bool, error) {
	var armed bool
	err := s.repo.WithTx(ctx, func(tx repository.Ledger) error {
		if err := tx.LockSettings(ctx); err != nil {
			return err
		}
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if settings.OverflowStartTime != nil {
			return nil
		}

		held, err := tx.CountTakenPrimary(ctx)
		if err != nil {
			return err
		}
		if held < models.PrimaryPoolSize {
			return nil
		}

		armed, err = tx.ArmOverflow(ctx, s.now().UTC())
		return err
	})
	if err != nil {
		return false, settingsError(err)
	}
	if armed {
		s.log.Info("Primary pool sold out, overflow window armed")
	}
	return armed, nil
}

// RemainingWindow returns the time left in the overflow window. The second
// result is false when the window is not armed, disabled, or already expired.
func (s *OverflowService) RemainingWindow(ctx context.Context) (time.Duration, bool, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return 0, false, settingsError(err)
	}
	remaining, open := overflowRemaining(settings, s.now())
	return remaining, open, nil
}

func overflowRemaining(settings *models.Settings, now time.Time) (time.Duration, bool) {
	if !settings.OverflowOpenAt(now) {
		return 0, false
	}
	deadline, _ := settings.OverflowDeadline()
	return deadline.Sub(now), true
}

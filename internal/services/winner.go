package services

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// WinnerService draws the single raffle winner
type WinnerService struct {
	log         logger.Logger
	repo        repository.LedgerStore
	dispatcher  *Dispatcher
	broadcaster Broadcaster
	randReader  io.Reader // for testing: defaults to crypto/rand.Reader
	now         func() time.Time
}

// NewWinnerService creates a new WinnerService
func NewWinnerService(log logger.Logger, repo repository.LedgerStore) *WinnerService {
	return &WinnerService{
		log:        log,
		repo:       repo,
		randReader: rand.Reader,
		now:        time.Now,
	}
}

// SetRandReader sets a custom random reader (for testing)
func (s *WinnerService) SetRandReader(reader io.Reader) {
	s.randReader = reader
}

// SetClock sets a custom time source (for testing)
func (s *WinnerService) SetClock(now func() time.Time) {
	s.now = now
}

// SetDispatcher sets where the winner notice is sent
func (s *WinnerService) SetDispatcher(d *Dispatcher) {
	s.dispatcher = d
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *WinnerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// DrawResult is the outcome of a draw request
type DrawResult struct {
	Entry        *models.Entry `json:"winner"`
	DrawnAt      time.Time     `json:"drawn_at"`
	AlreadyDrawn bool          `json:"already_drawn"`
}

// DrawWinner picks one CONFIRMED entry uniformly at random and records it.
// Once a winner is recorded every later call returns that same winner with
// AlreadyDrawn set. The confirmed set is read and the winner written in one
// transaction, so an entry confirmed after the draw can never be chosen.
func (s *WinnerService) DrawWinner(ctx context.Context) (*DrawResult, error) {
	var (
		result   *DrawResult
		settings *models.Settings
	)
	err := s.repo.WithTx(ctx, func(tx repository.Ledger) error {
		if err := tx.LockSettings(ctx); err != nil {
			return err
		}
		var err error
		settings, err = tx.GetSettings(ctx)
		if err != nil {
			return err
		}

		if settings.WinnerEntryID != nil {
			winner, err := tx.GetEntry(ctx, *settings.WinnerEntryID)
			if err != nil {
				return fmt.Errorf("load recorded winner: %w", err)
			}
			result = &DrawResult{Entry: winner, AlreadyDrawn: true}
			if settings.WinnerDrawnAt != nil {
				result.DrawnAt = *settings.WinnerDrawnAt
			}
			return nil
		}

		confirmed, err := tx.ListConfirmedEntries(ctx)
		if err != nil {
			return err
		}
		if len(confirmed) == 0 {
			return ErrNoConfirmedEntries
		}

		i, err := randomIndex(s.randReader, len(confirmed))
		if err != nil {
			return err
		}
		winner := confirmed[i]
		drawnAt := s.now().UTC()
		if err := tx.SetWinner(ctx, winner.ID, drawnAt); err != nil {
			if stderrors.Is(err, repository.ErrWinnerAlreadySet) {
				s.log.Error("Winner written concurrently despite settings lock", "entry_id", winner.ID)
				return errors.Internal(err)
			}
			return err
		}
		result = &DrawResult{Entry: &winner, DrawnAt: drawnAt}
		return nil
	})
	if err != nil {
		return nil, settingsError(err)
	}
	if result.AlreadyDrawn {
		return result, nil
	}

	s.log.Info("Winner drawn", "entry_id", result.Entry.ID, "number", result.Entry.AssignedNumber)
	s.dispatcher.WinnerDrawn(notify.WinnerNotice{
		EntryID:          result.Entry.ID,
		Contact:          result.Entry.Contact,
		Number:           result.Entry.AssignedNumber,
		CampaignName:     settings.CampaignName,
		PrizeDescription: settings.PrizeDescription,
		CashValue:        settings.CashValue,
		DrawnAt:          result.DrawnAt,
	})
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatsChanged()
	}
	return result, nil
}

// GetWinner returns the recorded winner, or nil if none has been drawn
func (s *WinnerService) GetWinner(ctx context.Context) (*models.Entry, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, settingsError(err)
	}
	if settings.WinnerEntryID == nil {
		return nil, nil
	}
	return s.repo.GetEntry(ctx, *settings.WinnerEntryID)
}

package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/repository"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// EntryServiceRepository defines the repository methods needed by EntryService
type EntryServiceRepository interface {
	repository.LedgerStore
	repository.EntryReader
}

// EntryService binds allocated numbers to payments and manages entries
type EntryService struct {
	log         logger.Logger
	repo        EntryServiceRepository
	gateway     payment.Gateway
	overflow    OverflowServicer
	allocator   *Allocator
	dispatcher  *Dispatcher
	broadcaster Broadcaster
	baseURL     string
	now         func() time.Time
}

// NewEntryService creates a new EntryService
func NewEntryService(log logger.Logger, repo EntryServiceRepository, gateway payment.Gateway, overflow OverflowServicer, allocator *Allocator) *EntryService {
	return &EntryService{
		log:       log,
		repo:      repo,
		gateway:   gateway,
		overflow:  overflow,
		allocator: allocator,
		now:       time.Now,
	}
}

// SetDispatcher sets where confirmation notices are sent
func (s *EntryService) SetDispatcher(d *Dispatcher) {
	s.dispatcher = d
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *EntryService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetBaseURL sets the public URL ticket QR codes point to
func (s *EntryService) SetBaseURL(url string) {
	s.baseURL = strings.TrimSuffix(url, "/")
}

// SetClock sets a custom time source (for testing)
func (s *EntryService) SetClock(now func() time.Time) {
	s.now = now
}

// ManualEntry is an administrator-created entry. Number 0 means the lowest
// free primary number.
type ManualEntry struct {
	Contact models.Contact
	Number  int
	Amount  int64
	Notes   string
}

// SubmitEntry allocates a number for a held payment authorization, captures
// exactly the number's amount and confirms the entry.
//
// If no number can be allocated the authorization is released and the
// allocation outcome returned. If capture fails the entry is marked FAILED,
// which frees its number, and ErrCaptureFailed is returned.
func (s *EntryService) SubmitEntry(ctx context.Context, contact models.Contact, authRef string) (*models.Entry, error) {
	if strings.TrimSpace(authRef) == "" {
		return nil, errors.Validation("payment reference is required")
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	var (
		entry    *models.Entry
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
		if !settings.IsActive {
			return ErrRaffleInactive
		}

		alloc, err := s.allocator.Allocate(ctx, tx)
		if err != nil {
			return err
		}

		ref := authRef
		e := &models.Entry{
			ID:             uuid.NewString(),
			AssignedNumber: alloc.Number,
			Kind:           alloc.Kind,
			AmountCharged:  alloc.Amount(),
			PaymentRef:     &ref,
			Status:         models.StatusPending,
			Contact:        contact,
			CreatedAt:      alloc.IssuedAt,
			UpdatedAt:      alloc.IssuedAt,
		}
		if err := tx.InsertEntry(ctx, e); err != nil {
			if stderrors.Is(err, repository.ErrDuplicateNumber) {
				s.log.Error("Allocator issued a number that is already active", "number", alloc.Number, "error", err)
				return errors.Internal(err)
			}
			return err
		}
		entry = e
		return nil
	})
	// Ledger updates after this point must outlive a cancelled request.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		err = settingsError(err)
		s.releaseAuthorization(bg, authRef, err)
		return nil, err
	}

	s.log.Debug("Number allocated", "entry_id", entry.ID, "number", entry.AssignedNumber, "kind", entry.Kind)

	if err := s.gateway.Capture(ctx, authRef, entry.AmountCharged); err != nil {
		s.log.Warn("Payment capture failed", "entry_id", entry.ID, "number", entry.AssignedNumber,
			"amount", entry.AmountCharged, "error", err)
		if uerr := s.repo.UpdateEntryStatus(bg, entry.ID, models.StatusPending, models.StatusFailed, s.now().UTC()); uerr != nil {
			s.log.Error("Failed to mark entry as failed", "entry_id", entry.ID, "error", uerr)
		}
		return nil, ErrCaptureFailed
	}

	confirmedAt := s.now().UTC()
	if err := s.repo.UpdateEntryStatus(bg, entry.ID, models.StatusPending, models.StatusConfirmed, confirmedAt); err != nil {
		s.log.Error("Payment captured but entry could not be confirmed", "entry_id", entry.ID,
			"payment_ref", authRef, "error", err)
		return nil, fmt.Errorf("confirm entry: %w", err)
	}
	entry.Status = models.StatusConfirmed
	entry.UpdatedAt = confirmedAt

	s.log.Info("Entry confirmed", "entry_id", entry.ID, "number", entry.AssignedNumber,
		"kind", entry.Kind, "amount", entry.AmountCharged)

	if entry.Kind == models.KindPrimary {
		if _, err := s.overflow.CheckAndArmOverflow(bg); err != nil {
			s.log.Error("Overflow check failed", "entry_id", entry.ID, "error", err)
		}
	}

	s.dispatcher.EntryConfirmed(notify.EntryNotice{
		EntryID:          entry.ID,
		Contact:          entry.Contact,
		Number:           entry.AssignedNumber,
		Kind:             entry.Kind,
		Amount:           entry.AmountCharged,
		CampaignName:     settings.CampaignName,
		PrizeDescription: settings.PrizeDescription,
		ConfirmedAt:      confirmedAt,
	})
	s.broadcast()
	return entry, nil
}

func (s *EntryService) releaseAuthorization(ctx context.Context, authRef string, reason error) {
	if err := s.gateway.Cancel(ctx, authRef); err != nil {
		s.log.Warn("Failed to release payment authorization", "payment_ref", authRef, "reason", reason, "error", err)
		return
	}
	s.log.Info("Payment authorization released", "payment_ref", authRef, "reason", reason)
}

// CreateManualEntry records a CONFIRMED entry without payment. The
// administrator may choose any free primary number; this skips the random
// draw on purpose.
func (s *EntryService) CreateManualEntry(ctx context.Context, in ManualEntry) (*models.Entry, error) {
	if err := validateContact(in.Contact); err != nil {
		return nil, err
	}
	if in.Amount < models.MinChargeCents || in.Amount > models.MaxChargeCents {
		return nil, errors.Validationf("amount must be between %d and %d cents", models.MinChargeCents, models.MaxChargeCents)
	}
	if in.Number < 0 || in.Number > models.PrimaryPoolSize {
		return nil, errors.Validationf("number must be between 1 and %d", models.PrimaryPoolSize)
	}

	var entry *models.Entry
	err := s.repo.WithTx(ctx, func(tx repository.Ledger) error {
		if err := tx.LockSettings(ctx); err != nil {
			return err
		}
		if _, err := tx.GetSettings(ctx); err != nil {
			return err
		}
		taken, err := tx.TakenNumbers(ctx)
		if err != nil {
			return err
		}

		number := in.Number
		free := freePrimaryNumbers(taken)
		if number == 0 {
			if len(free) == 0 {
				return ErrExhausted
			}
			number = free[0]
		} else if !containsNumber(free, number) {
			return ErrNumberTaken
		}

		now := s.now().UTC()
		e := &models.Entry{
			ID:             uuid.NewString(),
			AssignedNumber: number,
			Kind:           models.KindManual,
			AmountCharged:  in.Amount,
			Status:         models.StatusConfirmed,
			Contact:        in.Contact,
			Notes:          strings.TrimSpace(in.Notes),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertEntry(ctx, e); err != nil {
			if stderrors.Is(err, repository.ErrDuplicateNumber) {
				return ErrNumberTaken
			}
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, settingsError(err)
	}

	s.log.Info("Manual entry created", "entry_id", entry.ID, "number", entry.AssignedNumber, "amount", entry.AmountCharged)

	if _, err := s.overflow.CheckAndArmOverflow(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("Overflow check failed", "entry_id", entry.ID, "error", err)
	}
	s.broadcast()
	return entry, nil
}

// RefundEntry returns a confirmed entry's payment and marks it REFUNDED.
// Manual entries have no payment and skip the gateway. The drawn winner
// cannot be refunded.
func (s *EntryService) RefundEntry(ctx context.Context, id string) (*models.Entry, error) {
	entry, err := s.checkRefundable(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if entry.Kind != models.KindManual && entry.PaymentRef != nil {
		if err := s.gateway.Refund(ctx, *entry.PaymentRef, entry.AmountCharged); err != nil {
			s.log.Warn("Refund failed at payment gateway", "entry_id", id, "error", err)
			return nil, errors.Unavailable("payment refund failed", err)
		}
	}

	now := s.now().UTC()
	bg := context.WithoutCancel(ctx)
	err = s.repo.WithTx(bg, func(tx repository.Ledger) error {
		if err := tx.LockSettings(bg); err != nil {
			return err
		}
		if _, err := s.checkRefundable(bg, tx, id); err != nil {
			return err
		}
		return tx.UpdateEntryStatus(bg, id, models.StatusConfirmed, models.StatusRefunded, now)
	})
	if err != nil {
		s.log.Error("Entry refunded at gateway but not in ledger", "entry_id", id, "error", err)
		return nil, err
	}

	entry.Status = models.StatusRefunded
	entry.UpdatedAt = now
	s.log.Info("Entry refunded", "entry_id", id, "number", entry.AssignedNumber, "amount", entry.AmountCharged)
	s.broadcast()
	return entry, nil
}

func (s *EntryService) checkRefundable(ctx context.Context, ledger repository.Ledger, id string) (*models.Entry, error) {
	entry, err := ledger.GetEntry(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("entry not found")
		}
		return nil, err
	}
	if entry.Status != models.StatusConfirmed {
		return nil, errors.Conflictf("entry is %s; only confirmed entries can be refunded", strings.ToLower(string(entry.Status)))
	}
	settings, err := ledger.GetSettings(ctx)
	if err != nil {
		return nil, settingsError(err)
	}
	if settings.WinnerEntryID != nil && *settings.WinnerEntryID == id {
		return nil, errors.Conflict("the drawn winner cannot be refunded")
	}
	return entry, nil
}

// GetEntry returns one entry
func (s *EntryService) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NotFound("entry not found")
	}
	return entry, err
}

// ListEntries returns every entry, newest first
func (s *EntryService) ListEntries(ctx context.Context) ([]models.Entry, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

// ListTakenNumbers returns the public board of occupied numbers
func (s *EntryService) ListTakenNumbers(ctx context.Context) ([]models.TakenNumber, error) {
	taken, err := s.repo.ListTakenNumbers(ctx)
	if err != nil {
		return nil, err
	}
	if taken == nil {
		taken = []models.TakenNumber{}
	}
	return taken, nil
}

// TicketQR renders a PNG QR code linking to a confirmed entry's ticket page
func (s *EntryService) TicketQR(ctx context.Context, id string) ([]byte, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.StatusConfirmed {
		return nil, errors.Conflict("ticket is only available for confirmed entries")
	}
	if s.baseURL == "" {
		return nil, errors.Unavailable("base URL not configured", nil)
	}
	ticketURL := fmt.Sprintf("%s/entries/%s", s.baseURL, entry.ID)
	return qrcode.Encode(ticketURL, qrcode.Medium, 256)
}

// AuditStalePending logs PENDING entries older than maxAge and returns how
// many were found. It changes nothing: the capture outcome owns the transition.
func (s *EntryService) AuditStalePending(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	for _, e := range stale {
		ref := ""
		if e.PaymentRef != nil {
			ref = *e.PaymentRef
		}
		s.log.Warn("Entry pending longer than expected", "entry_id", e.ID, "number", e.AssignedNumber,
			"payment_ref", ref, "created_at", e.CreatedAt)
	}
	return len(stale), nil
}

func (s *EntryService) broadcast() {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatsChanged()
	}
}

func validateContact(c models.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Validation("name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return errors.Validation("email is required")
	}
	return nil
}

func containsNumber(sorted []int, n int) bool {
	for _, v := range sorted {
		if v == n {
			return true
		}
		if v > n {
			return false
		}
	}
	return false
}

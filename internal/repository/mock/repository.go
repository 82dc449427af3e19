package mock

import (
	"context"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// Injected errors apply both to direct calls and to the Ledger handed to
// WithTx callbacks, so transactional paths can be failed at any step.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.InsertEntryError = errors.New("database error")
//	svc := services.NewEntryService(log, mockRepo, gateway, overflow, allocator)
//	_, err := svc.SubmitEntry(ctx, contact, "auth_1")
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Transaction Errors =====
	WithTxError       error
	LockSettingsError error

	// ===== Settings Errors =====
	GetSettingsError    error
	InitSettingsError   error
	UpdateSettingsError error
	ArmOverflowError    error
	SetWinnerError      error

	// ===== Entry Errors =====
	TakenNumbersError         error
	CountTakenPrimaryError    error
	MaxOverflowNumberError    error
	InsertEntryError          error
	GetEntryError             error
	UpdateEntryStatusError    error
	ListConfirmedEntriesError error
	ListEntriesError          error
	ListTakenNumbersError     error
	ListStalePendingError     error
	CountActiveByKindError    error

	// ===== Admin Errors =====
	GetAdminByEmailError error
	UpsertAdminError     error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// WithTx runs fn against an error-injecting view of the real transaction
func (m *Repository) WithTx(ctx context.Context, fn func(tx repository.Ledger) error) error {
	if m.WithTxError != nil {
		return m.WithTxError
	}
	return m.FullRepository.WithTx(ctx, func(tx repository.Ledger) error {
		return fn(&ledger{Ledger: tx, m: m})
	})
}

// ledger applies the parent's injected errors to a transaction-scoped Ledger
type ledger struct {
	repository.Ledger
	m *Repository
}

// ===== Ledger overrides (direct) =====

func (m *Repository) LockSettings(ctx context.Context) error {
	return (&ledger{Ledger: m.FullRepository, m: m}).LockSettings(ctx)
}

func (m *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).GetSettings(ctx)
}

func (m *Repository) InitSettings(ctx context.Context, s models.Settings) (bool, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).InitSettings(ctx, s)
}

func (m *Repository) UpdateSettings(ctx context.Context, s *models.Settings) error {
	return (&ledger{Ledger: m.FullRepository, m: m}).UpdateSettings(ctx, s)
}

func (m *Repository) ArmOverflow(ctx context.Context, now time.Time) (bool, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).ArmOverflow(ctx, now)
}

func (m *Repository) SetWinner(ctx context.Context, entryID string, at time.Time) error {
	return (&ledger{Ledger: m.FullRepository, m: m}).SetWinner(ctx, entryID, at)
}

func (m *Repository) TakenNumbers(ctx context.Context) ([]int, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).TakenNumbers(ctx)
}

func (m *Repository) CountTakenPrimary(ctx context.Context) (int, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).CountTakenPrimary(ctx)
}

func (m *Repository) MaxOverflowNumber(ctx context.Context) (int, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).MaxOverflowNumber(ctx)
}

func (m *Repository) InsertEntry(ctx context.Context, e *models.Entry) error {
	return (&ledger{Ledger: m.FullRepository, m: m}).InsertEntry(ctx, e)
}

func (m *Repository) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).GetEntry(ctx, id)
}

func (m *Repository) UpdateEntryStatus(ctx context.Context, id string, from, to models.EntryStatus, at time.Time) error {
	return (&ledger{Ledger: m.FullRepository, m: m}).UpdateEntryStatus(ctx, id, from, to, at)
}

func (m *Repository) ListConfirmedEntries(ctx context.Context) ([]models.Entry, error) {
	return (&ledger{Ledger: m.FullRepository, m: m}).ListConfirmedEntries(ctx)
}

// ===== Ledger overrides (transaction-scoped) =====

func (l *ledger) LockSettings(ctx context.Context) error {
	if l.m.LockSettingsError != nil {
		return l.m.LockSettingsError
	}
	return l.Ledger.LockSettings(ctx)
}

func (l *ledger) GetSettings(ctx context.Context) (*models.Settings, error) {
	if l.m.GetSettingsError != nil {
		return nil, l.m.GetSettingsError
	}
	return l.Ledger.GetSettings(ctx)
}

func (l *ledger) InitSettings(ctx context.Context, s models.Settings) (bool, error) {
	if l.m.InitSettingsError != nil {
		return false, l.m.InitSettingsError
	}
	return l.Ledger.InitSettings(ctx, s)
}

func (l *ledger) UpdateSettings(ctx context.Context, s *models.Settings) error {
	if l.m.UpdateSettingsError != nil {
		return l.m.UpdateSettingsError
	}
	return l.Ledger.UpdateSettings(ctx, s)
}

func (l *ledger) ArmOverflow(ctx context.Context, now time.Time) (bool, error) {
	if l.m.ArmOverflowError != nil {
		return false, l.m.ArmOverflowError
	}
	return l.Ledger.ArmOverflow(ctx, now)
}

func (l *ledger) SetWinner(ctx context.Context, entryID string, at time.Time) error {
	if l.m.SetWinnerError != nil {
		return l.m.SetWinnerError
	}
	return l.Ledger.SetWinner(ctx, entryID, at)
}

func (l *ledger) TakenNumbers(ctx context.Context) ([]int, error) {
	if l.m.TakenNumbersError != nil {
		return nil, l.m.TakenNumbersError
	}
	return l.Ledger.TakenNumbers(ctx)
}

func (l *ledger) CountTakenPrimary(ctx context.Context) (int, error) {
	if l.m.CountTakenPrimaryError != nil {
		return 0, l.m.CountTakenPrimaryError
	}
	return l.Ledger.CountTakenPrimary(ctx)
}

func (l *ledger) MaxOverflowNumber(ctx context.Context) (int, error) {
	if l.m.MaxOverflowNumberError != nil {
		return 0, l.m.MaxOverflowNumberError
	}
	return l.Ledger.MaxOverflowNumber(ctx)
}

func (l *ledger) InsertEntry(ctx context.Context, e *models.Entry) error {
	if l.m.InsertEntryError != nil {
		return l.m.InsertEntryError
	}
	return l.Ledger.InsertEntry(ctx, e)
}

func (l *ledger) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	if l.m.GetEntryError != nil {
		return nil, l.m.GetEntryError
	}
	return l.Ledger.GetEntry(ctx, id)
}

func (l *ledger) UpdateEntryStatus(ctx context.Context, id string, from, to models.EntryStatus, at time.Time) error {
	if l.m.UpdateEntryStatusError != nil {
		return l.m.UpdateEntryStatusError
	}
	return l.Ledger.UpdateEntryStatus(ctx, id, from, to, at)
}

func (l *ledger) ListConfirmedEntries(ctx context.Context) ([]models.Entry, error) {
	if l.m.ListConfirmedEntriesError != nil {
		return nil, l.m.ListConfirmedEntriesError
	}
	return l.Ledger.ListConfirmedEntries(ctx)
}

// ===== Reader overrides =====

func (m *Repository) ListEntries(ctx context.Context) ([]models.Entry, error) {
	if m.ListEntriesError != nil {
		return nil, m.ListEntriesError
	}
	return m.FullRepository.ListEntries(ctx)
}

func (m *Repository) ListTakenNumbers(ctx context.Context) ([]models.TakenNumber, error) {
	if m.ListTakenNumbersError != nil {
		return nil, m.ListTakenNumbersError
	}
	return m.FullRepository.ListTakenNumbers(ctx)
}

func (m *Repository) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Entry, error) {
	if m.ListStalePendingError != nil {
		return nil, m.ListStalePendingError
	}
	return m.FullRepository.ListStalePending(ctx, cutoff)
}

func (m *Repository) CountActiveByKind(ctx context.Context) (map[models.EntryKind]int, error) {
	if m.CountActiveByKindError != nil {
		return nil, m.CountActiveByKindError
	}
	return m.FullRepository.CountActiveByKind(ctx)
}

// ===== Admin overrides =====

func (m *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	if m.GetAdminByEmailError != nil {
		return nil, m.GetAdminByEmailError
	}
	return m.FullRepository.GetAdminByEmail(ctx, email)
}

func (m *Repository) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	if m.UpsertAdminError != nil {
		return m.UpsertAdminError
	}
	return m.FullRepository.UpsertAdmin(ctx, email, passwordHash)
}

var _ repository.FullRepository = (*Repository)(nil)

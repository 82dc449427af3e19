package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/repository/mock"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/internal/testutil"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// ===== SubmitEntry =====

func TestSubmitEntry_Validation(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	ctx := context.Background()

	tests := []struct {
		name    string
		contact models.Contact
		ref     string
	}{
		{"missing payment ref", contact("ann"), " "},
		{"missing name", models.Contact{Email: "a@example.com"}, "auth_1"},
		{"missing email", models.Contact{Name: "Ann"}, "auth_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.entries.SubmitEntry(ctx, tt.contact, tt.ref)
			if apperrors.KindOf(err) != apperrors.ErrValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSubmitEntry_PrimaryEntryNotice(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	h.allocator.SetRandReader(zeroReader{})

	entry, err := h.submit(t, "bob")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	if entry.AssignedNumber != 1 || entry.AmountCharged != 100 {
		t.Errorf("expected #1 for 100 cents, got #%d for %d", entry.AssignedNumber, entry.AmountCharged)
	}

	h.dispatcher.Wait()
	notices := h.recorder.Entries()
	if len(notices) != 1 {
		t.Fatalf("expected 1 entry notice, got %d", len(notices))
	}
	n := notices[0]
	if n.EntryID != entry.ID || n.Number != 1 || n.Amount != 100 || n.Kind != models.KindPrimary {
		t.Errorf("unexpected notice: %+v", n)
	}
	if n.CampaignName != "Test Raffle" || n.Contact.Email != "bob@example.com" {
		t.Errorf("expected campaign and contact on notice, got %+v", n)
	}
}

func TestSubmitEntry_InactiveRaffleReleasesHold(t *testing.T) {
	settings := testutil.DefaultSettings()
	settings.IsActive = false
	repo := testutil.NewTestRepositoryWithSettings(t, settings)
	h := newHarness(t, repo)

	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(context.Background(), contact("cat"), ref)
	if !errors.Is(err, services.ErrRaffleInactive) {
		t.Fatalf("expected ErrRaffleInactive, got %v", err)
	}
	if !h.gateway.Cancelled(ref) {
		t.Error("expected the authorization to be released")
	}

	entries, _ := repo.ListEntries(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestSubmitEntry_NotInitialized(t *testing.T) {
	repo := testutil.NewEmptyRepository(t)
	h := newHarness(t, repo)

	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(context.Background(), contact("dan"), ref)
	if !errors.Is(err, services.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if !h.gateway.Cancelled(ref) {
		t.Error("expected the authorization to be released")
	}
}

func TestSubmitEntry_SoldOutWithoutOverflowReleasesHold(t *testing.T) {
	settings := testutil.DefaultSettings()
	settings.OverflowEnabled = false
	repo := testutil.NewTestRepositoryWithSettings(t, settings)
	testutil.FillPrimary(t, repo)
	h := newHarness(t, repo)

	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(context.Background(), contact("eve"), ref)
	if !errors.Is(err, services.ErrOverflowNotEnabled) {
		t.Fatalf("expected ErrOverflowNotEnabled, got %v", err)
	}
	re, ok := services.AsRaffleError(err)
	if !ok || !re.Retryable {
		t.Error("expected a retryable raffle error")
	}
	if !h.gateway.Cancelled(ref) {
		t.Error("expected the authorization to be released")
	}
	if h.gateway.CaptureCount() != 0 {
		t.Error("expected no capture")
	}
}

func TestSubmitEntry_ExpiredOverflowWindow(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo)
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if _, err := repo.ArmOverflow(context.Background(), start); err != nil {
		t.Fatalf("ArmOverflow failed: %v", err)
	}
	h := newHarness(t, repo)
	h.setClock(start.Add(181 * time.Minute))

	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(context.Background(), contact("fay"), ref)
	if !errors.Is(err, services.ErrOverflowExpired) {
		t.Fatalf("expected ErrOverflowExpired, got %v", err)
	}
	if re, _ := services.AsRaffleError(err); re.Retryable {
		t.Error("expired window should not be retryable")
	}
	if !h.gateway.Cancelled(ref) {
		t.Error("expected the authorization to be released")
	}
}

func TestSubmitEntry_OverflowEntry(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo)
	h := newHarness(t, repo)

	first, err := h.submit(t, "gus")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	if first.AssignedNumber != 361 || first.Kind != models.KindOverflow || first.AmountCharged != 36100 {
		t.Errorf("expected OVERFLOW #361 for 36100, got %s #%d for %d", first.Kind, first.AssignedNumber, first.AmountCharged)
	}

	second, err := h.submit(t, "hal")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	if second.AssignedNumber != 362 {
		t.Errorf("expected #362, got #%d", second.AssignedNumber)
	}
}

func TestSubmitEntry_LastPrimaryArmsOverflow(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo, 50)
	h := newHarness(t, repo)
	now := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	h.setClock(now)

	entry, err := h.submit(t, "ivy")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	if entry.AssignedNumber != 50 {
		t.Errorf("expected the last free number 50, got %d", entry.AssignedNumber)
	}

	settings, _ := repo.GetSettings(context.Background())
	if settings.OverflowStartTime == nil || !settings.OverflowStartTime.Equal(now) {
		t.Errorf("expected overflow armed at %v, got %v", now, settings.OverflowStartTime)
	}
}

func TestSubmitEntry_CaptureFailureFreesNumber(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	h.allocator.SetRandReader(zeroReader{})
	ctx := context.Background()

	h.gateway.SetCaptureError(payment.ErrDeclined)
	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(ctx, contact("jon"), ref)
	if !errors.Is(err, services.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if _, captured := h.gateway.Captured(ref); captured {
		t.Error("failed capture must not be recorded")
	}

	entries, _ := repo.ListEntries(ctx)
	if len(entries) != 1 || entries[0].Status != models.StatusFailed || entries[0].AssignedNumber != 1 {
		t.Fatalf("expected one FAILED entry for #1, got %+v", entries)
	}

	h.gateway.SetCaptureError(nil)
	retry, err := h.submit(t, "jon")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.AssignedNumber != 1 {
		t.Errorf("expected freed number 1 to be issued again, got %d", retry.AssignedNumber)
	}

	h.dispatcher.Wait()
	if got := len(h.recorder.Entries()); got != 1 {
		t.Errorf("expected a notice only for the confirmed entry, got %d", got)
	}
}

// A processor that refuses captures above the hold declines every overflow
// number; the number is burned and the next participant gets the following one.
func TestSubmitEntry_OverflowCaptureAboveHoldDeclined(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo)
	h := newHarness(t, repo, payment.WithCaptureLimit())

	_, err := h.submit(t, "kim")
	if !errors.Is(err, services.ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}

	highest, err := repo.MaxOverflowNumber(context.Background())
	if err != nil {
		t.Fatalf("MaxOverflowNumber failed: %v", err)
	}
	if highest != 361 {
		t.Errorf("expected failed overflow number 361 to stay issued, got max %d", highest)
	}
}

func TestSubmitEntry_InsertErrorReleasesHold(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	m := mock.NewRepository(repo)
	m.InsertEntryError = errors.New("disk full")
	h := newHarness(t, m)

	ref := h.gateway.MustAuthorize()
	_, err := h.entries.SubmitEntry(context.Background(), contact("lee"), ref)
	if err == nil {
		t.Fatal("expected error")
	}
	if !h.gateway.Cancelled(ref) {
		t.Error("expected the authorization to be released")
	}
}

func TestSubmitEntry_ReleaseFailureKeepsAllocationError(t *testing.T) {
	settings := testutil.DefaultSettings()
	settings.IsActive = false
	repo := testutil.NewTestRepositoryWithSettings(t, settings)
	h := newHarness(t, repo, payment.WithCancelError(errors.New("gateway timeout")))

	_, err := h.submit(t, "max")
	if !errors.Is(err, services.ErrRaffleInactive) {
		t.Errorf("expected ErrRaffleInactive, got %v", err)
	}
}

func TestSubmitEntry_ConfirmErrorAfterCapture(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	m := mock.NewRepository(repo)
	m.UpdateEntryStatusError = errors.New("connection reset")
	h := newHarness(t, m)

	_, err := h.submit(t, "ned")
	if err == nil {
		t.Fatal("expected error")
	}
	if h.gateway.CaptureCount() != 1 {
		t.Errorf("expected the capture to have happened, got %d", h.gateway.CaptureCount())
	}

	entries, _ := repo.ListEntries(context.Background())
	if len(entries) != 1 || entries[0].Status != models.StatusPending {
		t.Errorf("expected the entry to remain PENDING for audit, got %+v", entries)
	}
}

func TestSubmitEntry_NotificationFailureIsIgnored(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	failing := notify.NewRecorder(errors.New("smtp unavailable"))
	d := services.NewDispatcher(logger.New(), failing)
	h.entries.SetDispatcher(d)

	if _, err := h.submit(t, "oli"); err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	d.Wait()
	if got := len(failing.Entries()); got != 1 {
		t.Errorf("expected a delivery attempt, got %d", got)
	}
}

// ===== CreateManualEntry =====

// Manual entries let the administrator place a number by hand. This is the
// one path that skips the random draw.
func TestCreateManualEntry_ChosenNumberBypassesRandomDraw(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)

	entry, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("pat"),
		Number:  77,
		Amount:  5000,
		Notes:   "  paid cash at the gala  ",
	})
	if err != nil {
		t.Fatalf("CreateManualEntry failed: %v", err)
	}
	if entry.AssignedNumber != 77 || entry.Kind != models.KindManual || entry.Status != models.StatusConfirmed {
		t.Errorf("expected CONFIRMED MANUAL #77, got %s %s #%d", entry.Status, entry.Kind, entry.AssignedNumber)
	}
	if entry.AmountCharged != 5000 {
		t.Errorf("expected recorded amount 5000, got %d", entry.AmountCharged)
	}
	if entry.PaymentRef != nil {
		t.Error("manual entries have no payment reference")
	}
	if entry.Notes != "paid cash at the gala" {
		t.Errorf("expected trimmed notes, got %q", entry.Notes)
	}
	if h.broadcaster.Count() != 1 {
		t.Errorf("expected one broadcast, got %d", h.broadcaster.Count())
	}
}

func TestCreateManualEntry_NumberTaken(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusPending, 12)
	h := newHarness(t, repo)

	_, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("quin"), Number: 12, Amount: 1200,
	})
	if !errors.Is(err, services.ErrNumberTaken) {
		t.Errorf("expected ErrNumberTaken, got %v", err)
	}
}

func TestCreateManualEntry_AutoAssignsLowestFree(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusConfirmed, 1, 2, 4)
	h := newHarness(t, repo)

	entry, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("ray"), Amount: 300,
	})
	if err != nil {
		t.Fatalf("CreateManualEntry failed: %v", err)
	}
	if entry.AssignedNumber != 3 {
		t.Errorf("expected lowest free number 3, got %d", entry.AssignedNumber)
	}
}

func TestCreateManualEntry_PoolFull(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo)
	h := newHarness(t, repo)

	_, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("sam"), Amount: 100,
	})
	if !errors.Is(err, services.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestCreateManualEntry_LastNumberArmsOverflow(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.FillPrimary(t, repo, 360)
	h := newHarness(t, repo)

	if _, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("tia"), Number: 360, Amount: 36000,
	}); err != nil {
		t.Fatalf("CreateManualEntry failed: %v", err)
	}

	settings, _ := repo.GetSettings(context.Background())
	if settings.OverflowStartTime == nil {
		t.Error("expected overflow window to be armed")
	}
}

func TestCreateManualEntry_Validation(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)

	tests := []struct {
		name string
		in   services.ManualEntry
	}{
		{"amount too small", services.ManualEntry{Contact: contact("u"), Amount: 99}},
		{"amount too large", services.ManualEntry{Contact: contact("u"), Amount: 36001}},
		{"overflow number", services.ManualEntry{Contact: contact("u"), Number: 361, Amount: 100}},
		{"negative number", services.ManualEntry{Contact: contact("u"), Number: -1, Amount: 100}},
		{"missing contact", services.ManualEntry{Amount: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.entries.CreateManualEntry(context.Background(), tt.in)
			if apperrors.KindOf(err) != apperrors.ErrValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

// ===== RefundEntry =====

func TestRefundEntry_PaidEntry(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	ctx := context.Background()

	entry, err := h.submit(t, "val")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}

	refunded, err := h.entries.RefundEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("RefundEntry failed: %v", err)
	}
	if refunded.Status != models.StatusRefunded {
		t.Errorf("expected REFUNDED, got %s", refunded.Status)
	}
	if !h.gateway.Refunded(*entry.PaymentRef) {
		t.Error("expected the payment to be refunded at the gateway")
	}

	taken, _ := repo.TakenNumbers(ctx)
	if len(taken) != 0 {
		t.Errorf("expected the refunded number to be free, got %v", taken)
	}
}

func TestRefundEntry_ManualEntrySkipsGateway(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo, payment.WithRefundError(errors.New("must not be called")))

	entry, err := h.entries.CreateManualEntry(context.Background(), services.ManualEntry{
		Contact: contact("wes"), Number: 9, Amount: 900,
	})
	if err != nil {
		t.Fatalf("CreateManualEntry failed: %v", err)
	}

	refunded, err := h.entries.RefundEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("RefundEntry failed: %v", err)
	}
	if refunded.Status != models.StatusRefunded {
		t.Errorf("expected REFUNDED, got %s", refunded.Status)
	}
}

func TestRefundEntry_WinnerCannotBeRefunded(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	ctx := context.Background()

	entry, err := h.submit(t, "xan")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}
	if _, err := h.winner.DrawWinner(ctx); err != nil {
		t.Fatalf("DrawWinner failed: %v", err)
	}

	_, err = h.entries.RefundEntry(ctx, entry.ID)
	if apperrors.KindOf(err) != apperrors.ErrConflict {
		t.Errorf("expected conflict, got %v", err)
	}
	if h.gateway.Refunded(*entry.PaymentRef) {
		t.Error("winner's payment must not be refunded")
	}
}

func TestRefundEntry_NotRefundable(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	failed := testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusFailed, 3)
	h := newHarness(t, repo)
	ctx := context.Background()

	if _, err := h.entries.RefundEntry(ctx, failed[0].ID); apperrors.KindOf(err) != apperrors.ErrConflict {
		t.Errorf("expected conflict for FAILED entry, got %v", err)
	}
	if _, err := h.entries.RefundEntry(ctx, "no-such-entry"); apperrors.KindOf(err) != apperrors.ErrNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRefundEntry_GatewayError(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo, payment.WithRefundError(errors.New("processor offline")))
	ctx := context.Background()

	entry, err := h.submit(t, "yul")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}

	_, err = h.entries.RefundEntry(ctx, entry.ID)
	if apperrors.KindOf(err) != apperrors.ErrUnavailable {
		t.Errorf("expected unavailable, got %v", err)
	}
	stored, _ := repo.GetEntry(ctx, entry.ID)
	if stored.Status != models.StatusConfirmed {
		t.Errorf("expected entry to stay CONFIRMED, got %s", stored.Status)
	}
}

// ===== Queries =====

func TestGetEntry_NotFound(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)

	_, err := h.entries.GetEntry(context.Background(), "missing")
	if apperrors.KindOf(err) != apperrors.ErrNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListEntries_EmptyIsNotNil(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)

	entries, err := h.entries.ListEntries(context.Background())
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if entries == nil {
		t.Error("expected empty slice, got nil")
	}

	taken, err := h.entries.ListTakenNumbers(context.Background())
	if err != nil {
		t.Fatalf("ListTakenNumbers failed: %v", err)
	}
	if taken == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestListTakenNumbers(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusConfirmed, 8)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusFailed, 9)
	testutil.SeedEntries(t, repo, models.KindManual, models.StatusConfirmed, 10)
	h := newHarness(t, repo)

	taken, err := h.entries.ListTakenNumbers(context.Background())
	if err != nil {
		t.Fatalf("ListTakenNumbers failed: %v", err)
	}
	if len(taken) != 2 {
		t.Fatalf("expected 2 taken numbers, got %+v", taken)
	}
	if taken[0].Number != 8 || taken[1].Number != 10 || taken[1].Kind != models.KindManual {
		t.Errorf("unexpected taken numbers: %+v", taken)
	}
}

func TestListEntries_RepositoryError(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	m := mock.NewRepository(repo)
	m.ListEntriesError = errors.New("database error")
	m.ListTakenNumbersError = errors.New("database error")
	h := newHarness(t, m)

	if _, err := h.entries.ListEntries(context.Background()); err == nil {
		t.Error("expected ListEntries error")
	}
	if _, err := h.entries.ListTakenNumbers(context.Background()); err == nil {
		t.Error("expected ListTakenNumbers error")
	}
}

// ===== TicketQR =====

func TestTicketQR(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	h := newHarness(t, repo)
	ctx := context.Background()

	entry, err := h.submit(t, "zed")
	if err != nil {
		t.Fatalf("SubmitEntry failed: %v", err)
	}

	if _, err := h.entries.TicketQR(ctx, entry.ID); apperrors.KindOf(err) != apperrors.ErrUnavailable {
		t.Errorf("expected unavailable without a base URL, got %v", err)
	}

	h.entries.SetBaseURL("https://raffle.example.org/")
	png, err := h.entries.TicketQR(ctx, entry.ID)
	if err != nil {
		t.Fatalf("TicketQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG image data")
	}
}

func TestTicketQR_RequiresConfirmedEntry(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	pending := testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusPending, 5)
	h := newHarness(t, repo)
	h.entries.SetBaseURL("https://raffle.example.org")

	_, err := h.entries.TicketQR(context.Background(), pending[0].ID)
	if apperrors.KindOf(err) != apperrors.ErrConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

// ===== AuditStalePending =====

func TestAuditStalePending(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusPending, 11)
	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusConfirmed, 12)
	h := newHarness(t, repo)
	h.entries.SetClock(func() time.Time { return time.Now().Add(time.Hour) })

	n, err := h.entries.AuditStalePending(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("AuditStalePending failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stale entry, got %d", n)
	}

	n, err = h.entries.AuditStalePending(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatalf("AuditStalePending failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no stale entries within two hours, got %d", n)
	}

	stored, _ := repo.ListEntries(context.Background())
	for _, e := range stored {
		if e.AssignedNumber == 11 && e.Status != models.StatusPending {
			t.Errorf("audit must not change status, got %s", e.Status)
		}
	}
}

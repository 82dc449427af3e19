package services_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/services"
)

func TestDispatcher_DeliversInBackground(t *testing.T) {
	rec := notify.NewRecorder(nil)
	d := services.NewDispatcher(logger.New(), rec)

	for i := 1; i <= 3; i++ {
		d.EntryConfirmed(notify.EntryNotice{EntryID: fmt.Sprintf("e%d", i), Number: i})
	}
	d.WinnerDrawn(notify.WinnerNotice{EntryID: "e2", Number: 2, DrawnAt: time.Now()})
	d.Wait()

	if got := len(rec.Entries()); got != 3 {
		t.Errorf("expected 3 entry notices, got %d", got)
	}
	if got := len(rec.Winners()); got != 1 {
		t.Errorf("expected 1 winner notice, got %d", got)
	}
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *services.Dispatcher
	d.EntryConfirmed(notify.EntryNotice{EntryID: "e1"})
	d.WinnerDrawn(notify.WinnerNotice{EntryID: "e1"})
	d.Wait()
}

func TestAsRaffleError(t *testing.T) {
	wrapped := fmt.Errorf("allocate: %w", services.ErrOverflowExpired)

	re, ok := services.AsRaffleError(wrapped)
	if !ok {
		t.Fatal("expected a raffle error in the chain")
	}
	if re.Code != "OVERFLOW_EXPIRED" || re.Retryable {
		t.Errorf("unexpected raffle error: %+v", re)
	}

	if _, ok := services.AsRaffleError(errors.New("plain")); ok {
		t.Error("plain errors are not raffle errors")
	}
}

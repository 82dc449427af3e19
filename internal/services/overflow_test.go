package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/internal/testutil"
)

func TestOverflowService_CheckAndArm(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewOverflowService(logger.New(), repo)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	testutil.FillPrimary(t, repo, 360)
	armed, err := svc.CheckAndArmOverflow(ctx)
	if err != nil {
		t.Fatalf("CheckAndArmOverflow failed: %v", err)
	}
	if armed {
		t.Error("must not arm while a primary number is free")
	}

	testutil.SeedEntries(t, repo, models.KindPrimary, models.StatusPending, 360)
	armed, err = svc.CheckAndArmOverflow(ctx)
	if err != nil {
		t.Fatalf("CheckAndArmOverflow failed: %v", err)
	}
	if !armed {
		t.Error("expected the window to be armed once every number is held")
	}

	remaining, open, err := svc.RemainingWindow(ctx)
	if err != nil {
		t.Fatalf("RemainingWindow failed: %v", err)
	}
	if !open || remaining != 180*time.Minute {
		t.Errorf("expected 180m remaining, got %v (open=%v)", remaining, open)
	}

	svc.SetClock(func() time.Time { return now.Add(time.Hour) })
	armed, _ = svc.CheckAndArmOverflow(ctx)
	if armed {
		t.Error("the window can be armed only once")
	}
	settings, _ := repo.GetSettings(ctx)
	if !settings.OverflowStartTime.Equal(now) {
		t.Errorf("start time moved to %v", settings.OverflowStartTime)
	}
}

func TestOverflowService_RemainingWindowClosed(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewOverflowService(logger.New(), repo)

	_, open, err := svc.RemainingWindow(context.Background())
	if err != nil {
		t.Fatalf("RemainingWindow failed: %v", err)
	}
	if open {
		t.Error("an unarmed window is not open")
	}

	if _, _, err := services.NewOverflowService(logger.New(), testutil.NewEmptyRepository(t)).RemainingWindow(context.Background()); !errors.Is(err, services.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

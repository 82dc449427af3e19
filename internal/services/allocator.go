package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

// Allocation is a number chosen for a new entry
type Allocation struct {
	Number   int
	Kind     models.EntryKind
	IssuedAt time.Time
}

// Amount returns the charge bound to the allocated number, in cents
func (a Allocation) Amount() int64 {
	return models.AmountForNumber(a.Number)
}

// Allocator picks entry numbers. It holds no allocation state of its own:
// every decision is made from the ledger handed to Allocate.
type Allocator struct {
	log        logger.Logger
	randReader io.Reader // for testing: defaults to crypto/rand.Reader
	now        func() time.Time
}

// NewAllocator creates a new Allocator
func NewAllocator(log logger.Logger) *Allocator {
	return &Allocator{
		log:        log,
		randReader: rand.Reader,
		now:        time.Now,
	}
}

// SetRandReader sets a custom random reader (for testing)
func (a *Allocator) SetRandReader(reader io.Reader) {
	a.randReader = reader
}

// SetClock sets a custom time source (for testing)
func (a *Allocator) SetClock(now func() time.Time) {
	a.now = now
}

// Allocate chooses the next number. It must run inside the caller's ledger
// transaction, and the caller must insert the PENDING row in that same
// transaction.
//
// Free primary numbers are drawn uniformly at random. Once none remain,
// overflow numbers are issued sequentially from 361 while the overflow window
// is open. The window is armed here if this is the first allocation to find
// the primary pool exhausted.
func (a *Allocator) Allocate(ctx context.Context, tx repository.Ledger) (Allocation, error) {
	now := a.now().UTC()
	taken, err := tx.TakenNumbers(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("read taken numbers: %w", err)
	}

	if free := freePrimaryNumbers(taken); len(free) > 0 {
		i, err := randomIndex(a.randReader, len(free))
		if err != nil {
			return Allocation{}, err
		}
		return Allocation{Number: free[i], Kind: models.KindPrimary, IssuedAt: now}, nil
	}

	settings, err := tx.GetSettings(ctx)
	if err != nil {
		return Allocation{}, settingsError(err)
	}
	if !settings.OverflowEnabled {
		return Allocation{}, ErrOverflowNotEnabled
	}

	if settings.OverflowStartTime == nil {
		armed, err := tx.ArmOverflow(ctx, now)
		if err != nil {
			return Allocation{}, fmt.Errorf("arm overflow: %w", err)
		}
		if armed {
			a.log.Info("Primary pool exhausted, overflow window armed", "start", now,
				"duration_minutes", settings.OverflowDurationMinutes)
		}
		settings, err = tx.GetSettings(ctx)
		if err != nil {
			return Allocation{}, settingsError(err)
		}
	}
	if !settings.OverflowOpenAt(now) {
		return Allocation{}, ErrOverflowExpired
	}

	highest, err := tx.MaxOverflowNumber(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("read overflow numbers: %w", err)
	}
	return Allocation{Number: highest + 1, Kind: models.KindOverflow, IssuedAt: now}, nil
}

// freePrimaryNumbers returns the primary numbers not in taken, ascending
func freePrimaryNumbers(taken []int) []int {
	var held [models.PrimaryPoolSize + 1]bool
	for _, n := range taken {
		if n >= 1 && n <= models.PrimaryPoolSize {
			held[n] = true
		}
	}
	free := make([]int, 0, models.PrimaryPoolSize)
	for n := 1; n <= models.PrimaryPoolSize; n++ {
		if !held[n] {
			free = append(free, n)
		}
	}
	return free
}

// randomIndex returns a uniform index in [0, n)
func randomIndex(reader io.Reader, n int) (int, error) {
	i, err := rand.Int(reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random index: %w", err)
	}
	return int(i.Int64()), nil
}

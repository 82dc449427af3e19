package services

import (
	"context"
	"sync"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/notify"
)

// Broadcaster defines the interface for pushing live updates to clients
type Broadcaster interface {
	BroadcastStatsChanged()
}

// notifyTimeout bounds a single background notification
const notifyTimeout = 30 * time.Second

// Dispatcher sends notifications in the background. Failures are logged and
// never reach the request that triggered them. A nil *Dispatcher drops
// everything.
type Dispatcher struct {
	log      logger.Logger
	notifier notify.Notifier
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering to notifier
func NewDispatcher(log logger.Logger, notifier notify.Notifier) *Dispatcher {
	return &Dispatcher{log: log, notifier: notifier}
}

// EntryConfirmed queues a confirmation notice
func (d *Dispatcher) EntryConfirmed(n notify.EntryNotice) {
	if d == nil {
		return
	}
	d.run("entry confirmation", func(ctx context.Context) error {
		return d.notifier.NotifyEntryConfirmed(ctx, n)
	}, "entry_id", n.EntryID)
}

// WinnerDrawn queues a winner notice
func (d *Dispatcher) WinnerDrawn(n notify.WinnerNotice) {
	if d == nil {
		return
	}
	d.run("winner notification", func(ctx context.Context) error {
		return d.notifier.NotifyWinner(ctx, n)
	}, "entry_id", n.EntryID)
}

func (d *Dispatcher) run(what string, fn func(ctx context.Context) error, args ...any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Warn("Failed to send "+what, append(args, "error", err)...)
		}
	}()
}

// Wait blocks until queued notifications have finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

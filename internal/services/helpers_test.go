package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/notify"
	"github.com/abrezinsky/chanceraffle/internal/services"
	"github.com/abrezinsky/chanceraffle/pkg/payment"
)

// zeroReader always yields zero bytes, so every random pick is index 0
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// failingReader returns an error on every read
type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

// countingBroadcaster counts stats-changed broadcasts
type countingBroadcaster struct {
	n atomic.Int32
}

func (b *countingBroadcaster) BroadcastStatsChanged() {
	b.n.Add(1)
}

func (b *countingBroadcaster) Count() int {
	return int(b.n.Load())
}

// raffleHarness wires the entry-path services against one repository
type raffleHarness struct {
	gateway     *payment.MockGateway
	recorder    *notify.Recorder
	dispatcher  *services.Dispatcher
	allocator   *services.Allocator
	overflow    *services.OverflowService
	entries     *services.EntryService
	winner      *services.WinnerService
	broadcaster *countingBroadcaster
}

func newHarness(t *testing.T, repo services.EntryServiceRepository, opts ...payment.MockOption) *raffleHarness {
	t.Helper()
	log := logger.New()

	h := &raffleHarness{
		gateway:     payment.NewMockGateway(opts...),
		recorder:    notify.NewRecorder(nil),
		allocator:   services.NewAllocator(log),
		overflow:    services.NewOverflowService(log, repo),
		winner:      services.NewWinnerService(log, repo),
		broadcaster: &countingBroadcaster{},
	}
	h.dispatcher = services.NewDispatcher(log, h.recorder)
	h.entries = services.NewEntryService(log, repo, h.gateway, h.overflow, h.allocator)
	h.entries.SetDispatcher(h.dispatcher)
	h.entries.SetBroadcaster(h.broadcaster)
	h.winner.SetDispatcher(h.dispatcher)
	h.winner.SetBroadcaster(h.broadcaster)
	t.Cleanup(h.dispatcher.Wait)
	return h
}

// setClock pins every clock in the harness to now
func (h *raffleHarness) setClock(now time.Time) {
	clock := func() time.Time { return now }
	h.allocator.SetClock(clock)
	h.overflow.SetClock(clock)
	h.entries.SetClock(clock)
	h.winner.SetClock(clock)
}

func (h *raffleHarness) submit(t *testing.T, name string) (*models.Entry, error) {
	t.Helper()
	return h.entries.SubmitEntry(context.Background(), contact(name), h.gateway.MustAuthorize())
}

func contact(name string) models.Contact {
	return models.Contact{Name: name, Email: name + "@example.com", Phone: "5551234567"}
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

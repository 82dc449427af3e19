package notify

import (
	"context"
	"sync"
)

// Recorder keeps every notification it receives. Tests use it in place of
// real delivery.
type Recorder struct {
	mu      sync.Mutex
	entries []EntryNotice
	winners []WinnerNotice
	err     error
}

// NewRecorder creates a Recorder that returns err from every call
func NewRecorder(err error) *Recorder {
	return &Recorder{err: err}
}

func (r *Recorder) NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, n)
	return r.err
}

func (r *Recorder) NotifyWinner(ctx context.Context, n WinnerNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners = append(r.winners, n)
	return r.err
}

// Entries returns a copy of the recorded entry notices
func (r *Recorder) Entries() []EntryNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EntryNotice(nil), r.entries...)
}

// Winners returns a copy of the recorded winner notices
func (r *Recorder) Winners() []WinnerNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WinnerNotice(nil), r.winners...)
}

var _ Notifier = (*Recorder)(nil)

package stream

import (
	"sync"
	"time"

	"github.com/gosuda/waitfor/reaction"
)

// Deadline is a one-shot cancellable timer. It is always raced in a select
// against a subscription channel; whichever side wins, the loser is
// cancelled before the winner is acted on, so a late firing never reaches
// already-decided state.
type Deadline struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

// NewDeadline arms a timer that fires once after d. A zero or negative
// duration is a configuration error, not an instant timeout.
func NewDeadline(d time.Duration) (*Deadline, error) {
	if d <= 0 {
		return nil, reaction.ErrNonPositiveTimeout
	}
	return &Deadline{timer: time.NewTimer(d)}, nil
}

// Expire returns the channel the deadline fires on.
func (dl *Deadline) Expire() <-chan time.Time {
	return dl.timer.C
}

// Cancel stops the timer so it never fires. Idempotent.
func (dl *Deadline) Cancel() {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	dl.cancelled = true
	dl.timer.Stop()
}

// Reset re-arms the deadline for another d. Used by the menu's idle-timeout
// mode after each accepted navigation event; a no-op once cancelled.
func (dl *Deadline) Reset(d time.Duration) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.cancelled {
		return
	}
	dl.timer.Reset(d)
}

package waiter

import (
	"time"
)

const DefaultInterval = 1 * time.Second

// Predicate is re-evaluated on every poll.
type Predicate func() bool

// Waiter polls a predicate on a fixed interval. There is no cancellation;
// a wait is bounded only by its timeout.
type Waiter struct {
	Interval time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

func NewWaiter(interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Waiter{
		Interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// NewWaiterWithClock is NewWaiter with injected time functions.
func NewWaiterWithClock(interval time.Duration, now func() time.Time, sleep func(time.Duration)) *Waiter {
	w := NewWaiter(interval)
	w.now = now
	w.sleep = sleep
	return w
}

// WaitUntil evaluates predicate once, then once per interval, and reports
// whether it held before timeout elapsed.
func (w *Waiter) WaitUntil(timeout time.Duration, predicate Predicate) bool {
	start := w.now()
	if predicate() {
		return true
	}
	for w.now().Sub(start) < timeout {
		w.sleep(w.Interval)
		if predicate() {
			return true
		}
	}
	return false
}

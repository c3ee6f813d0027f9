// Package backoff implements a bounded retry schedule as an explicit state
// machine: a fixed attempt budget, an exponential delay schedule with a cap,
// and a terminal give-up state. Callers drive it with Next and decide what
// "give up" means (usually: keep partial data and move on).
package backoff

import "time"

// Schedule tracks retry state for one operation.
type Schedule struct {
	attempt int
	max     int
	base    time.Duration
	cap     time.Duration
}

// New returns a schedule allowing max total attempts. base is the delay
// before the second attempt; it doubles each retry up to cap.
func New(max int, base, cap time.Duration) *Schedule {
	if max < 1 {
		max = 1
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if cap < base {
		cap = base
	}
	return &Schedule{max: max, base: base, cap: cap}
}

// Next records a failed attempt. It returns the delay to wait before the
// next attempt, or ok=false when the attempt budget is exhausted.
func (s *Schedule) Next() (delay time.Duration, ok bool) {
	s.attempt++
	if s.attempt >= s.max {
		return 0, false
	}
	d := s.base << (s.attempt - 1)
	if d > s.cap || d <= 0 {
		d = s.cap
	}
	return d, true
}

// Attempts returns how many failed attempts have been recorded.
func (s *Schedule) Attempts() int { return s.attempt }

// Sleep waits for d or until done is closed/cancelled, whichever comes
// first. It returns false if the wait was interrupted.
func Sleep(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}

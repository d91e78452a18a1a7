package temporal

import "time"

// DefaultDebounce is the minimum spacing between accepted state changes.
const DefaultDebounce = 150 * time.Millisecond

// Debouncer enforces a minimum wall-clock interval between accepted
// transitions. The zero value accepts the first transition immediately and
// uses a zero delay.
type Debouncer struct {
	delay time.Duration
	last  time.Time
}

// NewDebouncer creates a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Allow reports whether a transition at now may be accepted. An accepted
// transition stores now; a rejected one leaves the stored time untouched.
func (d *Debouncer) Allow(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) <= d.delay {
		return false
	}
	d.last = now
	return true
}

// Last returns the time of the last accepted transition, zero if none.
func (d *Debouncer) Last() time.Time {
	return d.last
}

// Delay returns the configured interval.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Reset forgets the last accepted transition.
func (d *Debouncer) Reset() {
	d.last = time.Time{}
}

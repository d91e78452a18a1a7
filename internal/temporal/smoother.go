// Package temporal holds the frame-to-frame filters shared by every
// exercise: a majority-vote smoother and a transition debouncer.
package temporal

// Smoother keeps the last N raw classifications and reports the majority.
type Smoother struct {
	size    int
	history []bool
}

// NewSmoother creates a Smoother with room for size entries. Sizes below 1
// are raised to 1.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{size: size, history: make([]bool, 0, size)}
}

// Push records a raw classification and returns the smoothed value: true
// when at least ceil(N/2) of the entries in the window are true.
func (s *Smoother) Push(v bool) bool {
	if len(s.history) == s.size {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.size-1]
	}
	s.history = append(s.history, v)
	return s.Value()
}

// Value returns the current smoothed classification without recording.
func (s *Smoother) Value() bool {
	n := 0
	for _, v := range s.history {
		if v {
			n++
		}
	}
	return n >= s.Threshold()
}

// Threshold is the number of true entries needed for a true output.
func (s *Smoother) Threshold() int {
	return (s.size + 1) / 2
}

// Len returns the number of entries currently held.
func (s *Smoother) Len() int {
	return len(s.history)
}

// Size returns the configured bound.
func (s *Smoother) Size() int {
	return s.size
}

// Reset empties the history.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
}

package exercise

import (
	"time"

	"github.com/meltforce/repcoach/internal/pose"
	"github.com/meltforce/repcoach/internal/temporal"
)

// Clock returns the current wall-clock time.
type Clock func() time.Time

// Session is the mutable state of one exercise attempt. It is not safe for
// concurrent use; callers serialize frames per session.
type Session struct {
	kind      Kind
	params    Params
	clock     Clock
	smoother  *temporal.Smoother
	debouncer *temporal.Debouncer

	state     State
	count     int
	holdStart time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithParams replaces the default parameters for the session's kind.
func WithParams(p Params) Option {
	return func(s *Session) { s.params = p }
}

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSession starts a fresh session for kind.
func NewSession(kind Kind, opts ...Option) *Session {
	s := &Session{
		kind:   kind,
		params: DefaultParams(kind),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.smoother = temporal.NewSmoother(s.params.History)
	s.debouncer = temporal.NewDebouncer(s.params.Debounce)
	return s
}

// Result is the outcome of processing one frame.
type Result struct {
	Correct  bool               `json:"correct"`
	Observed bool               `json:"observed"`
	State    State              `json:"state,omitempty"`
	Side     pose.Side          `json:"side,omitempty"`
	Counted  bool               `json:"counted,omitempty"`
	Count    int                `json:"count"`
	Hold     time.Duration      `json:"-"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Process classifies one frame. A nil frame means no body was detected.
// Frames that cannot be judged leave the session untouched and return a
// Result with Correct and Observed both false.
func (s *Session) Process(f *pose.Frame) Result {
	if s == nil {
		return Result{}
	}
	now := s.clock()

	obs := Classify(s.kind, f, s.params)
	if !obs.Observed {
		return s.result(now, false, false, false, obs)
	}

	smoothed := s.smoother.Push(obs.Correct)
	counted := false
	if s.kind.IsHold() {
		s.hold(smoothed, now)
	} else {
		counted = s.advance(smoothed, now)
	}
	return s.result(now, smoothed, true, counted, obs)
}

// advance moves the rest/target state machine and reports whether a
// repetition was credited.
func (s *Session) advance(smoothed bool, now time.Time) bool {
	rest, target := s.kind.states()
	next := rest
	if smoothed {
		next = target
	}

	switch {
	case s.state == StateUnknown:
		s.state = next
		return false
	case s.state == next:
		return false
	case !s.debouncer.Allow(now):
		return false
	}

	s.state = next
	if next == target {
		s.count++
		return true
	}
	return false
}

func (s *Session) hold(smoothed bool, now time.Time) {
	switch {
	case smoothed && s.holdStart.IsZero():
		s.holdStart = now
		s.state = StateHolding
	case !smoothed:
		s.holdStart = time.Time{}
		s.state = StateResting
	}
}

func (s *Session) result(now time.Time, correct, observed, counted bool, obs Observation) Result {
	return Result{
		Correct:  correct,
		Observed: observed,
		State:    s.state,
		Side:     obs.Side,
		Counted:  counted,
		Count:    s.count,
		Hold:     s.holdAt(now),
		Metrics:  obs.Metrics,
	}
}

// Kind returns the exercise this session classifies.
func (s *Session) Kind() Kind {
	if s == nil {
		return ""
	}
	return s.kind
}

// Params returns the parameters in effect.
func (s *Session) Params() Params {
	if s == nil {
		return Params{}
	}
	return s.params
}

// State returns the current discrete state.
func (s *Session) State() State {
	if s == nil {
		return StateUnknown
	}
	return s.state
}

// Count returns the repetitions credited so far.
func (s *Session) Count() int {
	if s == nil {
		return 0
	}
	return s.count
}

// Holding reports whether a hold is currently running.
func (s *Session) Holding() bool {
	return s != nil && !s.holdStart.IsZero()
}

// HoldDuration returns the time since the current hold began, or zero when
// no hold is running.
func (s *Session) HoldDuration() time.Duration {
	if s == nil {
		return 0
	}
	return s.holdAt(s.clock())
}

// HoldDurationAt returns the length of the current hold as of t.
func (s *Session) HoldDurationAt(t time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return s.holdAt(t)
}

func (s *Session) holdAt(now time.Time) time.Duration {
	if s.holdStart.IsZero() {
		return 0
	}
	if d := now.Sub(s.holdStart); d > 0 {
		return d
	}
	return 0
}

// Reset returns the session to its initial state.
func (s *Session) Reset() {
	if s == nil {
		return
	}
	s.smoother.Reset()
	s.debouncer.Reset()
	s.state = StateUnknown
	s.count = 0
	s.holdStart = time.Time{}
}

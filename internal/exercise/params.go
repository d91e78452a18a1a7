package exercise

import (
	"time"

	"github.com/meltforce/repcoach/internal/temporal"
)

// Params holds the tunable values of one exercise classifier.
type Params struct {
	VisibilityThreshold float64       // Landmarks must be strictly above this to be trusted
	History             int           // Smoothing window length
	Debounce            time.Duration // Minimum spacing of accepted state changes (repetition exercises only)
}

// DefaultParams returns the production defaults for kind.
func DefaultParams(kind Kind) Params {
	p := Params{
		VisibilityThreshold: 0.6,
		History:             3,
		Debounce:            temporal.DefaultDebounce,
	}
	switch kind {
	case Squat:
		p.History = 4
	case Pushup:
		p.VisibilityThreshold = 0.7 // side selection only; elbows are read ungated
	case Plank:
		p.Debounce = 0
	}
	return p
}

// Override returns p with every non-zero field of o applied.
func (p Params) Override(o Params) Params {
	if o.VisibilityThreshold > 0 {
		p.VisibilityThreshold = o.VisibilityThreshold
	}
	if o.History > 0 {
		p.History = o.History
	}
	if o.Debounce > 0 {
		p.Debounce = o.Debounce
	}
	return p
}

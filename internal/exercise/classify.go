package exercise

import "github.com/meltforce/repcoach/internal/pose"

// Observation is the unsmoothed verdict for one frame.
type Observation struct {
	// Observed is false when the frame could not be judged (no body,
	// malformed frame, or required landmarks below the visibility gate).
	Observed bool
	Correct  bool
	Side     pose.Side
	// Metrics carries the measured angles and distances for feedback.
	Metrics map[string]float64
}

func abstain() Observation {
	return Observation{}
}

func observed(side pose.Side, correct bool, metrics map[string]float64) Observation {
	return Observation{Observed: true, Correct: correct, Side: side, Metrics: metrics}
}

// Classify runs the geometric predicate for kind on a single frame. It
// holds no state and never smooths.
func Classify(kind Kind, f *pose.Frame, p Params) Observation {
	if !f.Valid() {
		return abstain()
	}
	switch kind {
	case Squat:
		return classifySquat(f, p)
	case Pushup:
		return classifyPushup(f, p)
	case Plank:
		return classifyPlank(f, p)
	case JumpingJack:
		return classifyJumpingJack(f, p)
	case Lunge:
		return classifyLunge(f, p)
	default:
		return abstain()
	}
}

// nearAngle reports whether angle is strictly within tol degrees of target.
func nearAngle(angle, target, tol float64) bool {
	d := angle - target
	if d < 0 {
		d = -d
	}
	return d < tol
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

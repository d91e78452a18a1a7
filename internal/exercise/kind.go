// Package exercise classifies landmark frames into correct/incorrect
// postures for each supported exercise and turns the smoothed signal into
// repetition counts or hold durations.
package exercise

import (
	"fmt"
	"strings"
)

// Kind identifies an exercise.
type Kind string

const (
	Squat       Kind = "squat"
	Pushup      Kind = "pushup"
	Plank       Kind = "plank"
	JumpingJack Kind = "jumpingjack"
	Lunge       Kind = "lunge"
)

// Kinds lists every supported exercise.
func Kinds() []Kind {
	return []Kind{Squat, Pushup, Plank, JumpingJack, Lunge}
}

// ParseKind resolves a name to a Kind. Matching ignores case, dashes,
// underscores and spaces, so "Jumping-Jack" and "push_up" are accepted.
func ParseKind(s string) (Kind, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds() {
		if string(k) == norm {
			return k, nil
		}
	}
	// "lunges" is the level name used by the trainer UI.
	if norm == "lunges" {
		return Lunge, nil
	}
	return "", fmt.Errorf("unknown exercise %q", s)
}

// IsHold reports whether the exercise is scored by held duration rather
// than repetitions.
func (k Kind) IsHold() bool {
	return k == Plank
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds() {
		if v == k {
			return true
		}
	}
	return false
}

// State is the discrete posture a repetition exercise is in.
type State string

const (
	StateUnknown  State = ""
	StateStanding State = "standing"
	StateSquat    State = "squat"
	StateUp       State = "up"
	StateDown     State = "down"
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateLunge    State = "lunge"
	StateResting  State = "resting"
	StateHolding  State = "holding"
)

// states returns the rest state and the target (counted) state.
func (k Kind) states() (rest, target State) {
	switch k {
	case Squat:
		return StateStanding, StateSquat
	case Pushup:
		return StateUp, StateDown
	case JumpingJack:
		return StateClosed, StateOpen
	case Lunge:
		return StateStanding, StateLunge
	default:
		return StateResting, StateHolding
	}
}

// Package levels holds the level catalogue and turns a finished exercise
// session into a score, a pass/fail verdict and experience points.
package levels

import (
	"fmt"
	"math"
	"time"

	"github.com/meltforce/repcoach/internal/exercise"
)

// Level is one stage of the training path.
type Level struct {
	ID            int           `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	Exercise      exercise.Kind `json:"exercise" yaml:"exercise"`
	DurationSec   int           `json:"duration_sec" yaml:"duration_sec"`
	TargetReps    int           `json:"target_reps,omitempty" yaml:"target_reps"`
	TargetHoldSec int           `json:"target_hold_sec,omitempty" yaml:"target_hold_sec"`
	XPReward      int           `json:"xp_reward" yaml:"xp_reward"`
	RequiredScore int           `json:"required_score" yaml:"required_score"`
	Instruction   string        `json:"instruction,omitempty" yaml:"instruction"`
}

// Duration is the time limit of an attempt at this level.
func (l Level) Duration() time.Duration {
	return time.Duration(l.DurationSec) * time.Second
}

// Default is the built-in five-level path.
var Default = Catalogue{
	{
		ID: 1, Name: "Jumping-Jack", Exercise: exercise.JumpingJack,
		DurationSec: 60, TargetReps: 15, XPReward: 100, RequiredScore: 70,
		Instruction: "Face the camera with the whole body in view. Jump feet wide with both hands above the head, then return.",
	},
	{
		ID: 2, Name: "Squat", Exercise: exercise.Squat,
		DurationSec: 75, TargetReps: 12, XPReward: 150, RequiredScore: 75,
		Instruction: "Stand side-on to the camera. Lower until the thighs are level with the floor, keeping the back straight.",
	},
	{
		ID: 3, Name: "Lunges", Exercise: exercise.Lunge,
		DurationSec: 90, TargetReps: 16, XPReward: 200, RequiredScore: 80,
		Instruction: "Stand side-on to the camera. Step forward and lower until the front knee is at 90 degrees, torso upright.",
	},
	{
		ID: 4, Name: "Push-up", Exercise: exercise.Pushup,
		DurationSec: 105, TargetReps: 12, XPReward: 250, RequiredScore: 80,
		Instruction: "Camera at calf height, side-on. Keep the body in a straight line and bend the elbows past 90 degrees.",
	},
	{
		ID: 5, Name: "Plank", Exercise: exercise.Plank,
		DurationSec: 90, TargetHoldSec: 30, XPReward: 300, RequiredScore: 70,
		Instruction: "Camera at calf height, side-on. Hold a straight line from shoulders to ankles for 30 seconds.",
	},
}

// Catalogue is an ordered list of levels. Passing level N unlocks level N+1.
type Catalogue []Level

// Find returns the level with the given ID.
func (c Catalogue) Find(id int) (Level, bool) {
	for _, l := range c {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// Next returns the ID of the level after id, or 0 if id is the last one.
func (c Catalogue) Next(id int) int {
	for i, l := range c {
		if l.ID == id && i+1 < len(c) {
			return c[i+1].ID
		}
	}
	return 0
}

// First returns the ID of the first level, which is always unlocked.
func (c Catalogue) First() int {
	if len(c) == 0 {
		return 0
	}
	return c[0].ID
}

// Validate checks IDs are unique and positive and every level has a target.
func (c Catalogue) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("no levels defined")
	}
	seen := make(map[int]bool, len(c))
	for _, l := range c {
		if l.ID <= 0 {
			return fmt.Errorf("level %q: id must be positive", l.Name)
		}
		if seen[l.ID] {
			return fmt.Errorf("level %d: duplicate id", l.ID)
		}
		seen[l.ID] = true
		if !l.Exercise.Valid() {
			return fmt.Errorf("level %d: unknown exercise %q", l.ID, l.Exercise)
		}
		if l.DurationSec <= 0 {
			return fmt.Errorf("level %d: duration_sec must be positive", l.ID)
		}
		if l.Exercise.IsHold() && l.TargetHoldSec <= 0 {
			return fmt.Errorf("level %d: target_hold_sec is required for %s", l.ID, l.Exercise)
		}
		if !l.Exercise.IsHold() && l.TargetReps <= 0 {
			return fmt.Errorf("level %d: target_reps is required for %s", l.ID, l.Exercise)
		}
		if l.RequiredScore < 0 || l.RequiredScore > 100 {
			return fmt.Errorf("level %d: required_score must be within 0-100", l.ID)
		}
	}
	return nil
}

// Progress returns completion towards the level target as a percentage,
// capped at 100. hold is ignored for repetition levels and reps for holds.
func (l Level) Progress(reps int, hold time.Duration) float64 {
	var p float64
	switch {
	case l.Exercise.IsHold() && l.TargetHoldSec > 0:
		p = hold.Seconds() / float64(l.TargetHoldSec) * 100
	case l.TargetReps > 0:
		p = float64(reps) / float64(l.TargetReps) * 100
	}
	return math.Max(0, math.Min(p, 100))
}

// Outcome is the verdict on one attempt.
type Outcome struct {
	Score       int  `json:"score"`
	Passed      bool `json:"passed"`
	XP          int  `json:"xp"`
	Surrendered bool `json:"surrendered"`
}

// Score computes the outcome of an attempt. A surrendered attempt keeps its
// score but earns no XP.
func (l Level) Score(reps int, hold time.Duration, surrendered bool) Outcome {
	score := int(math.Round(l.Progress(reps, hold)))
	o := Outcome{
		Score:       score,
		Passed:      score >= l.RequiredScore,
		Surrendered: surrendered,
	}
	if !surrendered {
		o.XP = int(math.Round(float64(score) / 100 * float64(l.XPReward)))
	}
	return o
}

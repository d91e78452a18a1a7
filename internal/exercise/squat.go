package exercise

import (
	"math"

	"github.com/meltforce/repcoach/internal/pose"
)

const (
	squatAlignTolerance = 0.15 // fraction of the shoulder-ankle vertical span

	// Advisory ranges, reported but not required.
	squatKneeMin, squatKneeMax = 80.0, 130.0
	squatHipMin, squatHipMax   = 40.0, 100.0
)

// classifySquat judges the bottom of a squat from the side: thigh level with
// the hip, shoulders stacked over the ankles, feet below the knees.
func classifySquat(f *pose.Frame, p Params) Observation {
	limb, ok := pose.PickSide(f, p.VisibilityThreshold,
		pose.Group{Limb: pose.RightLimb, Indices: pose.RightLimb.Legs()},
		pose.Group{Limb: pose.LeftLimb, Indices: pose.LeftLimb.Legs()},
	)
	if !ok {
		return abstain()
	}

	shoulder, hip := f.P(limb.Shoulder), f.P(limb.Hip)
	knee, ankle := f.P(limb.Knee), f.P(limb.Ankle)

	span := math.Abs(shoulder.Y - ankle.Y)
	kneeAtHip := math.Abs(knee.Y-hip.Y) < squatAlignTolerance*span
	shoulderOverAnkle := math.Abs(shoulder.X-ankle.X) < squatAlignTolerance*span
	footBelowKnee := ankle.Y > knee.Y

	kneeAngle := pose.AngleBetween(hip, knee, ankle)
	hipAngle := pose.AngleBetween(pose.Point{X: shoulder.X, Y: hip.Y}, hip, knee)

	metrics := map[string]float64{
		"knee_angle":      kneeAngle,
		"hip_angle":       hipAngle,
		"good_knee_angle": boolMetric(inRange(kneeAngle, squatKneeMin, squatKneeMax)),
		"good_hip_angle":  boolMetric(inRange(hipAngle, squatHipMin, squatHipMax)),
	}

	return observed(limb.Side, kneeAtHip && shoulderOverAnkle && footBelowKnee, metrics)
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

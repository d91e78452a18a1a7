package exercise

import (
	"math"

	"github.com/meltforce/repcoach/internal/pose"
)

const (
	jackUprightTolerance = 20.0 // degrees from vertical for the shoulder-ankle line
	jackSpreadRatio      = 1.3  // ankle spread over shoulder spread
)

// classifyJumpingJack reports the open position, facing the camera: both
// wrists above the nose, body upright, feet wider than the shoulders.
func classifyJumpingJack(f *pose.Frame, p Params) Observation {
	if !pose.Visible(f, pose.EssentialIndices, p.VisibilityThreshold) {
		return abstain()
	}

	nose := f.P(pose.Nose)
	lw, rw := f.P(pose.LeftWrist), f.P(pose.RightWrist)
	ls, rs := f.P(pose.LeftShoulder), f.P(pose.RightShoulder)
	la, ra := f.P(pose.LeftAnkle), f.P(pose.RightAnkle)

	handsUp := lw.Y < nose.Y && rw.Y < nose.Y

	leftLean := pose.AngleBetween(pose.Point{X: 1, Y: ls.Y}, ls, la)
	rightLean := pose.AngleBetween(pose.Point{X: 1, Y: rs.Y}, rs, ra)
	upright := nearAngle(leftLean, 90, jackUprightTolerance) && nearAngle(rightLean, 90, jackUprightTolerance)

	shoulderWidth := math.Abs(ls.X - rs.X)
	ankleWidth := math.Abs(la.X - ra.X)
	spread := ankleWidth > shoulderWidth*jackSpreadRatio

	return observed(pose.SideNone, handsUp && upright && spread, map[string]float64{
		"left_body_angle":  leftLean,
		"right_body_angle": rightLean,
		"shoulder_width":   shoulderWidth,
		"ankle_width":      ankleWidth,
	})
}

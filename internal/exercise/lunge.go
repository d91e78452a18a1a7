package exercise

import (
	"math"

	"github.com/meltforce/repcoach/internal/pose"
)

const (
	lungeKneeMin, lungeKneeMax = 60.0, 120.0
	lungeHipMin, lungeHipMax   = 45.0, 135.0
	lungeTorsoMax              = 30.0 // degrees from vertical
	lungeAnkleSeparation       = 0.15
)

// classifyLunge judges a lunge from the side: one knee bent, one hip flexed,
// hips below shoulders, torso upright and the feet split front/back.
func classifyLunge(f *pose.Frame, p Params) Observation {
	if !pose.Visible(f, pose.EssentialIndices, p.VisibilityThreshold) {
		return abstain()
	}

	ls, rs := f.P(pose.LeftShoulder), f.P(pose.RightShoulder)
	lh, rh := f.P(pose.LeftHip), f.P(pose.RightHip)
	lk, rk := f.P(pose.LeftKnee), f.P(pose.RightKnee)
	la, ra := f.P(pose.LeftAnkle), f.P(pose.RightAnkle)

	leftKnee := pose.AngleBetween(lh, lk, la)
	rightKnee := pose.AngleBetween(rh, rk, ra)
	leftHip := pose.AngleBetween(ls, lh, lk)
	rightHip := pose.AngleBetween(rs, rh, rk)

	shoulders := pose.Midpoint(ls, rs)
	hips := pose.Midpoint(lh, rh)
	torso := pose.AngleBetween(pose.Point{X: hips.X, Y: hips.Y - 0.1}, hips, shoulders)

	separation := math.Abs(la.X - ra.X)

	kneeBent := inRange(leftKnee, lungeKneeMin, lungeKneeMax) || inRange(rightKnee, lungeKneeMin, lungeKneeMax)
	hipFlexed := inRange(leftHip, lungeHipMin, lungeHipMax) || inRange(rightHip, lungeHipMin, lungeHipMax)
	lowered := hips.Y > shoulders.Y
	upright := torso <= lungeTorsoMax
	split := separation > lungeAnkleSeparation

	return observed(pose.SideNone, kneeBent && hipFlexed && lowered && upright && split, map[string]float64{
		"left_knee_angle":  leftKnee,
		"right_knee_angle": rightKnee,
		"left_hip_angle":   leftHip,
		"right_hip_angle":  rightHip,
		"torso_angle":      torso,
		"ankle_separation": separation,
	})
}

package exercise

import "github.com/meltforce/repcoach/internal/pose"

const (
	straightTolerance = 30.0 // degrees from 180 for a straight body or leg
	pushupElbowDown   = 90.0
)

// classifyPushup reports "down" (correct) when the body is a straight plank
// seen from the side and both elbows are bent below 90 degrees. A visible
// but misaligned body is observed and incorrect.
func classifyPushup(f *pose.Frame, p Params) Observation {
	limb, ok := pose.PickSide(f, p.VisibilityThreshold,
		pose.Group{Limb: pose.LeftLimb, Indices: pose.LeftLimb.Legs()},
		pose.Group{Limb: pose.RightLimb, Indices: pose.RightLimb.Legs()},
	)
	if !ok {
		return abstain()
	}

	shoulder, hip := f.P(limb.Shoulder), f.P(limb.Hip)
	knee, ankle := f.P(limb.Knee), f.P(limb.Ankle)

	hipAngle := pose.AngleBetween(shoulder, hip, knee)
	kneeAngle := pose.AngleBetween(hip, knee, ankle)
	aligned := nearAngle(hipAngle, 180, straightTolerance) && nearAngle(kneeAngle, 180, straightTolerance)

	metrics := map[string]float64{
		"hip_angle":  hipAngle,
		"knee_angle": kneeAngle,
	}
	if !aligned {
		return observed(limb.Side, false, metrics)
	}

	leftElbow := pose.AngleBetween(f.P(pose.LeftShoulder), f.P(pose.LeftElbow), f.P(pose.LeftWrist))
	rightElbow := pose.AngleBetween(f.P(pose.RightShoulder), f.P(pose.RightElbow), f.P(pose.RightWrist))
	metrics["left_elbow_angle"] = leftElbow
	metrics["right_elbow_angle"] = rightElbow

	return observed(limb.Side, leftElbow < pushupElbowDown && rightElbow < pushupElbowDown, metrics)
}

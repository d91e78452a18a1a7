package exercise

import "github.com/meltforce/repcoach/internal/pose"

const (
	plankHipSlack  = 0.1  // hips may sit this far below shoulders and knees
	plankKneeSlack = 0.05 // knees may sit this far below ankles
)

// classifyPlank accepts both the forearm plank (elbow near 90 degrees) and
// the straight-arm plank (elbow near 180 degrees).
func classifyPlank(f *pose.Frame, p Params) Observation {
	limb, ok := pose.PickSide(f, p.VisibilityThreshold,
		pose.Group{Limb: pose.RightLimb, Indices: pose.RightLimb.Full()},
		pose.Group{Limb: pose.LeftLimb, Indices: pose.LeftLimb.Full()},
	)
	if !ok {
		return abstain()
	}

	wrist, elbow := f.P(limb.Wrist), f.P(limb.Elbow)
	shoulder, hip := f.P(limb.Shoulder), f.P(limb.Hip)
	knee, ankle := f.P(limb.Knee), f.P(limb.Ankle)

	bodyAngle := pose.AngleBetween(shoulder, hip, knee)
	armAngle := pose.AngleBetween(wrist, elbow, shoulder)
	legAngle := pose.AngleBetween(hip, knee, ankle)

	hipsElevated := hip.Y < shoulder.Y+plankHipSlack && hip.Y < knee.Y+plankHipSlack
	kneesElevated := knee.Y < ankle.Y+plankKneeSlack

	correct := nearAngle(bodyAngle, 180, straightTolerance) &&
		(nearAngle(armAngle, 90, straightTolerance) || nearAngle(armAngle, 180, straightTolerance)) &&
		nearAngle(legAngle, 180, straightTolerance) &&
		hipsElevated &&
		kneesElevated

	return observed(limb.Side, correct, map[string]float64{
		"body_angle": bodyAngle,
		"arm_angle":  armAngle,
		"leg_angle":  legAngle,
	})
}

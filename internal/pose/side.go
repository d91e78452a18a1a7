package pose

// Side names which half of the body a measurement was taken from.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Limb is the left/right chain of joints a side-view exercise is judged on.
type Limb struct {
	Side     Side
	Wrist    int
	Elbow    int
	Shoulder int
	Hip      int
	Knee     int
	Ankle    int
}

// LeftLimb and RightLimb are the two body halves.
var (
	LeftLimb = Limb{
		Side: SideLeft, Wrist: LeftWrist, Elbow: LeftElbow, Shoulder: LeftShoulder,
		Hip: LeftHip, Knee: LeftKnee, Ankle: LeftAnkle,
	}
	RightLimb = Limb{
		Side: SideRight, Wrist: RightWrist, Elbow: RightElbow, Shoulder: RightShoulder,
		Hip: RightHip, Knee: RightKnee, Ankle: RightAnkle,
	}
)

// Legs returns the shoulder, hip, knee and ankle indices.
func (l Limb) Legs() []int {
	return []int{l.Shoulder, l.Hip, l.Knee, l.Ankle}
}

// Full returns every joint of the limb, wrist to ankle.
func (l Limb) Full() []int {
	return []int{l.Wrist, l.Elbow, l.Shoulder, l.Hip, l.Knee, l.Ankle}
}

// Group is a named candidate set of landmarks for side selection.
type Group struct {
	Limb    Limb
	Indices []int
}

// PickSide returns the first group whose landmarks all pass the visibility
// gate, in preference order. ok is false when no group qualifies.
func PickSide(f *Frame, threshold float64, groups ...Group) (Limb, bool) {
	for _, g := range groups {
		if Visible(f, g.Indices, threshold) {
			return g.Limb, true
		}
	}
	return Limb{}, false
}

// EssentialIndices are the torso and upper-leg landmarks front-facing
// exercises require: both shoulders, hips and knees.
var EssentialIndices = []int{LeftShoulder, RightShoulder, LeftHip, RightHip, LeftKnee, RightKnee}

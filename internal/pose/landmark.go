// Package pose models the body landmarks produced by an external pose
// estimator and the planar geometry computed from them.
package pose

import "math"

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Point is a position in normalized image coordinates. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmark is one anatomical point with its detection confidence.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Point drops the confidence.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// InFrame reports whether the landmark lies inside the unit image square.
func (l Landmark) InFrame() bool {
	return l.X >= 0 && l.X <= 1 && l.Y >= 0 && l.Y <= 1
}

func (l Landmark) finite() bool {
	return isFinite(l.X) && isFinite(l.Y) && isFinite(l.Visibility)
}

// Frame is the full landmark set for one video frame. A nil *Frame means
// no body was detected.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
}

// NewFrame wraps landmarks in a Frame. The slice is not copied.
func NewFrame(lms []Landmark) *Frame {
	return &Frame{Landmarks: lms}
}

// Valid reports whether the frame can be classified at all: it must carry
// exactly NumLandmarks entries and every value must be finite.
func (f *Frame) Valid() bool {
	if f == nil || len(f.Landmarks) != NumLandmarks {
		return false
	}
	for _, lm := range f.Landmarks {
		if !lm.finite() {
			return false
		}
	}
	return true
}

// At returns the landmark at idx and whether it exists.
func (f *Frame) At(idx int) (Landmark, bool) {
	if f == nil || idx < 0 || idx >= len(f.Landmarks) {
		return Landmark{}, false
	}
	return f.Landmarks[idx], true
}

// P returns the position of landmark idx, or the zero Point when absent.
// Callers gate with Visible before trusting the result.
func (f *Frame) P(idx int) Point {
	lm, _ := f.At(idx)
	return lm.Point()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

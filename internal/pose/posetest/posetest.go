// Package posetest builds synthetic landmark frames for tests.
package posetest

import "github.com/meltforce/repcoach/internal/pose"

// Visibility is the confidence given to every landmark of a built frame.
const Visibility = 0.9

// Frame returns a full frame with every landmark at the image center and the
// given visibility, then places the points in pts.
func Frame(vis float64, pts map[int]pose.Point) *pose.Frame {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: vis}
	}
	for idx, p := range pts {
		lms[idx].X = p.X
		lms[idx].Y = p.Y
	}
	return pose.NewFrame(lms)
}

// Occluded returns a frame in which no landmark clears any visibility gate.
func Occluded() *pose.Frame {
	return Frame(0.1, nil)
}

// WithVisibility returns a copy of f with the listed landmarks set to vis.
func WithVisibility(f *pose.Frame, vis float64, indices ...int) *pose.Frame {
	lms := make([]pose.Landmark, len(f.Landmarks))
	copy(lms, f.Landmarks)
	for _, idx := range indices {
		lms[idx].Visibility = vis
	}
	return pose.NewFrame(lms)
}

// SquatBottom is a right-side view at the bottom of a squat.
func SquatBottom() *pose.Frame {
	return Frame(Visibility, map[int]pose.Point{
		pose.RightShoulder: {X: 0.5, Y: 0.3},
		pose.RightHip:      {X: 0.55, Y: 0.6},
		pose.RightKnee:     {X: 0.4, Y: 0.62},
		pose.RightAnkle:    {X: 0.5, Y: 0.9},
	})
}

// Standing is an upright body seen from the side.
func Standing() *pose.Frame {
	return Frame(Visibility, map[int]pose.Point{
		pose.LeftShoulder: {X: 0.5, Y: 0.2}, pose.RightShoulder: {X: 0.5, Y: 0.2},
		pose.LeftHip: {X: 0.5, Y: 0.5}, pose.RightHip: {X: 0.5, Y: 0.5},
		pose.LeftKnee: {X: 0.5, Y: 0.7}, pose.RightKnee: {X: 0.5, Y: 0.7},
		pose.LeftAnkle: {X: 0.5, Y: 0.9}, pose.RightAnkle: {X: 0.5, Y: 0.9},
	})
}

func horizontalBody(pts map[int]pose.Point) map[int]pose.Point {
	for _, side := range []pose.Limb{pose.LeftLimb, pose.RightLimb} {
		pts[side.Shoulder] = pose.Point{X: 0.3, Y: 0.5}
		pts[side.Hip] = pose.Point{X: 0.5, Y: 0.5}
		pts[side.Knee] = pose.Point{X: 0.65, Y: 0.5}
		pts[side.Ankle] = pose.Point{X: 0.8, Y: 0.5}
	}
	return pts
}

// PushupDown is a straight body with both elbows bent to about 53 degrees.
func PushupDown() *pose.Frame {
	return Frame(Visibility, horizontalBody(map[int]pose.Point{
		pose.LeftElbow: {X: 0.4, Y: 0.55}, pose.RightElbow: {X: 0.4, Y: 0.55},
		pose.LeftWrist: {X: 0.3, Y: 0.6}, pose.RightWrist: {X: 0.3, Y: 0.6},
	}))
}

// PushupUp is a straight body with locked arms.
func PushupUp() *pose.Frame {
	return Frame(Visibility, horizontalBody(map[int]pose.Point{
		pose.LeftElbow: {X: 0.3, Y: 0.6}, pose.RightElbow: {X: 0.3, Y: 0.6},
		pose.LeftWrist: {X: 0.3, Y: 0.7}, pose.RightWrist: {X: 0.3, Y: 0.7},
	}))
}

// Pike is a push-up silhouette with the hips pushed up, so the body is not
// straight.
func Pike() *pose.Frame {
	f := PushupDown()
	for _, side := range []pose.Limb{pose.LeftLimb, pose.RightLimb} {
		f.Landmarks[side.Shoulder].X, f.Landmarks[side.Shoulder].Y = 0.3, 0.6
		f.Landmarks[side.Hip].X, f.Landmarks[side.Hip].Y = 0.5, 0.3
	}
	return f
}

// Plank is a right-side forearm plank.
func Plank() *pose.Frame {
	return Frame(Visibility, map[int]pose.Point{
		pose.RightShoulder: {X: 0.3, Y: 0.5},
		pose.RightElbow:    {X: 0.3, Y: 0.6},
		pose.RightWrist:    {X: 0.4, Y: 0.6},
		pose.RightHip:      {X: 0.5, Y: 0.52},
		pose.RightKnee:     {X: 0.65, Y: 0.54},
		pose.RightAnkle:    {X: 0.8, Y: 0.56},
	})
}

// PlankSag is a plank whose hips have dropped toward the floor.
func PlankSag() *pose.Frame {
	f := Plank()
	f.Landmarks[pose.RightHip].Y = 0.75
	return f
}

func jackBase(pts map[int]pose.Point) map[int]pose.Point {
	pts[pose.Nose] = pose.Point{X: 0.5, Y: 0.2}
	pts[pose.LeftShoulder] = pose.Point{X: 0.45, Y: 0.3}
	pts[pose.RightShoulder] = pose.Point{X: 0.55, Y: 0.3}
	pts[pose.LeftHip] = pose.Point{X: 0.45, Y: 0.55}
	pts[pose.RightHip] = pose.Point{X: 0.55, Y: 0.55}
	pts[pose.LeftKnee] = pose.Point{X: 0.4, Y: 0.72}
	pts[pose.RightKnee] = pose.Point{X: 0.6, Y: 0.72}
	return pts
}

// JackOpen is the open position of a jumping jack, facing the camera.
func JackOpen() *pose.Frame {
	return Frame(Visibility, jackBase(map[int]pose.Point{
		pose.LeftWrist: {X: 0.4, Y: 0.1}, pose.RightWrist: {X: 0.6, Y: 0.1},
		pose.LeftAnkle: {X: 0.35, Y: 0.9}, pose.RightAnkle: {X: 0.65, Y: 0.9},
	}))
}

// JackClosed is the closed position: arms down, feet together.
func JackClosed() *pose.Frame {
	return Frame(Visibility, jackBase(map[int]pose.Point{
		pose.LeftWrist: {X: 0.4, Y: 0.55}, pose.RightWrist: {X: 0.6, Y: 0.55},
		pose.LeftAnkle: {X: 0.47, Y: 0.9}, pose.RightAnkle: {X: 0.53, Y: 0.9},
	}))
}

// LungeDown is a side-view lunge with the left leg forward.
func LungeDown() *pose.Frame {
	return Frame(Visibility, map[int]pose.Point{
		pose.LeftShoulder: {X: 0.5, Y: 0.3}, pose.RightShoulder: {X: 0.5, Y: 0.3},
		pose.LeftHip: {X: 0.5, Y: 0.55}, pose.RightHip: {X: 0.5, Y: 0.55},
		pose.LeftKnee: {X: 0.35, Y: 0.55}, pose.LeftAnkle: {X: 0.35, Y: 0.8},
		pose.RightKnee: {X: 0.6, Y: 0.75}, pose.RightAnkle: {X: 0.75, Y: 0.8},
	})
}

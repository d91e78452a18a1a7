package replay

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/pose"
	"github.com/meltforce/repcoach/internal/pose/posetest"
)

var epoch = time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)

type segment struct {
	frame *pose.Frame
	n     int
}

// record writes the segments as a recording, one frame every step.
func record(t *testing.T, step time.Duration, segs ...segment) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	at := epoch
	for _, seg := range segs {
		for range seg.n {
			if err := w.Write(at, seg.frame); err != nil {
				t.Fatal(err)
			}
			at = at.Add(step)
		}
	}
	return &buf
}

// TestRunCountsSquats verifies a recording of two squat cycles replays to
// two repetitions with the recorded time span.
func TestRunCountsSquats(t *testing.T) {
	buf := record(t, 200*time.Millisecond,
		segment{posetest.Standing(), 4},
		segment{posetest.SquatBottom(), 4},
		segment{posetest.Standing(), 4},
		segment{posetest.SquatBottom(), 4},
		segment{posetest.Standing(), 4},
	)

	tot, err := Run(buf, exercise.Squat, exercise.DefaultParams(exercise.Squat))
	if err != nil {
		t.Fatal(err)
	}
	if tot.Frames != 20 || tot.Observed != 20 || tot.Abstained != 0 {
		t.Errorf("frames=%d observed=%d abstained=%d", tot.Frames, tot.Observed, tot.Abstained)
	}
	if tot.Reps != 2 {
		t.Errorf("reps = %d, want 2", tot.Reps)
	}
	if got := tot.Duration(); got != 19*200*time.Millisecond {
		t.Errorf("duration = %v, want 3.8s", got)
	}
}

// TestRunCountsAbstentions verifies null and occluded frames are counted as
// abstained and do not disturb counting.
func TestRunCountsAbstentions(t *testing.T) {
	buf := record(t, 200*time.Millisecond,
		segment{nil, 3},
		segment{posetest.JackClosed(), 3},
		segment{posetest.Occluded(), 2},
		segment{posetest.JackOpen(), 3},
	)

	tot, err := Run(buf, exercise.JumpingJack, exercise.DefaultParams(exercise.JumpingJack))
	if err != nil {
		t.Fatal(err)
	}
	if tot.Frames != 11 || tot.Abstained != 5 || tot.Observed != 6 {
		t.Errorf("frames=%d observed=%d abstained=%d", tot.Frames, tot.Observed, tot.Abstained)
	}
	if tot.Reps != 1 {
		t.Errorf("reps = %d, want 1", tot.Reps)
	}
	if tot.Correct != 2 {
		t.Errorf("correct frames = %d, want 2", tot.Correct)
	}
}

// TestRunLongestHold verifies the plank replay reports the longest
// continuous hold, not the last one.
func TestRunLongestHold(t *testing.T) {
	buf := record(t, 100*time.Millisecond,
		segment{posetest.Plank(), 101},
		segment{posetest.PlankSag(), 3},
		segment{posetest.Plank(), 20},
	)

	tot, err := Run(buf, exercise.Plank, exercise.DefaultParams(exercise.Plank))
	if err != nil {
		t.Fatal(err)
	}
	// The hold starts on the second plank frame; the first sagging frame is
	// absorbed by smoothing and the second ends it.
	if tot.LongestHold != 10*time.Second {
		t.Errorf("longest hold = %v, want 10s", tot.LongestHold)
	}
	if tot.Reps != 0 {
		t.Errorf("reps = %d, want 0", tot.Reps)
	}
}

// TestRunHoldContinuesThroughAbstain verifies a hold keeps growing while
// frames abstain, matching the live trainer.
func TestRunHoldContinuesThroughAbstain(t *testing.T) {
	buf := record(t, 100*time.Millisecond,
		segment{posetest.Plank(), 12},
		segment{posetest.Occluded(), 10},
	)

	tot, err := Run(buf, exercise.Plank, exercise.DefaultParams(exercise.Plank))
	if err != nil {
		t.Fatal(err)
	}
	// Hold from the second frame (0.1s) to the last occluded one (2.1s).
	if tot.LongestHold != 2*time.Second {
		t.Errorf("longest hold = %v, want 2s", tot.LongestHold)
	}
	if tot.Abstained != 10 {
		t.Errorf("abstained = %d, want 10", tot.Abstained)
	}
}

// TestRunTimeLimit verifies records past the time limit are ignored and a
// running hold is cut at the limit.
func TestRunTimeLimit(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		frames   int
		hold     time.Duration
		timedOut bool
	}{
		{"no limit", nil, 100, 9800 * time.Millisecond, false},
		{"5s limit", []Option{WithTimeLimit(5 * time.Second)}, 50, 4900 * time.Millisecond, true},
		{"limit past end", []Option{WithTimeLimit(time.Minute)}, 100, 9800 * time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := record(t, 100*time.Millisecond, segment{posetest.Plank(), 100})
			tot, err := Run(buf, exercise.Plank, exercise.DefaultParams(exercise.Plank), tt.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if tot.Frames != tt.frames || tot.LongestHold != tt.hold || tot.TimedOut != tt.timedOut {
				t.Errorf("frames=%d hold=%v timedOut=%v, want %d %v %v",
					tot.Frames, tot.LongestHold, tot.TimedOut, tt.frames, tt.hold, tt.timedOut)
			}
			if tt.timedOut && tot.Duration() != 5*time.Second {
				t.Errorf("duration = %v, want 5s", tot.Duration())
			}
		})
	}
}

// TestRunStopWhen verifies the replay ends on the first record that meets
// the stop condition.
func TestRunStopWhen(t *testing.T) {
	buf := record(t, 200*time.Millisecond,
		segment{posetest.JackClosed(), 3},
		segment{posetest.JackOpen(), 3},
		segment{posetest.JackClosed(), 3},
		segment{posetest.JackOpen(), 3},
	)

	tot, err := Run(buf, exercise.JumpingJack, exercise.DefaultParams(exercise.JumpingJack),
		WithStopWhen(func(t Totals) bool { return t.Reps >= 1 }))
	if err != nil {
		t.Fatal(err)
	}
	if tot.Reps != 1 || tot.Frames != 5 {
		t.Errorf("reps=%d frames=%d, want 1 rep after 5 frames", tot.Reps, tot.Frames)
	}
}

// TestRunErrors verifies malformed lines and backwards timestamps fail with
// the offending line number.
func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{\"t_ms\":1,\"landmarks\":null}\n{nope}\n", "line 2"},
		{"backwards", "{\"t_ms\":500,\"landmarks\":null}\n\n{\"t_ms\":400,\"landmarks\":null}\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(strings.NewReader(tt.input), exercise.Squat, exercise.DefaultParams(exercise.Squat))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

// TestRunEmpty verifies an empty recording yields zero totals.
func TestRunEmpty(t *testing.T) {
	tot, err := Run(strings.NewReader("\n\n"), exercise.Lunge, exercise.DefaultParams(exercise.Lunge))
	if err != nil {
		t.Fatal(err)
	}
	if tot.Frames != 0 || tot.Duration() != 0 {
		t.Errorf("totals = %+v", tot)
	}
}

// TestOpenGzip verifies compressed and plain recordings read the same.
func TestOpenGzip(t *testing.T) {
	dir := t.TempDir()
	data := record(t, 200*time.Millisecond,
		segment{posetest.PushupUp(), 3},
		segment{posetest.PushupDown(), 3},
	).Bytes()

	plain := filepath.Join(dir, "pushup.jsonl")
	if err := os.WriteFile(plain, data, 0o644); err != nil {
		t.Fatal(err)
	}
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "pushup.jsonl.gz")
	if err := os.WriteFile(compressed, zbuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, compressed} {
		rc, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%s): %v", path, err)
		}
		tot, err := Run(rc, exercise.Pushup, exercise.DefaultParams(exercise.Pushup))
		rc.Close()
		if err != nil {
			t.Fatalf("Run(%s): %v", path, err)
		}
		if tot.Frames != 6 || tot.Reps != 1 {
			t.Errorf("%s: frames=%d reps=%d, want 6 and 1", filepath.Base(path), tot.Frames, tot.Reps)
		}
	}
}

// TestOpenRejectsBadGzip verifies a .gz file without a gzip header fails to
// open.
func TestOpenRejectsBadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for invalid gzip file")
	}
}

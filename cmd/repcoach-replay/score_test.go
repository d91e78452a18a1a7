package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/pose/posetest"
	"github.com/meltforce/repcoach/internal/replay"
	"github.com/meltforce/repcoach/internal/trainer"
)

var epoch = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

// writePlank writes n plank frames, one every step, to a recording file.
func writePlank(t *testing.T, n int, step time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plank.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := replay.NewWriter(f)
	for i := range n {
		if err := w.Write(epoch.Add(time.Duration(i)*step), posetest.Plank()); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

// TestLevelOptions verifies a replay scored against a level stops at the
// level's time limit or once the target is met, whichever comes first.
func TestLevelOptions(t *testing.T) {
	// Ten minutes of holding.
	path := writePlank(t, 3000, 200*time.Millisecond)
	params := exercise.DefaultParams(exercise.Plank)

	tests := []struct {
		name     string
		level    levels.Level
		frames   int
		hold     time.Duration
		timedOut bool
		score    int
	}{
		{
			name:  "time limit",
			level: levels.Level{ID: 9, Exercise: exercise.Plank, DurationSec: 60, TargetHoldSec: 120, XPReward: 100, RequiredScore: 70},
			// Frames at 0s..59.8s; the hold from 0.2s is cut at 60s.
			frames: 300, hold: 59800 * time.Millisecond, timedOut: true, score: 50,
		},
		{
			name:  "target reached",
			level: levels.Default[4],
			// The hold reaches 30s on the frame at 30.2s.
			frames: 152, hold: 30 * time.Second, score: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tot, err := replayFile(path, exercise.Plank, params, levelOptions(tt.level)...)
			if err != nil {
				t.Fatal(err)
			}
			if tot.Frames != tt.frames || tot.LongestHold != tt.hold || tot.TimedOut != tt.timedOut {
				t.Errorf("frames=%d hold=%v timedOut=%v, want %d %v %v",
					tot.Frames, tot.LongestHold, tot.TimedOut, tt.frames, tt.hold, tt.timedOut)
			}
			if o := tt.level.Score(tot.Reps, tot.LongestHold, false); o.Score != tt.score {
				t.Errorf("score = %d, want %d", o.Score, tt.score)
			}
		})
	}
}

// TestRecordRefusesLockedLevel verifies a replay of a locked level is not
// stored, and that passing a level opens the next one for recording.
func TestRecordRefusesLockedLevel(t *testing.T) {
	ctx := context.Background()
	rec, err := newRecorder(ctx, filepath.Join(t.TempDir(), "repcoach.db"))
	if err != nil {
		t.Fatalf("newRecorder: %v", err)
	}
	t.Cleanup(rec.close)

	tot := replay.Totals{Reps: 15, Start: epoch, End: epoch.Add(time.Minute)}
	squat := levels.Default[1]
	if err := rec.record(ctx, squat, tot, squat.Score(15, 0, false)); !errors.Is(err, trainer.ErrLevelLocked) {
		t.Fatalf("locked level: err = %v", err)
	}
	rows, err := rec.store.ListAttempts(ctx, rec.userID, models.AttemptQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("locked replay stored: %+v", rows)
	}

	jacks := levels.Default[0]
	if err := rec.record(ctx, jacks, tot, jacks.Score(15, 0, false)); err != nil {
		t.Fatalf("first level: %v", err)
	}
	if err := rec.record(ctx, squat, tot, squat.Score(12, 0, false)); err != nil {
		t.Fatalf("unlocked level: %v", err)
	}

	p, err := rec.store.GetProgress(ctx, rec.userID)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalXP != 250 || p.Scores[1] != 100 || p.Scores[2] != 100 {
		t.Errorf("progress = %+v", p)
	}
}

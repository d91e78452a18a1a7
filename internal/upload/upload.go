// Package upload streams recorded landmark frames into a live attempt on a
// RepCoach server, as a camera client would.
package upload

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/meltforce/repcoach/internal/replay"
	"github.com/meltforce/repcoach/internal/trainer"
)

// Stats tracks upload progress.
type Stats struct {
	FramesSent int
	Counted    int
}

// Uploader sends one recording as one attempt.
type Uploader struct {
	client *Client
	log    *slog.Logger
	// Pace replays frames at their recorded spacing. Without it frames are
	// sent back to back and the server sees its own arrival times.
	Pace bool
	// Surrender ends the attempt as given up when the recording runs out.
	Surrender bool
	sleep     func(context.Context, time.Duration) error
}

// New creates a new Uploader.
func New(client *Client, log *slog.Logger) *Uploader {
	return &Uploader{client: client, log: log, sleep: sleepCtx}
}

// Run starts an attempt at levelID, sends every record from r and ends the
// attempt unless the server finished it first. It returns the final snapshot.
func (u *Uploader) Run(ctx context.Context, r io.Reader, levelID int) (trainer.Snapshot, Stats, error) {
	var stats Stats

	snap, err := u.client.StartAttempt(ctx, levelID)
	if err != nil {
		return snap, stats, fmt.Errorf("starting attempt: %w", err)
	}
	u.log.Info("attempt started", "id", snap.ID, "level", levelID, "exercise", snap.Exercise)

	var prev time.Time
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for line := 1; sc.Scan(); line++ {
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var rec replay.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return snap, stats, fmt.Errorf("line %d: %w", line, err)
		}
		if u.Pace && !prev.IsZero() {
			if err := u.sleep(ctx, rec.Time().Sub(prev)); err != nil {
				return snap, stats, err
			}
		}
		prev = rec.Time()

		before := snap.Count
		snap, err = u.client.SendFrame(ctx, snap.ID, rec.Frame())
		if err != nil {
			return snap, stats, fmt.Errorf("line %d: sending frame: %w", line, err)
		}
		stats.FramesSent++
		if snap.Count > before {
			stats.Counted += snap.Count - before
			u.log.Debug("rep counted", "count", snap.Count)
		}
		if snap.Finished {
			u.log.Info("attempt finished by server", "id", snap.ID, "frames", stats.FramesSent)
			return snap, stats, nil
		}
	}
	if err := sc.Err(); err != nil {
		return snap, stats, fmt.Errorf("reading recording: %w", err)
	}

	snap, err = u.client.EndAttempt(ctx, snap.ID, u.Surrender)
	if err != nil {
		return snap, stats, fmt.Errorf("ending attempt: %w", err)
	}
	return snap, stats, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

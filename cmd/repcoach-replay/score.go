package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/replay"
	"github.com/meltforce/repcoach/internal/storage"
	"github.com/meltforce/repcoach/internal/trainer"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var scoreCmd = &cobra.Command{
	Use:   "score [flags] recording.jsonl[.gz]...",
	Short: "Replay recordings offline and report the result",
	Long: `Replay each recording through a fresh classifier session, using the
recorded timestamps as the clock.

With --level the result is scored against that built-in level; adding --db
records each scored replay as an attempt in a SQLite database and advances
the local user's progress.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

var (
	exerciseFlag   string
	scoreLevelFlag int
	historyFlag    int
	visibilityFlag float64
	debounceFlag   time.Duration
	dbFlag         string
)

func init() {
	scoreCmd.Flags().StringVar(&exerciseFlag, "exercise", "", "exercise to classify (squat, pushup, plank, jumpingjack, lunge)")
	scoreCmd.Flags().IntVar(&scoreLevelFlag, "level", 0, "score against this built-in level instead of --exercise")
	scoreCmd.Flags().IntVar(&historyFlag, "history", 0, "smoothing window override")
	scoreCmd.Flags().Float64Var(&visibilityFlag, "visibility", 0, "visibility threshold override")
	scoreCmd.Flags().DurationVar(&debounceFlag, "debounce", 0, "debounce delay override")
	scoreCmd.Flags().StringVar(&dbFlag, "db", "", "record scored replays into this SQLite database (requires --level)")
	scoreCmd.MarkFlagsMutuallyExclusive("exercise", "level")
	scoreCmd.MarkFlagsOneRequired("exercise", "level")
}

func runScore(cmd *cobra.Command, args []string) error {
	var (
		lvl  levels.Level
		kind exercise.Kind
		err  error
	)
	if scoreLevelFlag != 0 {
		var ok bool
		if lvl, ok = levels.Default.Find(scoreLevelFlag); !ok {
			return fmt.Errorf("unknown level %d", scoreLevelFlag)
		}
		kind = lvl.Exercise
	} else if kind, err = exercise.ParseKind(exerciseFlag); err != nil {
		return err
	}
	if dbFlag != "" && lvl.ID == 0 {
		return fmt.Errorf("--db requires --level")
	}

	params := exercise.DefaultParams(kind).Override(exercise.Params{
		VisibilityThreshold: visibilityFlag,
		History:             historyFlag,
		Debounce:            debounceFlag,
	})

	var opts []replay.Option
	if lvl.ID != 0 {
		opts = levelOptions(lvl)
	}

	// Results are reported in argument order.
	results := make([]replay.Totals, len(args))
	errs := make([]error, len(args))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range args {
		g.Go(func() error {
			results[i], errs[i] = replayFile(path, kind, params, opts...)
			return nil
		})
	}
	g.Wait()

	var rec *recorder
	if dbFlag != "" {
		rec, err = newRecorder(cmd.Context(), dbFlag)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer rec.close()
	}

	var failed error
	for i, path := range args {
		if errs[i] != nil {
			log.Error("replay failed", "file", path, "error", errs[i])
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", path, errs[i]))
			continue
		}
		tot := results[i]
		attrs := []any{
			"file", path,
			"exercise", kind,
			"frames", tot.Frames,
			"observed", tot.Observed,
			"abstained", tot.Abstained,
			"reps", tot.Reps,
			"longest_hold", tot.LongestHold.Round(time.Millisecond).String(),
			"duration", tot.Duration().Round(time.Millisecond).String(),
		}
		if tot.TimedOut {
			attrs = append(attrs, "timed_out", true)
		}
		if lvl.ID != 0 {
			o := lvl.Score(tot.Reps, tot.LongestHold, false)
			attrs = append(attrs, "level", lvl.ID, "score", o.Score, "passed", o.Passed, "xp", o.XP)
			if rec != nil {
				if err := rec.record(cmd.Context(), lvl, tot, o); err != nil {
					log.Error("recording failed", "file", path, "error", err)
					failed = multierr.Append(failed, fmt.Errorf("%s: recording: %w", path, err))
				}
			}
		}
		log.Info("replay complete", attrs...)
	}
	return failed
}

// levelOptions holds a replay to the rules of a live attempt at lvl: it ends
// at the level's time limit or as soon as the target is reached.
func levelOptions(lvl levels.Level) []replay.Option {
	return []replay.Option{
		replay.WithTimeLimit(lvl.Duration()),
		replay.WithStopWhen(func(t replay.Totals) bool {
			return lvl.Progress(t.Reps, t.LongestHold) >= 100
		}),
	}
}

func replayFile(path string, kind exercise.Kind, params exercise.Params, opts ...replay.Option) (replay.Totals, error) {
	rc, err := replay.Open(path)
	if err != nil {
		return replay.Totals{}, err
	}
	defer rc.Close()
	return replay.Run(rc, kind, params, opts...)
}

// recorder stores scored replays as attempts of the local user.
type recorder struct {
	store  *storage.SQLite
	levels levels.Catalogue
	userID int
}

func newRecorder(ctx context.Context, path string) (*recorder, error) {
	s, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	id, err := storage.EnsureDevUser(ctx, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return &recorder{store: s, levels: levels.Default, userID: id}, nil
}

// record stores a scored replay and folds it into progress. Replays of
// levels the user has not unlocked are refused.
func (r *recorder) record(ctx context.Context, lvl levels.Level, tot replay.Totals, o levels.Outcome) error {
	p, err := r.store.GetProgress(ctx, r.userID)
	if err != nil {
		return err
	}
	if !r.levels.Unlocked(p, lvl.ID) {
		return fmt.Errorf("level %d: %w", lvl.ID, trainer.ErrLevelLocked)
	}

	row := models.AttemptRow{
		ID:        uuid.New(),
		UserID:    r.userID,
		LevelID:   lvl.ID,
		Exercise:  string(lvl.Exercise),
		StartedAt: tot.Start,
		EndedAt:   tot.End,
		Reps:      tot.Reps,
		HoldSec:   tot.LongestHold.Seconds(),
		Frames:    tot.Frames,
		Observed:  tot.Observed,
		Score:     o.Score,
		Passed:    o.Passed,
		XP:        o.XP,
	}
	if err := r.store.InsertAttempt(ctx, row); err != nil {
		return err
	}
	return r.store.SaveProgress(ctx, r.levels.Record(p, lvl.ID, o))
}

func (r *recorder) close() {
	r.store.Close()
}

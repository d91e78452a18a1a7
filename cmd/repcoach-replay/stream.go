package main

import (
	"fmt"
	"os"

	"github.com/meltforce/repcoach/internal/replay"
	"github.com/meltforce/repcoach/internal/upload"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var streamCmd = &cobra.Command{
	Use:   "stream [flags] recording.jsonl[.gz]...",
	Short: "Send recordings as live attempts to a RepCoach server",
	Long: `Start one attempt per recording at --level and post its frames the
way a camera client would. The server classifies, counts and scores.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStream,
}

var (
	urlFlag         string
	keyFlag         string
	streamLevelFlag int
	paceFlag        bool
	surrenderFlag   bool
)

func init() {
	streamCmd.Flags().StringVar(&urlFlag, "url", "", "RepCoach server base URL")
	streamCmd.Flags().StringVar(&keyFlag, "key", os.Getenv("REPCOACH_AUTH_API_KEY"), "API key (default $REPCOACH_AUTH_API_KEY)")
	streamCmd.Flags().IntVar(&streamLevelFlag, "level", 0, "level to attempt")
	streamCmd.Flags().BoolVar(&paceFlag, "pace", false, "send frames at their recorded spacing")
	streamCmd.Flags().BoolVar(&surrenderFlag, "surrender", false, "give up the attempt when a recording ends early")
	streamCmd.MarkFlagRequired("url")
	streamCmd.MarkFlagRequired("level")
}

func runStream(cmd *cobra.Command, args []string) error {
	up := upload.New(upload.NewClient(urlFlag, keyFlag), log)
	up.Pace = paceFlag
	up.Surrender = surrenderFlag

	var failed error
	for _, path := range args {
		rc, err := replay.Open(path)
		if err != nil {
			log.Error("open failed", "file", path, "error", err)
			failed = multierr.Append(failed, err)
			continue
		}
		snap, stats, err := up.Run(cmd.Context(), rc, streamLevelFlag)
		rc.Close()
		if err != nil {
			log.Error("upload failed", "file", path, "error", err)
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		attrs := []any{"file", path, "attempt", snap.ID, "frames_sent", stats.FramesSent, "count", snap.Count}
		if snap.Outcome != nil {
			attrs = append(attrs, "score", snap.Outcome.Score, "passed", snap.Outcome.Passed, "xp", snap.Outcome.XP)
		}
		log.Info("upload complete", attrs...)
	}
	return failed
}

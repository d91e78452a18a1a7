package models

import (
	"time"

	"github.com/google/uuid"
)

// AttemptRow is a finished attempt, ready for insertion into the attempts table.
type AttemptRow struct {
	ID          uuid.UUID `json:"id"`
	UserID      int       `json:"user_id"`
	LevelID     int       `json:"level_id"`
	Exercise    string    `json:"exercise"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Reps        int       `json:"reps"`
	HoldSec     float64   `json:"hold_sec"`
	Frames      int       `json:"frames"`
	Observed    int       `json:"observed"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	XP          int       `json:"xp"`
	Surrendered bool      `json:"surrendered"`
}

// UserProgress is a user's position on the level path: the current level,
// the unlocked levels in order and the best score per attempted level.
type UserProgress struct {
	UserID         int         `json:"user_id"`
	CurrentLevel   int         `json:"current_level"`
	UnlockedLevels []int       `json:"unlocked_levels"`
	Scores         map[int]int `json:"scores"`
	TotalXP        int         `json:"total_xp"`
}

// LevelProgressRow is one row of the level_progress table.
type LevelProgressRow struct {
	UserID    int       `json:"user_id"`
	LevelID   int       `json:"level_id"`
	BestScore *int      `json:"best_score,omitempty"`
	Unlocked  bool      `json:"unlocked"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressSummary aggregates best scores across the path.
type ProgressSummary struct {
	Average         int `json:"average"`
	Total           int `json:"total"`
	CompletedLevels int `json:"completed_levels"`
	TotalLevels     int `json:"total_levels"`
	TotalXP         int `json:"total_xp"`
}

// ProgressReport is what the API and MCP tools return for a user.
type ProgressReport struct {
	UserProgress
	Summary ProgressSummary `json:"summary"`
}

// AttemptQuery filters attempt history. Zero values mean no filter.
type AttemptQuery struct {
	LevelID int
	Limit   int
}

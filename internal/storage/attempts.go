package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repcoach/internal/models"
)

const attemptColumns = `id, user_id, level_id, exercise, started_at, ended_at, reps, hold_sec,
	frames, observed, score, passed, xp, surrendered`

// InsertAttempt stores a finished attempt. Re-inserting the same ID is a no-op.
func (db *DB) InsertAttempt(ctx context.Context, row models.AttemptRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID, row.UserID, row.LevelID, row.Exercise, row.StartedAt, row.EndedAt,
		row.Reps, row.HoldSec, row.Frames, row.Observed,
		row.Score, row.Passed, row.XP, row.Surrendered)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// GetAttempt returns one attempt owned by userID.
func (db *DB) GetAttempt(ctx context.Context, userID int, id uuid.UUID) (models.AttemptRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND id = $2`,
		userID, id)
	a, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AttemptRow{}, ErrNotFound
	}
	if err != nil {
		return models.AttemptRow{}, fmt.Errorf("querying attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns the user's attempts, newest first.
func (db *DB) ListAttempts(ctx context.Context, userID int, q models.AttemptQuery) ([]models.AttemptRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND ($2 = 0 OR level_id = $2)
		 ORDER BY ended_at DESC
		 LIMIT $3`,
		userID, q.LevelID, attemptLimit(q))
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var result []models.AttemptRow
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// scanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (models.AttemptRow, error) {
	var a models.AttemptRow
	err := s.Scan(&a.ID, &a.UserID, &a.LevelID, &a.Exercise, &a.StartedAt, &a.EndedAt,
		&a.Reps, &a.HoldSec, &a.Frames, &a.Observed,
		&a.Score, &a.Passed, &a.XP, &a.Surrendered)
	return a, err
}

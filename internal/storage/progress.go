package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repcoach/internal/models"
)

// GetProgress loads the user's level path.
func (db *DB) GetProgress(ctx context.Context, userID int) (models.UserProgress, error) {
	p := models.UserProgress{UserID: userID, Scores: map[int]int{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT current_level, total_xp FROM user_progress WHERE user_id = $1`,
		userID).Scan(&p.CurrentLevel, &p.TotalXP)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return p, fmt.Errorf("querying progress: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, level_id, best_score, unlocked, updated_at
		 FROM level_progress WHERE user_id = $1 ORDER BY level_id`,
		userID)
	if err != nil {
		return p, fmt.Errorf("querying level progress: %w", err)
	}
	defer rows.Close()

	var lp []models.LevelProgressRow
	for rows.Next() {
		var r models.LevelProgressRow
		if err := rows.Scan(&r.UserID, &r.LevelID, &r.BestScore, &r.Unlocked, &r.UpdatedAt); err != nil {
			return p, fmt.Errorf("scanning level progress: %w", err)
		}
		lp = append(lp, r)
	}
	if err := rows.Err(); err != nil {
		return p, err
	}
	mergeLevelRows(&p, lp)
	return p, nil
}

// SaveProgress replaces the user's stored level path with p.
func (db *DB) SaveProgress(ctx context.Context, p models.UserProgress) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_progress (user_id, current_level, total_xp)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
			SET current_level = EXCLUDED.current_level, total_xp = EXCLUDED.total_xp, updated_at = NOW()`,
		p.UserID, p.CurrentLevel, p.TotalXP); err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM level_progress WHERE user_id = $1`, p.UserID); err != nil {
		return fmt.Errorf("clearing level progress: %w", err)
	}
	batch := &pgx.Batch{}
	for _, r := range levelRows(p) {
		batch.Queue(
			`INSERT INTO level_progress (user_id, level_id, best_score, unlocked) VALUES ($1, $2, $3, $4)`,
			r.UserID, r.LevelID, r.BestScore, r.Unlocked)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting level progress: %w", err)
	}

	return tx.Commit(ctx)
}

// ResetProgress forgets the user's level path. Attempt history is kept.
func (db *DB) ResetProgress(ctx context.Context, userID int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM level_progress WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting level progress: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	return tx.Commit(ctx)
}

// levelRows flattens p into one row per level that is unlocked or scored.
func levelRows(p models.UserProgress) []models.LevelProgressRow {
	ids := slices.Clone(p.UnlockedLevels)
	for id := range p.Scores {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	rows := make([]models.LevelProgressRow, 0, len(ids))
	for _, id := range ids {
		r := models.LevelProgressRow{
			UserID:   p.UserID,
			LevelID:  id,
			Unlocked: slices.Contains(p.UnlockedLevels, id),
		}
		if score, ok := p.Scores[id]; ok {
			r.BestScore = &score
		}
		rows = append(rows, r)
	}
	return rows
}

// mergeLevelRows is the inverse of levelRows.
func mergeLevelRows(p *models.UserProgress, rows []models.LevelProgressRow) {
	if p.Scores == nil {
		p.Scores = map[int]int{}
	}
	for _, r := range rows {
		if r.Unlocked {
			p.UnlockedLevels = append(p.UnlockedLevels, r.LevelID)
		}
		if r.BestScore != nil {
			p.Scores[r.LevelID] = *r.BestScore
		}
	}
}

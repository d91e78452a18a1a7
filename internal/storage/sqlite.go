package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS attempts (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	level_id    INTEGER NOT NULL,
	exercise    TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	ended_at    TIMESTAMP NOT NULL,
	reps        INTEGER NOT NULL DEFAULT 0,
	hold_sec    REAL NOT NULL DEFAULT 0,
	frames      INTEGER NOT NULL DEFAULT 0,
	observed    INTEGER NOT NULL DEFAULT 0,
	score       INTEGER NOT NULL,
	passed      BOOLEAN NOT NULL,
	xp          INTEGER NOT NULL DEFAULT 0,
	surrendered BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS attempts_user_ended_idx ON attempts (user_id, ended_at DESC);
CREATE TABLE IF NOT EXISTS user_progress (
	user_id       INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	current_level INTEGER NOT NULL,
	total_xp      INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS level_progress (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	level_id   INTEGER NOT NULL,
	best_score INTEGER,
	unlocked   BOOLEAN NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, level_id)
);`

// SQLite is the single-file store used for local runs and replay recording.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() {
	s.db.Close()
}

// GetOrCreateUser finds or creates a user by login and returns its ID.
func (s *SQLite) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name)
		VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = CURRENT_TIMESTAMP,
			    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// InsertAttempt stores a finished attempt. Re-inserting the same ID is a no-op.
func (s *SQLite) InsertAttempt(ctx context.Context, row models.AttemptRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO attempts (`+attemptColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID.String(), row.UserID, row.LevelID, row.Exercise, row.StartedAt.UTC(), row.EndedAt.UTC(),
		row.Reps, row.HoldSec, row.Frames, row.Observed,
		row.Score, row.Passed, row.XP, row.Surrendered)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// GetAttempt returns one attempt owned by userID.
func (s *SQLite) GetAttempt(ctx context.Context, userID int, id uuid.UUID) (models.AttemptRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = ? AND id = ?`,
		userID, id.String())
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AttemptRow{}, ErrNotFound
	}
	if err != nil {
		return models.AttemptRow{}, fmt.Errorf("querying attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns the user's attempts, newest first.
func (s *SQLite) ListAttempts(ctx context.Context, userID int, q models.AttemptQuery) ([]models.AttemptRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = ? AND (? = 0 OR level_id = ?)
		 ORDER BY ended_at DESC
		 LIMIT ?`,
		userID, q.LevelID, q.LevelID, attemptLimit(q))
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

// GetProgress loads the user's level path.
func (s *SQLite) GetProgress(ctx context.Context, userID int) (models.UserProgress, error) {
	p := models.UserProgress{UserID: userID, Scores: map[int]int{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT current_level, total_xp FROM user_progress WHERE user_id = ?`,
		userID).Scan(&p.CurrentLevel, &p.TotalXP)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("querying progress: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, level_id, best_score, unlocked, updated_at
		 FROM level_progress WHERE user_id = ? ORDER BY level_id`,
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
func (s *SQLite) SaveProgress(ctx context.Context, p models.UserProgress) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, current_level, total_xp)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
			SET current_level = excluded.current_level, total_xp = excluded.total_xp, updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.CurrentLevel, p.TotalXP); err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM level_progress WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("clearing level progress: %w", err)
	}
	for _, r := range levelRows(p) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO level_progress (user_id, level_id, best_score, unlocked) VALUES (?, ?, ?, ?)`,
			r.UserID, r.LevelID, r.BestScore, r.Unlocked); err != nil {
			return fmt.Errorf("inserting level progress: %w", err)
		}
	}

	return tx.Commit()
}

// ResetProgress forgets the user's level path. Attempt history is kept.
func (s *SQLite) ResetProgress(ctx context.Context, userID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM level_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting level progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	return tx.Commit()
}

package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface shared by the PostgreSQL and SQLite
// backends.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)

	InsertAttempt(ctx context.Context, row models.AttemptRow) error
	GetAttempt(ctx context.Context, userID int, id uuid.UUID) (models.AttemptRow, error)
	ListAttempts(ctx context.Context, userID int, q models.AttemptQuery) ([]models.AttemptRow, error)

	// GetProgress returns the stored progress for userID. A user with no
	// stored progress gets a zero UserProgress with only UserID set.
	GetProgress(ctx context.Context, userID int) (models.UserProgress, error)
	SaveProgress(ctx context.Context, p models.UserProgress) error
	ResetProgress(ctx context.Context, userID int) error

	Close()
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLite)(nil)
)

const defaultAttemptLimit = 50

func attemptLimit(q models.AttemptQuery) int {
	if q.Limit <= 0 || q.Limit > 500 {
		return defaultAttemptLimit
	}
	return q.Limit
}

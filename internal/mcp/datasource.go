package mcp

import (
	"context"

	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Every storage.Store
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	GetProgress(ctx context.Context, userID int) (models.UserProgress, error)
	ListAttempts(ctx context.Context, userID int, q models.AttemptQuery) ([]models.AttemptRow, error)
}

// Compile-time checks: both stores satisfy DataSource.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*storage.SQLite)(nil)
)

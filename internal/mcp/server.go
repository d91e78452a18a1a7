package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/repcoach/internal/levels"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, cat levels.Catalogue, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepCoach exercise trainer. Query the level path, training progress and past attempts. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, levels: cat, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListLevels, Handler: h.listLevels},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
		server.ServerTool{Tool: toolGetAttempts, Handler: h.getAttempts},
	)

	s.AddResources(
		server.ServerResource{Resource: resProgress, Handler: h.progress},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds     DataSource
	levels levels.Catalogue
	log    *slog.Logger
}

var resProgress = mcp.NewResource(
	"repcoach://progress",
	"Training Progress",
	mcp.WithResourceDescription("Current level, unlocked levels, best score per level and overall summary"),
	mcp.WithMIMEType("application/json"),
)

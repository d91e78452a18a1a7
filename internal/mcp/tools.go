package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/repcoach/internal/models"
)

var toolListLevels = mcp.NewTool("list_levels",
	mcp.WithDescription("List the training levels in order: exercise, time limit, rep or hold target, XP reward and the score needed to pass."),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Get the user's level path: current level, unlocked levels, best score per level, total XP and the average score over completed levels."),
)

var toolGetAttempts = mcp.NewTool("get_attempts",
	mcp.WithDescription("List recent scored attempts, newest first. Each attempt has the reps or hold reached, score, pass flag and XP earned."),
	mcp.WithNumber("level_id", mcp.Description("Only return attempts at this level.")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of attempts. Defaults to 50, at most 500.")),
)

func (h *handlers) listLevels(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.levels)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.report(ctx)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(report)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getAttempts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := models.AttemptQuery{
		LevelID: req.GetInt("level_id", 0),
		Limit:   req.GetInt("limit", 0),
	}
	if q.LevelID != 0 {
		if _, ok := h.levels.Find(q.LevelID); !ok {
			return mcp.NewToolResultError("unknown level_id"), nil
		}
	}

	rows, err := h.ds.ListAttempts(ctx, UserIDFromContext(ctx), q)
	if err != nil {
		h.log.Error("mcp get_attempts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if rows == nil {
		rows = []models.AttemptRow{}
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) report(ctx context.Context) (models.ProgressReport, error) {
	uid := UserIDFromContext(ctx)
	p, err := h.ds.GetProgress(ctx, uid)
	if err != nil {
		return models.ProgressReport{}, err
	}
	if p.UserID == 0 {
		p.UserID = uid
	}
	return h.levels.Report(p), nil
}

package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolRecentWorkouts = mcp.NewTool("recent_workouts",
	mcp.WithDescription("Retrieve the user's most recent scored push-up sets, newest first. Each set includes overall score, valid rep count, and the AI coaching takeaway."),
	mcp.WithNumber("limit", mcp.Description("Number of sets to return (1-100). Defaults to 5, the goal-progression window.")),
)

var toolWorkoutDetail = mcp.NewTool("workout_detail",
	mcp.WithDescription("Retrieve one set with per-rep detail: form score, minimum elbow angle (depth), and average body alignment angle for every rep."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout set ID (UUID)")),
)

var toolProfile = mcp.NewTool("profile",
	mcp.WithDescription("Retrieve the user's profile: lifetime set count and the current AI goal (goal text, rep target, score target)."),
)

// --- Tool handlers ---

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 5)
	if limit < 1 || limit > 100 {
		return mcp.NewToolResultError("limit must be in [1,100]"), nil
	}

	sets, err := h.ds.QueryMostRecent(ctx, h.userID, limit)
	if err != nil {
		h.log.Error("mcp recent_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sets)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID"), nil
	}

	set, err := h.ds.GetWorkoutSet(ctx, h.userID, id)
	if err != nil {
		h.log.Error("mcp workout_detail", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(set)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) profile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := h.ds.GetProfile(ctx, h.userID)
	if err != nil {
		h.log.Error("mcp profile", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(profile)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

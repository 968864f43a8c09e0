package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools registered. All data is scoped
// to the given user.
func New(ds DataSource, userID, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Hacklytics", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Push-up coaching data server. Query recent scored sets, per-rep form detail, and the user's profile with lifetime counters and the current AI goal."),
	)

	h := &handlers{ds: ds, userID: userID, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerTool{Tool: toolWorkoutDetail, Handler: h.workoutDetail},
		server.ServerTool{Tool: toolProfile, Handler: h.profile},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	ds     DataSource
	userID string
	log    *slog.Logger
}

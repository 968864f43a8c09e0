package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/nathanbai50/hacklytics/internal/models"
	"github.com/nathanbai50/hacklytics/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryMostRecent(ctx context.Context, userID string, limit int) ([]models.WorkoutSet, error)
	GetWorkoutSet(ctx context.Context, userID string, id uuid.UUID) (*models.WorkoutSet, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

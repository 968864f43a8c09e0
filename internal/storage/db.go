package storage

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// DB wraps a pgxpool.Pool and provides the workout and profile stores.
// Change feeds for live subscriptions are kept in-process: every committed
// write publishes a fresh snapshot to that user's subscribers.
type DB struct {
	Pool *pgxpool.Pool

	workoutFeed *feed[[]models.WorkoutSet]
	profileFeed *feed[models.UserProfile]
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{
		Pool:        pool,
		workoutFeed: newFeed[[]models.WorkoutSet](),
		profileFeed: newFeed[models.UserProfile](),
	}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// CreateProfile inserts the per-user singleton record at account creation.
// Re-creating an existing profile is a no-op that returns the stored copy,
// so a retried signup cannot reset counters or goals.
func (db *DB) CreateProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO profiles (id, full_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, profile.ID, profile.FullName, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("inserting profile: %w", err)
	}
	return db.GetProfile(ctx, profile.ID)
}

// GetProfile fetches the user's profile. Goal columns come back nil until
// the first successful advancement.
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := db.Pool.QueryRow(ctx, `
		SELECT id, full_name, email, total_sets_completed,
		       current_ai_goal, current_rep_goal, current_score_goal
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&p.ID, &p.FullName, &p.Email, &p.TotalSetsCompleted,
		&p.CurrentGoalText, &p.CurrentRepGoal, &p.CurrentScoreGoal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// IncrementSetsCompleted atomically adjusts the lifetime set counter.
// Delta may be negative; the counter never drops below zero.
func (db *DB) IncrementSetsCompleted(ctx context.Context, userID string, delta int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE profiles
		SET total_sets_completed = GREATEST(0, total_sets_completed + $2)
		WHERE id = $1
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("incrementing set counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	db.publishProfile(ctx, userID)
	return nil
}

// UpdateGoal overwrites the goal triple in a single statement. The three
// columns always move together; no other profile field is touched.
func (db *DB) UpdateGoal(ctx context.Context, userID string, goal models.GoalTriple) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE profiles
		SET current_ai_goal = $2, current_rep_goal = $3, current_score_goal = $4
		WHERE id = $1
	`, userID, goal.Text, goal.RepGoal, goal.ScoreGoal)
	if err != nil {
		return fmt.Errorf("updating goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	db.publishProfile(ctx, userID)
	return nil
}

// SubscribeProfile opens a live feed over the user's profile. The first
// emission is the current snapshot, then one per change.
func (db *DB) SubscribeProfile(ctx context.Context, userID string) (*Subscription[models.UserProfile], error) {
	p, err := db.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return db.profileFeed.subscribe(userID, *p), nil
}

func (db *DB) publishProfile(ctx context.Context, userID string) {
	p, err := db.GetProfile(ctx, userID)
	if err != nil {
		return
	}
	db.profileFeed.publish(userID, *p)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// recentFeedLimit is how many sets a live workout subscription carries per
// snapshot. Matches what the history screen renders.
const recentFeedLimit = 50

// AppendWorkoutSet persists a completed set and its rep samples. The store
// assigns the document ID and timestamp when the caller left them zero;
// both are returned on the stored copy. Sets are immutable once created.
func (db *DB) AppendWorkoutSet(ctx context.Context, userID string, set models.WorkoutSet) (models.WorkoutSet, error) {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	if set.Timestamp.IsZero() {
		set.Timestamp = time.Now().UTC()
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return models.WorkoutSet{}, fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO workout_sets (id, user_id, timestamp, overall_score, total_valid_reps, coaching_takeaway)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, set.ID, userID, set.Timestamp, set.OverallScore, set.TotalValidReps, set.CoachingTakeaway)
	if err != nil {
		return models.WorkoutSet{}, fmt.Errorf("inserting workout set: %w", err)
	}

	if len(set.RepSamples) > 0 {
		query := `INSERT INTO rep_samples (workout_set_id, rep_number, dtw_score, min_elbow_angle, avg_body_angle) VALUES `
		args := make([]any, 0, len(set.RepSamples)*5)
		valueStrings := make([]string, 0, len(set.RepSamples))

		for i, r := range set.RepSamples {
			base := i * 5
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5,
			))
			args = append(args, set.ID, r.RepNumber, r.FormScore, r.MinElbowAngle, r.AvgBodyAngle)
		}

		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return models.WorkoutSet{}, fmt.Errorf("inserting rep samples: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WorkoutSet{}, fmt.Errorf("committing append: %w", err)
	}

	db.publishWorkouts(ctx, userID)
	return set, nil
}

// DeleteWorkoutSet removes a set and its rep samples. Reports whether a row
// was actually deleted so the caller can keep counter decrements idempotent:
// deleting the same id twice finds nothing the second time.
func (db *DB) DeleteWorkoutSet(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_sets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting workout set: %w", err)
	}
	deleted := tag.RowsAffected() > 0
	if deleted {
		db.publishWorkouts(ctx, userID)
	}
	return deleted, nil
}

// QueryMostRecent returns the user's newest sets, timestamp descending with
// id as the stable tiebreak, rep samples attached in rep order.
func (db *DB) QueryMostRecent(ctx context.Context, userID string, limit int) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, timestamp, overall_score, total_valid_reps, coaching_takeaway
		FROM workout_sets
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var sets []models.WorkoutSet
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var s models.WorkoutSet
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.OverallScore, &s.TotalValidReps, &s.CoachingTakeaway); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		index[s.ID] = len(sets)
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return sets, nil
	}

	ids := make([]uuid.UUID, 0, len(sets))
	for _, s := range sets {
		ids = append(ids, s.ID)
	}

	repRows, err := db.Pool.Query(ctx, `
		SELECT workout_set_id, rep_number, dtw_score, min_elbow_angle, avg_body_angle
		FROM rep_samples
		WHERE workout_set_id = ANY($1)
		ORDER BY rep_number ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying rep samples: %w", err)
	}
	defer repRows.Close()

	for repRows.Next() {
		var setID uuid.UUID
		var r models.RepSample
		if err := repRows.Scan(&setID, &r.RepNumber, &r.FormScore, &r.MinElbowAngle, &r.AvgBodyAngle); err != nil {
			return nil, fmt.Errorf("scanning rep sample: %w", err)
		}
		if i, ok := index[setID]; ok {
			sets[i].RepSamples = append(sets[i].RepSamples, r)
		}
	}
	return sets, repRows.Err()
}

// GetWorkoutSet fetches a single set with its rep samples.
func (db *DB) GetWorkoutSet(ctx context.Context, userID string, id uuid.UUID) (*models.WorkoutSet, error) {
	var s models.WorkoutSet
	err := db.Pool.QueryRow(ctx, `
		SELECT id, timestamp, overall_score, total_valid_reps, coaching_takeaway
		FROM workout_sets
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&s.ID, &s.Timestamp, &s.OverallScore, &s.TotalValidReps, &s.CoachingTakeaway)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying workout set: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT rep_number, dtw_score, min_elbow_angle, avg_body_angle
		FROM rep_samples
		WHERE workout_set_id = $1
		ORDER BY rep_number ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying rep samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.RepSample
		if err := rows.Scan(&r.RepNumber, &r.FormScore, &r.MinElbowAngle, &r.AvgBodyAngle); err != nil {
			return nil, fmt.Errorf("scanning rep sample: %w", err)
		}
		s.RepSamples = append(s.RepSamples, r)
	}
	return &s, rows.Err()
}

// SubscribeWorkouts opens a live feed over the user's recent sets. The
// first emission is the current snapshot; each append or delete for this
// user publishes a fresh one.
func (db *DB) SubscribeWorkouts(ctx context.Context, userID string) (*Subscription[[]models.WorkoutSet], error) {
	snapshot, err := db.QueryMostRecent(ctx, userID, recentFeedLimit)
	if err != nil {
		return nil, err
	}
	return db.workoutFeed.subscribe(userID, snapshot), nil
}

// publishWorkouts pushes a fresh snapshot to this user's subscribers.
// Best-effort: a failed snapshot read just skips the emission, the next
// write will publish again.
func (db *DB) publishWorkouts(ctx context.Context, userID string) {
	snapshot, err := db.QueryMostRecent(ctx, userID, recentFeedLimit)
	if err != nil {
		return
	}
	db.workoutFeed.publish(userID, snapshot)
}

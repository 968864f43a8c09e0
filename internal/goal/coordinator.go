// Package goal decides when a user's rep and score targets should level up.
//
// After every saved set the coordinator reads the most recent window of
// workouts, compares the window aggregates against the stored targets, and
// on a hit asks the goal oracle for the next milestone. Nothing in here may
// fail the save itself: the set is already durable before this code runs,
// so every error path ends in a log line and a return.
package goal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// WindowSize is how many recent sets feed the advancement decision.
const WindowSize = 5

// WorkoutStore is the slice of the workout store the coordinator consumes.
type WorkoutStore interface {
	QueryMostRecent(ctx context.Context, userID string, limit int) ([]models.WorkoutSet, error)
}

// ProfileStore is the slice of the profile store the coordinator consumes.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	IncrementSetsCompleted(ctx context.Context, userID string, delta int) error
	UpdateGoal(ctx context.Context, userID string, goal models.GoalTriple) error
}

// OracleClient proposes the next goal triple from a history summary.
type OracleClient interface {
	SuggestGoal(ctx context.Context, history models.WorkoutHistory) (*models.GoalTriple, error)
}

// Coordinator runs the goal progression flow. Saves for the same user are
// serialized through a per-user lock so two concurrent saves cannot both
// read a window that misses the other's set and double-advance the goal.
type Coordinator struct {
	workouts WorkoutStore
	profiles ProfileStore
	oracle   OracleClient
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Coordinator with its collaborators injected.
func New(workouts WorkoutStore, profiles ProfileStore, oracle OracleClient, log *slog.Logger) *Coordinator {
	return &Coordinator{
		workouts: workouts,
		profiles: profiles,
		oracle:   oracle,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[userID] = l
	}
	return l
}

// OnWorkoutSaved runs after a set has been durably persisted. It bumps the
// lifetime counter, evaluates the advancement predicate over the recent
// window, and on a hit commits the oracle's proposed triple. The user
// observes either the old triple or the fully updated one, never a partial
// write: the triple goes to the store as a single multi-field update.
func (c *Coordinator) OnWorkoutSaved(ctx context.Context, userID string, saved models.WorkoutSet) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Counter bump is fire-and-forget: a miss leaves the count stale until
	// the next save, which is acceptable for a display counter.
	if err := c.profiles.IncrementSetsCompleted(ctx, userID, 1); err != nil {
		c.log.Warn("set counter increment failed", "user", userID, "error", err)
	}

	// The window and profile reads are independent; issue both at once.
	var (
		wg         sync.WaitGroup
		window     []models.WorkoutSet
		windowErr  error
		profile    *models.UserProfile
		profileErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		window, windowErr = c.workouts.QueryMostRecent(ctx, userID, WindowSize)
	}()
	go func() {
		defer wg.Done()
		profile, profileErr = c.profiles.GetProfile(ctx, userID)
	}()
	wg.Wait()

	if windowErr != nil {
		c.log.Warn("recent window read failed", "user", userID, "error", windowErr)
		return
	}
	if profileErr != nil {
		c.log.Warn("profile read failed", "user", userID, "error", profileErr)
		return
	}

	maxReps, avgScore, avgDepth := windowAggregates(window)
	repGoal := profile.RepGoalOrZero()
	scoreGoal := profile.ScoreGoalOrZero()

	// Advancement fires when EITHER target is reached. A fresh account with
	// no history and no goals trivially satisfies this (0 >= 0) and seeds
	// its first triple on the very first save.
	if maxReps < repGoal && avgScore < scoreGoal {
		c.log.Debug("goal unchanged, still progressing",
			"user", userID, "max_reps", maxReps, "avg_score", avgScore,
			"rep_goal", repGoal, "score_goal", scoreGoal)
		return
	}

	proposed, err := c.oracle.SuggestGoal(ctx, historySummary(profile.TotalSetsCompleted, window, avgDepth))
	if err != nil {
		c.log.Warn("goal oracle failed, keeping current goal", "user", userID, "error", err)
		return
	}

	// The store accepts arbitrary overwrites, so guard the non-decreasing
	// invariant here. A profile that has never held a goal accepts whatever
	// the oracle seeds, including the beginner zero triple.
	if profile.HasGoal() && (proposed.RepGoal < repGoal || proposed.ScoreGoal < scoreGoal) {
		c.log.Warn("oracle proposed lower targets, keeping current goal",
			"user", userID,
			"proposed_rep", proposed.RepGoal, "proposed_score", proposed.ScoreGoal,
			"rep_goal", repGoal, "score_goal", scoreGoal)
		return
	}

	if err := c.profiles.UpdateGoal(ctx, userID, *proposed); err != nil {
		c.log.Warn("goal update failed", "user", userID, "error", err)
		return
	}
	c.log.Info("goal advanced",
		"user", userID, "rep_goal", proposed.RepGoal, "score_goal", proposed.ScoreGoal)
}

// OnWorkoutDeleted keeps the lifetime counter honest after a confirmed
// deletion. Callers must only invoke it when the store reported that a row
// was actually removed, which keeps double-deletes from double-decrementing.
func (c *Coordinator) OnWorkoutDeleted(ctx context.Context, userID string) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.profiles.IncrementSetsCompleted(ctx, userID, -1); err != nil {
		c.log.Warn("set counter decrement failed", "user", userID, "error", err)
	}
}

// windowAggregates computes the decision inputs over the recent window:
// the best rep count, the integer-truncated mean score, and the mean
// per-rep elbow depth. An empty window yields zeros.
func windowAggregates(window []models.WorkoutSet) (maxReps, avgScore int, avgDepth float64) {
	if len(window) == 0 {
		return 0, 0, 0
	}

	scoreSum := 0
	depthSum := 0.0
	repCount := 0
	for _, set := range window {
		if set.TotalValidReps > maxReps {
			maxReps = set.TotalValidReps
		}
		scoreSum += set.OverallScore
		for _, rep := range set.RepSamples {
			depthSum += rep.MinElbowAngle
			repCount++
		}
	}

	avgScore = scoreSum / len(window)
	if repCount > 0 {
		avgDepth = depthSum / float64(repCount)
	}
	return maxReps, avgScore, avgDepth
}

// historySummary builds the oracle request from the window, newest first.
func historySummary(lifetimeSets int, window []models.WorkoutSet, avgDepth float64) models.WorkoutHistory {
	history := models.WorkoutHistory{
		TotalLifetimeSets: lifetimeSets,
		RecentScores:      make([]int, 0, len(window)),
		RecentReps:        make([]int, 0, len(window)),
		AverageDepth:      avgDepth,
		RecentTakeaways:   make([]string, 0, len(window)),
	}
	for _, set := range window {
		history.RecentScores = append(history.RecentScores, set.OverallScore)
		history.RecentReps = append(history.RecentReps, set.TotalValidReps)
		history.RecentTakeaways = append(history.RecentTakeaways, set.CoachingTakeaway)
	}
	return history
}

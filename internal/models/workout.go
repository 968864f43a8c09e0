package models

import (
	"time"

	"github.com/google/uuid"
)

// RepSample holds the measurements for a single repetition within a set.
// The wire name for the form/consistency score is dtw_score, matching the
// analysis service output.
type RepSample struct {
	RepNumber     int     `json:"rep_number"`
	FormScore     int     `json:"dtw_score"`
	MinElbowAngle float64 `json:"min_elbow_angle"`
	AvgBodyAngle  float64 `json:"avg_body_angle"`
}

// WorkoutSet is one completed push-up session's scored result plus
// per-repetition detail. ID and Timestamp are assigned by the store on
// append when not supplied by the caller; both are stable thereafter.
type WorkoutSet struct {
	ID               uuid.UUID   `json:"id"`
	Timestamp        time.Time   `json:"timestamp"`
	OverallScore     int         `json:"overall_score"`
	TotalValidReps   int         `json:"total_valid_reps"`
	CoachingTakeaway string      `json:"coaching_takeaway"`
	RepSamples       []RepSample `json:"rep_data"`
}

// GoalTriple is the goal a user is currently working toward: a coaching
// sentence plus the rep and score targets. The three fields are always
// written together.
type GoalTriple struct {
	Text      string `json:"goal"`
	RepGoal   int    `json:"rep_goal"`
	ScoreGoal int    `json:"score_goal"`
}

// UserProfile is the per-user singleton record. The goal columns are nil
// until the first successful goal advancement.
type UserProfile struct {
	ID                 string  `json:"id"`
	FullName           string  `json:"full_name"`
	Email              string  `json:"email"`
	TotalSetsCompleted int     `json:"total_sets_completed"`
	CurrentGoalText    *string `json:"current_ai_goal"`
	CurrentRepGoal     *int    `json:"current_rep_goal"`
	CurrentScoreGoal   *int    `json:"current_score_goal"`
}

// HasGoal reports whether the profile carries a complete goal triple.
func (p *UserProfile) HasGoal() bool {
	return p.CurrentGoalText != nil && p.CurrentRepGoal != nil && p.CurrentScoreGoal != nil
}

// RepGoalOrZero returns the current rep target, treating unset as 0.
func (p *UserProfile) RepGoalOrZero() int {
	if p.CurrentRepGoal == nil {
		return 0
	}
	return *p.CurrentRepGoal
}

// ScoreGoalOrZero returns the current score target, treating unset as 0.
func (p *UserProfile) ScoreGoalOrZero() int {
	if p.CurrentScoreGoal == nil {
		return 0
	}
	return *p.CurrentScoreGoal
}

// WorkoutHistory is the request body for the goal oracle: a summary of the
// user's recent performance window plus the lifetime set count.
type WorkoutHistory struct {
	TotalLifetimeSets int      `json:"total_lifetime_sets"`
	RecentScores      []int    `json:"recent_scores"`
	RecentReps        []int    `json:"recent_reps"`
	AverageDepth      float64  `json:"average_depth"`
	RecentTakeaways   []string `json:"recent_takeaways"`
}

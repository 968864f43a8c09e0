package models

// AnalysisResult is the success shape returned by the video analysis
// service for one uploaded set.
type AnalysisResult struct {
	OverallScore     int         `json:"overall_score"`
	TotalValidReps   int         `json:"total_valid_reps"`
	CoachingTakeaway string      `json:"coaching_takeaway"`
	RepData          []RepSample `json:"rep_data"`
}

// WorkoutSet converts an analysis result into a set ready for the store.
// ID and timestamp are left zero for the store to assign.
func (a *AnalysisResult) WorkoutSet() WorkoutSet {
	return WorkoutSet{
		OverallScore:     a.OverallScore,
		TotalValidReps:   a.TotalValidReps,
		CoachingTakeaway: a.CoachingTakeaway,
		RepSamples:       a.RepData,
	}
}

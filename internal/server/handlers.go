package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nathanbai50/hacklytics/internal/analyzer"
	"github.com/nathanbai50/hacklytics/internal/goal"
	"github.com/nathanbai50/hacklytics/internal/models"
	"github.com/nathanbai50/hacklytics/internal/storage"
)

// maxVideoBytes caps an uploaded set recording at 200 MB.
const maxVideoBytes = 200 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleAnalyzeWorkout is the save flow entry point: score the uploaded
// video, persist the resulting set, then run goal progression. The set is
// durable before progression starts, so oracle or counter failures cannot
// undo the save.
func (s *Server) handleAnalyzeWorkout(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxVideoBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file part: " + err.Error()})
		return
	}
	defer file.Close()

	result, err := s.analyzer.Analyze(r.Context(), header.Filename, file)
	if err != nil {
		var svcErr *analyzer.ServiceError
		if errors.As(err, &svcErr) {
			// The analyzer looked at the video and rejected it; relay its
			// message rather than masking it as a server fault.
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": svcErr.Message})
			return
		}
		s.log.Error("analysis failed", "user", userID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "analysis service unavailable"})
		return
	}

	saved, err := s.workouts.AppendWorkoutSet(r.Context(), userID, result.WorkoutSet())
	if err != nil {
		s.log.Error("workout save failed", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save workout"})
		return
	}

	s.progression.OnWorkoutSaved(r.Context(), userID, saved)
	writeJSON(w, http.StatusCreated, saved)
}

// handleSaveWorkout persists an already-scored set (JSON body) and runs
// goal progression. Used by clients that talk to the analysis service
// directly.
func (s *Server) handleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	var set models.WorkoutSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if set.OverallScore < 0 || set.OverallScore > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "overall_score must be in [0,100]"})
		return
	}
	if set.TotalValidReps < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "total_valid_reps must be non-negative"})
		return
	}
	seen := make(map[int]bool, len(set.RepSamples))
	for _, rep := range set.RepSamples {
		if rep.RepNumber < 1 || seen[rep.RepNumber] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rep_data rep_number must be positive and unique"})
			return
		}
		seen[rep.RepNumber] = true
		if rep.FormScore < 0 || rep.FormScore > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rep_data dtw_score must be in [0,100]"})
			return
		}
	}

	saved, err := s.workouts.AppendWorkoutSet(r.Context(), userID, set)
	if err != nil {
		s.log.Error("workout save failed", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save workout"})
		return
	}

	s.progression.OnWorkoutSaved(r.Context(), userID, saved)
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeleteWorkout removes a set. Deleting an id that is already gone is
// a no-op 204: the counter decrement only runs on a confirmed deletion.
func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	deleted, err := s.workouts.DeleteWorkoutSet(r.Context(), userID, id)
	if err != nil {
		s.log.Error("workout delete failed", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete workout"})
		return
	}
	if deleted {
		s.progression.OnWorkoutDeleted(r.Context(), userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecentWorkouts(w http.ResponseWriter, r *http.Request) {
	limit := goal.WindowSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be in [1,100]"})
			return
		}
		limit = n
	}

	sets, err := s.workouts.QueryMostRecent(r.Context(), UserID(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	set, err := s.workouts.GetWorkoutSet(r.Context(), UserID(r), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	var body struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	profile, err := s.profiles.CreateProfile(r.Context(), models.UserProfile{
		ID:       userID,
		FullName: body.FullName,
		Email:    body.Email,
	})
	if err != nil {
		s.log.Error("profile create failed", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create profile"})
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.GetProfile(r.Context(), UserID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nathanbai50/hacklytics/internal/analyzer"
	"github.com/nathanbai50/hacklytics/internal/goal"
	"github.com/nathanbai50/hacklytics/internal/models"
	"github.com/nathanbai50/hacklytics/internal/storage"
)

const (
	testAPIKey = "test-key"
	testUser   = "user-1"
)

type stubWorkouts struct {
	mu        sync.Mutex
	sets      map[uuid.UUID]models.WorkoutSet
	lastLimit int
	appendErr error

	streamCh        chan []models.WorkoutSet
	streamOnce      sync.Once
	streamCancelled bool
}

func newStubWorkouts() *stubWorkouts {
	return &stubWorkouts{sets: make(map[uuid.UUID]models.WorkoutSet)}
}

func (s *stubWorkouts) AppendWorkoutSet(_ context.Context, _ string, set models.WorkoutSet) (models.WorkoutSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return models.WorkoutSet{}, s.appendErr
	}
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	s.sets[set.ID] = set
	return set, nil
}

func (s *stubWorkouts) DeleteWorkoutSet(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[id]; !ok {
		return false, nil
	}
	delete(s.sets, id)
	return true, nil
}

func (s *stubWorkouts) QueryMostRecent(_ context.Context, _ string, limit int) ([]models.WorkoutSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	out := make([]models.WorkoutSet, 0, len(s.sets))
	for _, set := range s.sets {
		out = append(out, set)
	}
	return out, nil
}

func (s *stubWorkouts) GetWorkoutSet(_ context.Context, _ string, id uuid.UUID) (*models.WorkoutSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &set, nil
}

func (s *stubWorkouts) closeStream() {
	s.streamOnce.Do(func() { close(s.streamCh) })
}

func (s *stubWorkouts) SubscribeWorkouts(context.Context, string) (*storage.Subscription[[]models.WorkoutSet], error) {
	if s.streamCh == nil {
		return nil, errors.New("stream not configured in stub")
	}
	return storage.NewSubscription(s.streamCh, func() {
		s.mu.Lock()
		s.streamCancelled = true
		s.mu.Unlock()
		s.closeStream()
	}), nil
}

type stubProfiles struct {
	profiles map[string]models.UserProfile

	streamCh        chan models.UserProfile
	streamOnce      sync.Once
	streamCancelled bool
}

func (s *stubProfiles) CreateProfile(_ context.Context, p models.UserProfile) (*models.UserProfile, error) {
	if s.profiles == nil {
		s.profiles = make(map[string]models.UserProfile)
	}
	if existing, ok := s.profiles[p.ID]; ok {
		return &existing, nil
	}
	s.profiles[p.ID] = p
	return &p, nil
}

func (s *stubProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *stubProfiles) closeStream() {
	s.streamOnce.Do(func() { close(s.streamCh) })
}

func (s *stubProfiles) SubscribeProfile(context.Context, string) (*storage.Subscription[models.UserProfile], error) {
	if s.streamCh == nil {
		return nil, errors.New("stream not configured in stub")
	}
	return storage.NewSubscription(s.streamCh, func() {
		s.streamCancelled = true
		s.closeStream()
	}), nil
}

type stubAnalyzer struct {
	result *models.AnalysisResult
	err    error
}

func (s *stubAnalyzer) Analyze(context.Context, string, io.Reader) (*models.AnalysisResult, error) {
	return s.result, s.err
}

type stubProgression struct {
	mu      sync.Mutex
	saved   []models.WorkoutSet
	deletes int
}

func (s *stubProgression) OnWorkoutSaved(_ context.Context, _ string, set models.WorkoutSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, set)
}

func (s *stubProgression) OnWorkoutDeleted(context.Context, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
}

type testEnv struct {
	srv         *Server
	workouts    *stubWorkouts
	profiles    *stubProfiles
	analyzer    *stubAnalyzer
	progression *stubProgression
}

func newTestEnv() *testEnv {
	env := &testEnv{
		workouts:    newStubWorkouts(),
		profiles:    &stubProfiles{},
		analyzer:    &stubAnalyzer{},
		progression: &stubProgression{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.srv = New(env.workouts, env.profiles, env.analyzer, env.progression, testAPIKey, log)
	return env
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-User-ID", testUser)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

// TestSaveWorkoutRoundTrip verifies a saved set comes back from the recent
// query with its scores, reps and per-rep samples intact, and that the
// progression hook ran exactly once with the stored set.
func TestSaveWorkoutRoundTrip(t *testing.T) {
	env := newTestEnv()

	body := `{
		"overall_score": 88,
		"total_valid_reps": 11,
		"coaching_takeaway": "Lock your elbows out at the top.",
		"rep_data": [{"rep_number": 1, "dtw_score": 90, "min_elbow_angle": 82.0, "avg_body_angle": 177.0}]
	}`
	w := env.do(http.MethodPost, "/api/v1/workouts", strings.NewReader(body), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	var saved models.WorkoutSet
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decoding save response: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Error("saved set has no ID")
	}

	w = env.do(http.MethodGet, "/api/v1/workouts/recent", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("recent status = %d", w.Code)
	}
	var sets []models.WorkoutSet
	if err := json.Unmarshal(w.Body.Bytes(), &sets); err != nil {
		t.Fatalf("decoding recent response: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("recent sets = %d, want 1", len(sets))
	}
	got := sets[0]
	if got.OverallScore != 88 || got.TotalValidReps != 11 {
		t.Errorf("round-tripped set = %+v", got)
	}
	if len(got.RepSamples) != 1 || got.RepSamples[0].FormScore != 90 {
		t.Errorf("round-tripped samples = %+v", got.RepSamples)
	}

	env.progression.mu.Lock()
	defer env.progression.mu.Unlock()
	if len(env.progression.saved) != 1 {
		t.Fatalf("progression ran %d times, want 1", len(env.progression.saved))
	}
	if env.progression.saved[0].ID != saved.ID {
		t.Error("progression received a different set than was saved")
	}
}

// TestSaveWorkoutRejectsBadScore verifies score range validation happens
// before the store is touched.
func TestSaveWorkoutRejectsBadScore(t *testing.T) {
	env := newTestEnv()

	body := `{"overall_score": 140, "total_valid_reps": 5, "coaching_takeaway": "", "rep_data": []}`
	w := env.do(http.MethodPost, "/api/v1/workouts", strings.NewReader(body), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if len(env.workouts.sets) != 0 {
		t.Error("invalid set reached the store")
	}
	if len(env.progression.saved) != 0 {
		t.Error("progression ran for a rejected set")
	}
}

// TestSaveWorkoutRejectsBadRepSamples verifies rep detail validation: an
// out-of-range form score, a non-positive rep number, or a duplicate rep
// number is a 400, not a constraint failure deep in the store.
func TestSaveWorkoutRejectsBadRepSamples(t *testing.T) {
	tests := []struct {
		name    string
		repData string
	}{
		{"dtw_score above 100", `[{"rep_number": 1, "dtw_score": 120, "min_elbow_angle": 90.0, "avg_body_angle": 175.0}]`},
		{"dtw_score negative", `[{"rep_number": 1, "dtw_score": -1, "min_elbow_angle": 90.0, "avg_body_angle": 175.0}]`},
		{"rep_number zero", `[{"rep_number": 0, "dtw_score": 80, "min_elbow_angle": 90.0, "avg_body_angle": 175.0}]`},
		{"duplicate rep_number", `[{"rep_number": 1, "dtw_score": 80, "min_elbow_angle": 90.0, "avg_body_angle": 175.0},
			{"rep_number": 1, "dtw_score": 85, "min_elbow_angle": 88.0, "avg_body_angle": 176.0}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			body := `{"overall_score": 80, "total_valid_reps": 1, "coaching_takeaway": "", "rep_data": ` + tt.repData + `}`
			w := env.do(http.MethodPost, "/api/v1/workouts", strings.NewReader(body), "application/json")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(env.workouts.sets) != 0 {
				t.Error("invalid rep data reached the store")
			}
		})
	}
}

// TestAnalyzeWorkout verifies the upload flow: multipart in, scored set
// persisted, progression invoked.
func TestAnalyzeWorkout(t *testing.T) {
	env := newTestEnv()
	env.analyzer.result = &models.AnalysisResult{
		OverallScore:     75,
		TotalValidReps:   8,
		CoachingTakeaway: "Keep your hips level.",
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "set.mp4")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake video bytes"))
	mw.Close()

	w := env.do(http.MethodPost, "/api/v1/workouts/analyze", &buf, mw.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(env.workouts.sets) != 1 {
		t.Errorf("stored sets = %d, want 1", len(env.workouts.sets))
	}
	if len(env.progression.saved) != 1 {
		t.Errorf("progression ran %d times, want 1", len(env.progression.saved))
	}
}

// TestAnalyzeWorkoutServiceRejection verifies an analyzer rejection maps to
// 422 with the service's message and nothing is saved.
func TestAnalyzeWorkoutServiceRejection(t *testing.T) {
	env := newTestEnv()
	env.analyzer.err = &analyzer.ServiceError{Message: "No valid push-ups detected."}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "set.mp4")
	part.Write([]byte("x"))
	mw.Close()

	w := env.do(http.MethodPost, "/api/v1/workouts/analyze", &buf, mw.FormDataContentType())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No valid push-ups detected.") {
		t.Errorf("body = %s, want the service message relayed", w.Body.String())
	}
	if len(env.workouts.sets) != 0 {
		t.Error("rejected video produced a stored set")
	}
}

// TestDeleteWorkoutIdempotent verifies deleting the same id twice: both
// requests return 204, but the counter hook runs only for the first.
func TestDeleteWorkoutIdempotent(t *testing.T) {
	env := newTestEnv()
	saved, err := env.workouts.AppendWorkoutSet(context.Background(), testUser, models.WorkoutSet{OverallScore: 50})
	if err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodDelete, "/api/v1/workouts/"+saved.ID.String(), nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("first delete status = %d, want 204", w.Code)
	}

	w = env.do(http.MethodDelete, "/api/v1/workouts/"+saved.ID.String(), nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("second delete status = %d, want 204", w.Code)
	}

	if env.progression.deletes != 1 {
		t.Errorf("delete hook ran %d times, want 1", env.progression.deletes)
	}
}

// TestRecentWorkoutsLimit verifies the default window size and the limit
// bounds check.
func TestRecentWorkoutsLimit(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/v1/workouts/recent", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.workouts.lastLimit != goal.WindowSize {
		t.Errorf("default limit = %d, want %d", env.workouts.lastLimit, goal.WindowSize)
	}

	w = env.do(http.MethodGet, "/api/v1/workouts/recent?limit=20", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.workouts.lastLimit != 20 {
		t.Errorf("limit = %d, want 20", env.workouts.lastLimit)
	}

	for _, bad := range []string{"0", "101", "abc"} {
		w = env.do(http.MethodGet, "/api/v1/workouts/recent?limit="+bad, nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, w.Code)
		}
	}
}

// TestGetWorkoutNotFound verifies unknown ids map to 404 and garbage ids to 400.
func TestGetWorkoutNotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/v1/workouts/"+uuid.NewString(), nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = env.do(http.MethodGet, "/api/v1/workouts/not-a-uuid", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// TestProfileLifecycle verifies create then fetch, and 404 before creation.
func TestProfileLifecycle(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/v1/profile", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("pre-create status = %d, want 404", w.Code)
	}

	body := `{"full_name": "Jordan Li", "email": "jordan@example.com"}`
	w = env.do(http.MethodPost, "/api/v1/profile", strings.NewReader(body), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/v1/profile", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}
	var profile models.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decoding profile: %v", err)
	}
	if profile.FullName != "Jordan Li" {
		t.Errorf("full_name = %q", profile.FullName)
	}
	if profile.HasGoal() {
		t.Error("fresh profile should have no goal triple")
	}
}

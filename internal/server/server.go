package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nathanbai50/hacklytics/internal/models"
	"github.com/nathanbai50/hacklytics/internal/storage"
)

// WorkoutStore is the workout persistence surface the handlers consume.
// *storage.DB satisfies it; tests use in-memory stubs.
type WorkoutStore interface {
	AppendWorkoutSet(ctx context.Context, userID string, set models.WorkoutSet) (models.WorkoutSet, error)
	DeleteWorkoutSet(ctx context.Context, userID string, id uuid.UUID) (bool, error)
	QueryMostRecent(ctx context.Context, userID string, limit int) ([]models.WorkoutSet, error)
	GetWorkoutSet(ctx context.Context, userID string, id uuid.UUID) (*models.WorkoutSet, error)
	SubscribeWorkouts(ctx context.Context, userID string) (*storage.Subscription[[]models.WorkoutSet], error)
}

// ProfileStore is the profile persistence surface the handlers consume.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SubscribeProfile(ctx context.Context, userID string) (*storage.Subscription[models.UserProfile], error)
}

// Analyzer scores an uploaded push-up video.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, video io.Reader) (*models.AnalysisResult, error)
}

// Progression is the goal coordinator hook run after store writes.
type Progression interface {
	OnWorkoutSaved(ctx context.Context, userID string, saved models.WorkoutSet)
	OnWorkoutDeleted(ctx context.Context, userID string)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	workouts    WorkoutStore
	profiles    ProfileStore
	analyzer    Analyzer
	progression Progression
	log         *slog.Logger
	apiKey      string
	router      chi.Router
}

// New creates a new Server with all routes configured.
func New(workouts WorkoutStore, profiles ProfileStore, analyzer Analyzer, progression Progression, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		workouts:    workouts,
		profiles:    profiles,
		analyzer:    analyzer,
		progression: progression,
		log:         log,
		apiKey:      apiKey,
		router:      chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(UserAuth)

		r.Post("/workouts/analyze", s.handleAnalyzeWorkout)
		r.Post("/workouts", s.handleSaveWorkout)
		r.Get("/workouts/recent", s.handleRecentWorkouts)
		r.Get("/workouts/stream", s.handleWorkoutStream)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)

		r.Post("/profile", s.handleCreateProfile)
		r.Get("/profile", s.handleGetProfile)
		r.Get("/profile/stream", s.handleProfileStream)
	})
}

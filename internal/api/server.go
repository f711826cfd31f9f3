package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/logger"
)

// Server represents the Fuego API server.
type Server struct {
	fuego *fuego.Server
	deps  *Dependencies
	now   func() time.Time
	log   *zerolog.Logger
}

// Dependencies contains all service dependencies.
// Resume, Profiles and Skills are optional.
type Dependencies struct {
	Engine   Engine
	Resume   TextExtractor
	Profiles ProfileExtractor
	Skills   SkillRanker
}

// Config holds API server configuration.
type Config struct {
	Title       string
	Description string
	Version     string
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	// Add Chi middleware (Fuego is net/http compatible)
	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Logger)
	fuego.Use(s, middleware.Recoverer)

	srv := &Server{
		fuego: s,
		deps:  deps,
		now:   time.Now,
		log:   logger.Component("api"),
	}

	srv.registerRoutes()

	return srv
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(l *zerolog.Logger) {
	s.log = l
}

// SetClock replaces the time source used for remaining-time reports.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API"),
		option.Tags("System"),
	)

	// Session API
	fuego.Get(s.fuego, "/api/v1/session", s.getSession,
		option.Summary("Get Session"),
		option.Description("Returns every candidate, the active selection and the global settings"),
		option.Tags("Session"),
	)

	fuego.Put(s.fuego, "/api/v1/session/active", s.setActive,
		option.Summary("Set Active Candidate"),
		option.Description("Selects the active candidate; an empty id clears the selection"),
		option.Tags("Session"),
	)

	fuego.Post(s.fuego, "/api/v1/session/new-interview", s.startNewInterview,
		option.Summary("Start New Interview"),
		option.Description("Abandons the running interview and clears the active candidate"),
		option.Tags("Session"),
	)

	fuego.Put(s.fuego, "/api/v1/settings", s.updateSettings,
		option.Summary("Update Settings"),
		option.Description("Stores global interview settings. Invalid settings are replaced by the defaults"),
		option.Tags("Session"),
	)

	fuego.Post(s.fuego, "/api/v1/onboarding/complete", s.completeOnboarding,
		option.Summary("Complete Onboarding"),
		option.Tags("Session"),
	)

	// Candidates API
	fuego.Post(s.fuego, "/api/v1/candidates", s.addCandidate,
		option.Summary("Add Candidate"),
		option.Description("Registers a candidate with the current global settings and makes it active"),
		option.Tags("Candidates"),
	)

	fuego.Delete(s.fuego, "/api/v1/candidates", s.deleteAllCandidates,
		option.Summary("Delete All Candidates"),
		option.Tags("Candidates"),
	)

	candidates := fuego.Group(s.fuego, "/api/v1/candidates",
		option.Tags("Candidates"),
	)

	fuego.Get(candidates, "/{id}", s.getCandidate,
		option.Summary("Get Candidate"),
		option.Description("Returns a candidate and the seconds left on its active question"),
	)

	fuego.Delete(candidates, "/{id}", s.deleteCandidate,
		option.Summary("Delete Candidate"),
	)

	// Interview API
	interview := fuego.Group(s.fuego, "/api/v1/candidates/{id}",
		option.Tags("Interview"),
	)

	fuego.Post(interview, "/start", s.startInterview,
		option.Summary("Start Interview"),
		option.Description("Acquires the question set and activates the first question"),
	)

	fuego.Post(interview, "/answer", s.submitAnswer,
		option.Summary("Submit Answer"),
		option.Description("Records the answer to the active question; evaluation continues in the background"),
	)

	fuego.Post(interview, "/timeout", s.timeoutQuestion,
		option.Summary("Question Timeout"),
		option.Description("Records an empty answer when the question is still active and unanswered"),
	)

	fuego.Post(interview, "/reset", s.resetInterview,
		option.Summary("Reset Interview"),
		option.Description("Returns a completed interview to not-started"),
	)

	// Connectivity API
	fuego.Get(s.fuego, "/api/v1/connectivity", s.getConnectivity,
		option.Summary("Get Connectivity"),
		option.Tags("System"),
	)

	fuego.Put(s.fuego, "/api/v1/connectivity", s.setConnectivity,
		option.Summary("Set Connectivity"),
		option.Description("Overrides the connectivity signal until the next probe"),
		option.Tags("System"),
	)

	// Resume API
	fuego.Post(s.fuego, "/api/v1/resume", s.uploadResume,
		option.Summary("Upload Resume"),
		option.Description("Extracts text from a resume file (multipart field \"file\"), then the profile and ranked skills. Optional name, email and phone fields override the extracted values"),
		option.Tags("Candidates"),
	)
}

// Handler returns the API routes as a single handler.
func (s *Server) Handler() http.Handler {
	return s.fuego.Mux
}

// MountDocsOn mounts the OpenAPI documentation routes (/docs, /openapi.json)
// on a Chi router.
func (s *Server) MountDocsOn(r interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}, title, description string) {
	scalarHandler := ScalarHandler("/openapi.json", title, description)
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		scalarHandler.ServeHTTP(w, req)
	})

	r.Get("/openapi.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		spec := s.fuego.OpenAPI.Description()
		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	})
}

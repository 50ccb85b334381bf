package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/config"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/pipeline"
)

// Server is the HTTP API for the kneeboard build service.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	history      *history.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. hist may be nil when
// build history is disabled.
func NewServer(orch *pipeline.Orchestrator, hist *history.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		history:      hist,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/builds", s.handleBuild)
		r.Post("/api/builds/batch", s.handleBatchBuild)
		r.Get("/api/builds/{jobID}/status", s.handleBuildStatus)
		r.Get("/api/builds/{jobID}/outputs/{name}", s.handleBuildOutput)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

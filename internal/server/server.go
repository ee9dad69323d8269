package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftlog/internal/analysis"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/observability"
	"github.com/meltforce/liftlog/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	alpha    *alpha.Provider
	analyzer *analysis.Analyzer
	loc      *time.Location
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured. Calendar days in
// summaries are taken in loc.
func New(st *store.Store, alphaProvider *alpha.Provider, analyzer *analysis.Analyzer, loc *time.Location, log *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		store:    st,
		alpha:    alphaProvider,
		analyzer: analyzer,
		loc:      loc,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Mount attaches h under pattern, e.g. the MCP handler at /mcp.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)

		r.Get("/exercises", s.handleExercises)
		r.Get("/progress", s.handleProgress)
		r.Get("/summary", s.handleSummary)

		r.Get("/analysis", s.handleAnalysisStatus)
		r.Post("/analysis", s.handleAnalysis)
		r.Post("/import/alpha", s.handleAlphaImport)
	})

	s.router.Handle("/metrics", observability.Handler())
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docnav/internal/builder"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/editor"
	"github.com/dgallion1/docnav/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docnav.
type Server struct {
	router   chi.Router
	sessions *session.Store
	builder  *builder.Builder
	editor   *editor.Editor
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		builder:  builder.New(log),
		editor:   editor.New(log),
		log:      log,
		cfg:      cfg,
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
		r.Use(AuthMiddleware(s.cfg.DocnavAPIKey, s.log))

		r.Post("/api/documents", s.handleOpenDocument)
		r.Get("/api/documents", s.handleListSessions)
		r.Delete("/api/documents/{sessionID}", s.handleCloseDocument)

		r.Get("/api/documents/{sessionID}/tree", s.handleTree)
		r.Post("/api/documents/{sessionID}/resolve", s.handleResolve)
		r.Get("/api/documents/{sessionID}/changes", s.handleChanges)
		r.Post("/api/documents/{sessionID}/edits", s.handleEdits)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

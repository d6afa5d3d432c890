// Package api serves seeds, blends and sessions over HTTP.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/seed"
	"github.com/EternisAI/persona-blend/pkg/session"
)

type Options struct {
	// Safety defaults to blend.DefaultSafety. It should match the manager's.
	Safety *blend.SafetySet
	// SweepInterval is how often the owner runs Manager.Run. Reported only.
	SweepInterval time.Duration
	Logger        *log.Logger
}

type Server struct {
	manager *session.Manager
	repo    *seed.MemoryRepository
	safety  blend.SafetySet
	sweep   time.Duration
	logger  *log.Logger
	started time.Time
}

func NewServer(manager *session.Manager, repo *seed.MemoryRepository, opts Options) *Server {
	safety := blend.DefaultSafety()
	if opts.Safety != nil {
		safety = *opts.Safety
	}
	return &Server{
		manager: manager,
		repo:    repo,
		safety:  safety,
		sweep:   opts.SweepInterval,
		logger:  logging.OrDiscard(opts.Logger),
		started: time.Now(),
	}
}

func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(cors.New(cors.Options{
		AllowCredentials: true,
		AllowedOrigins:   []string{"*"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		Debug:            false,
	}).Handler)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	router.Get("/health", s.healthHandler)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthHandler)

		r.Get("/personalities", s.listPersonalitiesHandler)
		r.Post("/personalities/mix", s.mixHandler)
		r.Get("/personalities/{seedID}", s.getPersonalityHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSessionHandler)
			r.Post("/create", s.createSessionHandler)
			r.Get("/{sessionID}", s.getSessionHandler)
			r.Delete("/{sessionID}", s.deleteSessionHandler)
			r.Post("/{sessionID}/interact", s.interactHandler)
			r.Post("/{sessionID}/rebalance", s.rebalanceHandler)
			r.Put("/{sessionID}/override", s.applyOverrideHandler)
			r.Delete("/{sessionID}/override", s.clearOverrideHandler)
			r.Post("/{sessionID}/materialize", s.materializeSessionHandler)
		})

		r.Get("/analytics/overview", s.analyticsHandler)
		r.Get("/admin/cleanup_stats", s.cleanupStatsHandler)
		r.Post("/admin/manual_cleanup", s.manualCleanupHandler)
	})

	return router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       time.Now().Format(time.RFC3339),
		"seeds":           s.repo.Len(),
		"active_sessions": s.manager.Len(),
	})
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status_code"`
	Path   string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Status: status, Path: r.URL.Path})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case blend.IsInvalidMix(err):
		return http.StatusBadRequest
	case seed.IsNotFound(err):
		return http.StatusNotFound
	case blend.IsConflictUnresolved(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody leaves v untouched when the body is empty.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return errors.Wrap(err, "decode request body")
}

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/repcoach/internal/metrics"
	"github.com/meltforce/repcoach/internal/storage"
	"github.com/meltforce/repcoach/internal/trainer"
	"tailscale.com/client/local"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     storage.Store
	trainer   *trainer.Manager
	log       *slog.Logger
	apiKey    string
	tailscale *local.Client
	metrics   *metrics.Manager
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(store storage.Store, mgr *trainer.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:   store,
		trainer: mgr,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches caller identity from the local dev user to the
// tailnet login reported by lc.
func (s *Server) SetTailscale(lc *local.Client) {
	s.tailscale = lc
}

// SetMetrics enables request metrics and the /metrics endpoint.
func (s *Server) SetMetrics(m *metrics.Manager) {
	s.metrics = m
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.requestMetrics)
	s.router.Use(SecurityHeaders)
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/metrics", s.handleMetrics)
	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/levels", s.handleLevels)
	s.router.Get("/api/v1/progress", s.handleProgress)
	s.router.Post("/api/v1/progress/reset", s.handleResetProgress)

	s.router.Route("/api/v1/attempts", func(r chi.Router) {
		r.Get("/", s.handleListAttempts)

		// Live attempt endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleStartAttempt)
			r.Get("/{id}", s.handleGetAttempt)
			r.Delete("/{id}", s.handleDiscardAttempt)
			r.Post("/{id}/frames", s.handleFrame)
			r.Post("/{id}/end", s.handleEndAttempt)
		})
	})
}

// identity applies the Tailscale identity when a tailnet client is set and
// the dev identity otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tailscale != nil {
			TailscaleIdentity(s.tailscale, s.store, s.log)(next).ServeHTTP(w, r)
			return
		}
		dev.ServeHTTP(w, r)
	})
}

func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.metrics.Request(r.Method, sw.status, time.Since(start))
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}

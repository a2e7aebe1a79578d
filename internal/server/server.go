// Package server wires the HTTP router: middleware chain, ambient
// endpoints, and the domain API when a handler set is attached.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/internal/server/handlers"
	"github.com/provisionworks/orchard/internal/server/middleware"
)

// Server owns the router and the listener configuration.
type Server struct {
	host    string
	port    int
	version string
	logger  *zap.Logger

	handlers   *handlers.Handlers
	jobLimiter *rate.Limiter

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	router chi.Router
	http   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHandlers attaches the domain handler set. Without it only the
// ambient endpoints are served.
func WithHandlers(h *handlers.Handlers) Option {
	return func(s *Server) { s.handlers = h }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the reported service version.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithJobLimiter rate-limits the job-creating endpoints.
func WithJobLimiter(l *rate.Limiter) Option {
	return func(s *Server) { s.jobLimiter = l }
}

// WithTimeouts sets the listener read/write/idle timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
		s.idleTimeout = idle
	}
}

func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:         host,
		port:         port,
		version:      "dev",
		logger:       zap.NewNop(),
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the host:port listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	s.logger.Info("server listening", zap.String("addr", s.Addr()))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger(s.logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NotFound("resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.MethodNotAllowed())
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":%q}`+"\n", s.version)
	})

	if s.handlers != nil {
		s.mountAPI(r)
	}
	return r
}

func (s *Server) mountAPI(r chi.Router) {
	h := s.handlers

	// Job-creating routes share one limiter so a misbehaving client
	// cannot fork-bomb the workspace.
	limited := func(next http.HandlerFunc) http.HandlerFunc {
		if s.jobLimiter == nil {
			return next
		}
		return middleware.RateLimit(s.jobLimiter)(next).ServeHTTP
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", h.ListJobsHandler)
		r.Delete("/jobs", h.ClearJobsHandler)
		r.Get("/jobs/{id}", h.GetJobHandler)
		r.Get("/jobs/{id}/logs", h.GetJobLogsHandler)

		r.Get("/clusters", h.ListClustersHandler)
		r.Post("/clusters", limited(h.CreateClusterHandler))
		r.Get("/clusters/{id}", h.GetClusterHandler)
		r.Delete("/clusters/{id}", limited(h.DeleteClusterHandler))

		r.Post("/automation/run-task", limited(h.RunTaskHandler))
		r.Post("/automation/run-role", limited(h.RunRoleHandler))
		r.Post("/automation/run-playbook", limited(h.RunPlaybookHandler))

		r.Post("/apply", limited(h.ApplyHandler))

		r.Get("/status/auth", h.AuthStatusHandler)
		r.Get("/status/hub", h.HubStatusHandler)
		r.Get("/status/config", h.ConfigStatusHandler)

		r.Post("/resources", h.ResourcesHandler)
		r.Post("/diagnostics/run", h.RunDiagnosticsHandler)
		r.Get("/templates", h.ListTemplatesHandler)
	})

	r.Get("/ws/jobs/{id}", h.JobStreamHandler)
}

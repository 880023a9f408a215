package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blockforge/blockforge/pkg/buildinfo"
	bfio "github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/scene"
)

// Server exposes one project over HTTP.
type Server struct {
	mu      sync.Mutex
	p       *scene.Project
	logger  *log.Logger
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a server for p.
func New(p *scene.Project, opts ...Option) *Server {
	s := &Server{p: p, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Project runs fn with exclusive access to the project.
func (s *Server) Project(fn func(*scene.Project) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.p)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version, "commit": buildinfo.Commit})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/project", s.getProject)
	r.Post("/undo", s.undo)
	r.Post("/redo", s.redo)

	r.Route("/instances", func(r chi.Router) {
		r.Get("/", s.listInstances)
		r.Post("/", s.placeInstance)
		r.Get("/{id}", s.getInstance)
		r.Patch("/{id}", s.patchInstance)
		r.Delete("/{id}", s.deleteInstance)
	})
	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.listConnections)
		r.Get("/{id}", s.getConnection)
		r.Patch("/{id}", s.patchConnection)
		r.Delete("/{id}", s.breakConnection)
	})
	r.Route("/layers", func(r chi.Router) {
		r.Get("/", s.listLayers)
		r.Post("/", s.createLayer)
		r.Get("/{id}", s.getLayer)
		r.Patch("/{id}", s.patchLayer)
		r.Delete("/{id}", s.deleteLayer)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := bfio.Marshal(s.p)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

type stepResponse struct {
	Label string `json:"label"`
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, (*scene.Project).Undo)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, (*scene.Project).Redo)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request, fn func(*scene.Project, context.Context) (string, error)) {
	s.mu.Lock()
	label, err := fn(s.p, r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Label: label})
}

// flag reads a boolean query parameter; absent or malformed means false.
func flag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

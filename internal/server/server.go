// Package server exposes an editing session over HTTP. JSON endpoints drive
// the builder, the canvas and the panels, HTML endpoints render them, and a
// websocket streams every bus event to connected editors.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/canvas"
	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/controls"
	"github.com/conneroisu/mediakit/internal/designpanel"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/palette"
	"github.com/conneroisu/mediakit/internal/renderer"
	"github.com/conneroisu/mediakit/internal/templates"
	"github.com/conneroisu/mediakit/internal/version"
)

const defaultShutdownTimeout = 10 * time.Second

// Deps are the session components the server drives.
type Deps struct {
	Builder   *builder.Builder
	Canvas    *canvas.Canvas
	Panel     *designpanel.Panel
	Palette   *palette.Palette
	Controls  *controls.Controls
	Templates *templates.Library
	Adapter   *adapters.StoreAdapter
	Renderer  *renderer.ComponentRenderer
	Bus       *eventbus.Bus
	// Title is the page title of /preview.
	Title string
}

// Server serves one editing session.
type Server struct {
	config   config.ServerConfig
	deps     Deps
	logger   logging.Logger
	security *SecurityConfig
	hub      *Hub
	handler  http.Handler
	jobs     []func(context.Context) error

	serverMutex  sync.RWMutex
	httpServer   *http.Server
	addr         string
	ready        chan struct{}
	shutdownOnce sync.Once
	unsub        func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithJob runs job next to the HTTP server. Run stops when any job fails.
func WithJob(job func(context.Context) error) Option {
	return func(s *Server) { s.jobs = append(s.jobs, job) }
}

// New creates the server and subscribes its websocket hub to the bus.
func New(cfg config.ServerConfig, deps Deps, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logging.Discard(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")
	if s.deps.Bus == nil {
		s.deps.Bus = deps.Builder.Bus()
	}
	if s.deps.Title == "" {
		s.deps.Title = "Media Kit"
	}

	s.security = SecurityConfigFromAppConfig(cfg, s.logger)
	s.hub = NewHub(s.logger)
	s.unsub = s.deps.Bus.On(eventbus.Wildcard, s.hub.forward)

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.addMiddleware(mux)
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) addMiddleware(h http.Handler) http.Handler {
	h = SecurityMiddleware(s.security)(h)
	h = corsMiddleware(s.security, h)
	return loggingMiddleware(s.logger, h)
}

// Run listens on the configured address and serves until ctx is cancelled
// or a job fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.serverMutex.Unlock()
	close(s.ready)

	s.logger.Info(ctx, "Server listening", "addr", s.addr, "version", version.GetShortVersion())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.hub.Run(gctx) })
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(sctx)
	})
	for _, job := range s.jobs {
		g.Go(func() error { return job(gctx) })
	}
	return g.Wait()
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or "" before Run.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.addr
}

// Shutdown stops accepting requests and drops the bus subscription. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.unsub()
		s.serverMutex.RLock()
		srv := s.httpServer
		s.serverMutex.RUnlock()
		if srv != nil {
			s.logger.Info(ctx, "Shutting down server")
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if st := s.deps.Builder.Status(); st != builder.StatusReady {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	health := map[string]any{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]any{
			"builder":   map[string]any{"status": string(s.deps.Builder.Status()), "kit": s.deps.Builder.KitID()},
			"registry":  map[string]any{"components": s.deps.Builder.Registry().Count()},
			"eventbus":  s.deps.Bus.Stats(),
			"websocket": map[string]any{"clients": s.hub.ClientCount()},
		},
	}
	s.writeJSON(w, r, code, health)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}

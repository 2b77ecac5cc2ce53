package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

// PageBuilder produces the page for one HTTP request. The store passed in
// is the request's own: writes made while building seed the page's state
// snapshot.
type PageBuilder func(r *http.Request, s *state.Store) render.Page

// Server serves rendered pages over HTTP and live sessions over WebSocket.
type Server struct {
	config       *Config
	registry     *view.Registry
	router       chi.Router
	sessions     *SessionManager
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	metrics      *Metrics
	rootView     any
	storeFactory func() *state.Store

	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithStoreFactory sets the per-request and per-session store constructor.
// Use it to seed every store with initial application state.
func WithStoreFactory(f func() *state.Store) ServerOption {
	return func(s *Server) { s.storeFactory = f }
}

// WithRootView sets the view rendered into every live session's tree on
// connect. Typically a component reference.
func WithRootView(v any) ServerOption {
	return func(s *Server) { s.rootView = v }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics sets the Prometheus instruments. Nil disables collection.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// New creates a server for the given component registry.
func New(config *Config, registry *view.Registry, opts ...ServerOption) *Server {
	config = config.withDefaults()

	s := &Server{
		config:   config,
		registry: registry,
		logger:   slog.Default().With("component", "server"),
		rootView: map[string]any{"div": map[string]any{"id": "app"}},
		storeFactory: func() *state.Store {
			return state.New(nil)
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sessions = NewSessionManager(config.SessionTTL, s.logger.With("component", "sessions"))

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/live", s.handleLive)
	s.router = r

	return s
}

// HandlePage registers a server-rendered page at the given chi pattern.
func (s *Server) HandlePage(pattern string, build PageBuilder) {
	s.router.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, build)
	})
}

// Handler returns the server's HTTP handler, for mounting under an outer
// router or for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager { return s.sessions }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// servePage renders one page with a fresh store and streams it out. The
// store's state is embedded as a hydration snapshot so the client starts
// from the server-computed values.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, build PageBuilder) {
	start := time.Now()

	store := s.storeFactory()
	page := build(r, store)

	if page.StateSnapshot == nil {
		if snap, err := store.Snapshot(); err == nil {
			page.StateSnapshot = snap
		} else {
			s.logger.Warn("state snapshot failed", "error", err)
		}
	}

	renderer := render.NewRenderer(store, s.registry,
		render.WithLogger(s.logger.With("component", "render")))

	result, err := renderer.RenderPage(page)
	if err != nil {
		s.logger.Error("page render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	mode := "sync"
	if !result.Sync() {
		mode = "async"
	}

	html, err := result.Await(r.Context())
	if err != nil {
		s.logger.Error("page await failed", "path", r.URL.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	if s.metrics != nil {
		s.metrics.PageRenders.WithLabelValues(mode).Inc()
		s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// handleLive upgrades the connection and runs a live session until the
// client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess, err := s.newSession(conn)
	if err != nil {
		s.logger.Error("session setup failed", "error", err)
		conn.Close()
		return
	}

	s.sessions.Add(sess)
	if s.metrics != nil {
		s.metrics.SessionsTotal.Inc()
		s.metrics.ActiveSessions.Inc()
	}
	s.logger.Info("session started", "session", sess.ID)

	// Ship the initial render before entering the loops.
	sess.Flush()

	go sess.WriteLoop()
	sess.ReadLoop()

	s.sessions.Remove(sess.ID)
}

// ListenAndServe starts the HTTP server and blocks until ctx is canceled,
// then drains sessions and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.sessions.Stop()
	return s.httpServer.Shutdown(shutdownCtx)
}

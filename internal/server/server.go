package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wesm/outboundview/internal/config"
	"github.com/wesm/outboundview/internal/dashboard"
	"github.com/wesm/outboundview/internal/db"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server that serves the dashboard page and
// the JSON API.
type Server struct {
	mu       gosync.RWMutex
	cfg      config.Config
	db       *db.DB
	dash     *dashboard.Service
	router   chi.Router
	httpSrv  *http.Server
	version  VersionInfo
	logger   *zap.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server.
func New(
	cfg config.Config, database *db.DB, dash *dashboard.Service,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:    cfg,
		db:     database,
		dash:   dash,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.requests = promauto.With(s.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outboundview",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the request and lifecycle logger. Nil is
// ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry sets the registry served on /metrics. The
// request counter is registered on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Method(http.MethodGet, "/", s.withTimeout(s.handleDashboardPage))
	r.Method(http.MethodPost, "/refresh", s.withTimeout(s.handleRefreshForm))

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/dashboard", s.withTimeout(s.handleDashboard))
		r.Method(http.MethodGet, "/accounts", s.withTimeout(s.handleAccounts))
		r.Method(http.MethodGet, "/origins", s.withTimeout(s.handleOrigins))
		r.Method(http.MethodGet, "/funnels", s.withTimeout(s.handleFunnels))
		r.Method(http.MethodPost, "/refresh", s.withTimeout(s.handleRefresh))
		r.Method(http.MethodGet, "/version", s.withTimeout(s.handleGetVersion))
	})

	r.Method(http.MethodGet, "/healthz", s.withTimeout(s.handleHealth))
	// Scrapes are not wrapped in the timeout handler so the
	// exposition is streamed, not buffered.
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.registry, promhttp.HandlerOpts{},
	))

	s.router = r
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	s.logger.Info("starting server",
		zap.String("url", fmt.Sprintf("http://%s", addr)))
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

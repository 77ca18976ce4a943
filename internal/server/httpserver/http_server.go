// Package httpserver hosts the webhook, health and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	derrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/server/handlers"
	smw "git.home.luguber.info/inful/texbuilder/internal/server/middleware"
)

const (
	HealthPath  = "/healthz"
	idleTimeout = 60 * time.Second
)

// Options carries optional collaborators.
type Options struct {
	// Registry, when set, is served on MetricsPath.
	Registry    *prom.Registry
	MetricsPath string
	Recorder    metrics.Recorder
}

// Server manages the HTTP listener.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	handler    http.Handler
	listener   net.Listener
}

// New wires the routes. jobs runs webhook requests.
func New(cfg config.ServerConfig, jobs handlers.JobStarter, opts Options) *Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.WebhookPath, handlers.NewWebhookHandler(jobs, cfg.MaxBodyBytes, opts.Recorder))
	mux.HandleFunc(HealthPath, handlers.NewMonitoringHandlers(time.Now()).HandleHealthCheck)
	if opts.Registry != nil && opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, metrics.HTTPHandler(opts.Registry))
	}

	chain := smw.Chain(slog.Default(), derrors.NewHTTPErrorAdapter(slog.Default()))
	return &Server{cfg: cfg, handler: chain(mux)}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the port and serves in the background. Binding happens before
// Start returns so an occupied port fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("http startup failed: port %d: %w", s.cfg.Port, err)
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves on a pre-bound listener.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webhook server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started",
		slog.String("addr", ln.Addr().String()),
		logfields.Path(s.cfg.WebhookPath))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server, waiting for in-flight handlers.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/git"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/pipeline"
	"git.home.luguber.info/inful/texbuilder/internal/process"
	"git.home.luguber.info/inful/texbuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/texbuilder/internal/storage"
	"git.home.luguber.info/inful/texbuilder/internal/webhook"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port int `short:"p" help:"Override the listen port from the configuration"`
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	return RunServe(cfg)
}

// RunServe serves webhooks until SIGINT or SIGTERM.
func RunServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.start(ctx); err != nil {
		return err
	}

	slog.Info("Serving webhooks, waiting for shutdown signal...",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", string(cfg.Storage.Backend)),
		slog.String("clone_backend", string(cfg.Clone.Backend)))
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping server...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := svc.stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	slog.Info("Server stopped successfully")
	return nil
}

// service holds the long-running parts of 'serve'.
type service struct {
	cfg     *config.Config
	jobs    *pipeline.Orchestrator
	server  *httpserver.Server
	janitor *workspace.Janitor
}

func newService(ctx context.Context, cfg *config.Config) (*service, error) {
	runner := process.NewExecRunner()

	cloner, err := git.NewCloner(cfg.Clone, runner)
	if err != nil {
		return nil, fmt.Errorf("clone backend: %w", err)
	}
	store, err := storage.New(ctx, cfg.Storage, runner)
	if err != nil {
		return nil, fmt.Errorf("storage backend: %w", err)
	}

	validator := webhook.NewValidator(cfg.Secret)
	if !validator.RequiresToken() {
		slog.Warn("No webhook secret configured, accepting requests without a token")
	}

	ws := workspace.NewManager(cfg.Workspace.BaseDir, cfg.Workspace.Prefix)
	executor := latex.NewExecutor(runner, cfg.Build.Steps, cfg.Build.StepArgs)

	opts := []pipeline.Option{
		pipeline.WithDeadline(cfg.Watchdog.Deadline),
		pipeline.WithHTTPClone(cfg.Clone.Protocol == config.CloneProtocolHTTP),
		pipeline.WithArtifactExt(cfg.Build.ArtifactExt),
	}
	srvOpts := httpserver.Options{}
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		rec := metrics.NewPrometheusRecorder(reg)
		opts = append(opts, pipeline.WithRecorder(rec))
		srvOpts = httpserver.Options{Registry: reg, MetricsPath: cfg.Metrics.Path, Recorder: rec}
	}

	svc := &service{cfg: cfg}
	svc.jobs = pipeline.New(validator, cloner, executor, store, ws, opts...)
	svc.server = httpserver.New(cfg.Server, svc.jobs, srvOpts)

	if cfg.Workspace.JanitorInterval > 0 {
		svc.janitor, err = workspace.NewJanitor(ws, cfg.Workspace.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("workspace janitor: %w", err)
		}
	}
	return svc, nil
}

func (s *service) start(ctx context.Context) error {
	if s.janitor != nil {
		if err := s.janitor.Start(s.cfg.Workspace.JanitorInterval); err != nil {
			return fmt.Errorf("start workspace janitor: %w", err)
		}
	}
	if err := s.server.Start(ctx); err != nil {
		if s.janitor != nil {
			_ = s.janitor.Stop()
		}
		return err
	}
	return nil
}

// stop closes the listener, then waits for workers still running after
// their client was answered early.
func (s *service) stop(ctx context.Context) error {
	var errs []error
	if err := s.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.jobs.Drain(ctx); err != nil {
		slog.Warn("Build jobs still running at shutdown", logfields.Error(err))
		errs = append(errs, fmt.Errorf("drain jobs: %w", err))
	}
	if s.janitor != nil {
		if err := s.janitor.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

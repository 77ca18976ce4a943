package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Janitor periodically removes stale job directories, e.g. those left behind
// when the process was killed mid-build.
type Janitor struct {
	manager   *Manager
	maxAge    time.Duration
	scheduler gocron.Scheduler
}

// NewJanitor creates a janitor removing inactive directories older than maxAge.
func NewJanitor(manager *Manager, maxAge time.Duration) (*Janitor, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Janitor{manager: manager, maxAge: maxAge, scheduler: s}, nil
}

// Start schedules a sweep every interval and starts the scheduler.
func (j *Janitor) Start(interval time.Duration) error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := j.Sweep(time.Now()); err != nil {
				slog.Warn("Workspace sweep failed", logfields.Error(err))
			}
		}),
		gocron.WithName("workspace-janitor"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule workspace janitor: %w", err)
	}
	slog.Info("Starting workspace janitor",
		logfields.Path(j.manager.BaseDir()),
		slog.Duration("interval", interval),
		slog.Duration("max_age", j.maxAge))
	j.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep.
func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}

// Sweep removes every inactive <prefix>* directory whose modification time is
// older than maxAge relative to now. It returns the removed paths.
func (j *Janitor) Sweep(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(j.manager.BaseDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace base: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), j.manager.Prefix()) {
			continue
		}
		path := filepath.Join(j.manager.BaseDir(), e.Name())
		if j.manager.IsActive(path) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < j.maxAge {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove stale working directory", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Info("Removed stale working directory", logfields.Path(path))
		removed = append(removed, path)
	}
	return removed, nil
}

package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

const shortIDLen = 8

// Manager hands out isolated job directories below baseDir, named
// <prefix><repo>-<short job id>.
type Manager struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager creates a workspace manager. A relative baseDir is resolved
// against the current directory.
func NewManager(baseDir, prefix string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Manager{
		baseDir: baseDir,
		prefix:  prefix,
		active:  make(map[string]struct{}),
	}
}

// BaseDir returns the directory job workspaces are created in.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Prefix returns the directory name prefix of job workspaces.
func (m *Manager) Prefix() string {
	return m.prefix
}

// Path returns the working directory for repo within job jobID. The directory
// is not created.
func (m *Manager) Path(repo, jobID string) string {
	id := strings.ReplaceAll(jobID, "-", "")
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	name := m.prefix + repo
	if id != "" {
		name += "-" + id
	}
	return filepath.Join(m.baseDir, name)
}

// Acquire marks path as in use and removes anything already there. The
// janitor never sweeps acquired paths.
func (m *Manager) Acquire(path string) error {
	m.mu.Lock()
	m.active[path] = struct{}{}
	m.mu.Unlock()

	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "unable to create workspace base directory").
			WithContext("path", m.baseDir).Build()
	}

	if _, err := os.Lstat(path); err == nil {
		slog.Debug("Removing existing working directory", logfields.Path(path))
		if err := os.RemoveAll(path); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem,
				fmt.Sprintf("unable to delete existing repo directory: %v", err)).
				WithContext("path", path).Build()
		}
	}
	return nil
}

// Release removes path and forgets it. It is safe to call more than once and
// on paths that never existed.
func (m *Manager) Release(path string) error {
	defer func() {
		m.mu.Lock()
		delete(m.active, path)
		m.mu.Unlock()
	}()

	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Info("Cleaned up working directory", logfields.Path(path))
	return nil
}

// IsActive reports whether path is currently acquired.
func (m *Manager) IsActive(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[path]
	return ok
}

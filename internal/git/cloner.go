package git

import (
	"context"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

// Cloner clones url into dest, which must not exist yet. The returned output
// is the clone trace, also on failure.
type Cloner interface {
	Clone(ctx context.Context, url, dest string) (output string, err error)
}

// NewCloner builds the backend selected by cfg.
func NewCloner(cfg config.CloneConfig, runner process.Runner) (Cloner, error) {
	switch cfg.Backend {
	case config.CloneBackendGoGit:
		return NewGoGitCloner(cfg.SSHKeyPath, cfg.Depth)
	default:
		return NewExecCloner(runner, cfg.Depth), nil
	}
}

// Package storage publishes compiled artifacts to remote storage.
package storage

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

// Store prepares a remote folder per repository and uploads artifacts into it.
// Both operations return human-readable output that ends up in the upload log
// when they fail.
type Store interface {
	// PrepareFolder makes sure folder exists remotely. Existing folders are fine.
	PrepareFolder(ctx context.Context, folder string) (output string, err error)
	// Upload copies the local file src to dest, a slash-separated path
	// "<folder>/<name>".
	Upload(ctx context.Context, dest, src string) (output string, err error)
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig, runner process.Runner) (Store, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		return NewS3Store(ctx, cfg.S3)
	case config.StorageBackendLocal:
		return NewLocalStore(cfg.Local.Dir)
	case config.StorageBackendScript, "":
		return NewScriptStore(runner, cfg.Script.Mkdir, cfg.Script.Upload), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func storageError(op, target string, cause error) error {
	return errors.StorageError(op+" failed").
		WithCause(cause).
		WithContext("target", target).
		Build()
}

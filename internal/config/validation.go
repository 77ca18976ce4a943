package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// ConfigLoadError wraps err as a fatal configuration error.
func ConfigLoadError(message string, err error) error {
	return errors.WrapError(err, errors.CategoryConfig, message).Fatal().Build()
}

// ValidateConfig rejects configurations the server cannot run with.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return invalid("server.port", fmt.Sprintf("port %d out of range", cfg.Server.Port))
	}
	if !strings.HasPrefix(cfg.Server.WebhookPath, "/") {
		return invalid("server.webhook_path", "must start with '/'")
	}
	if cfg.Workspace.Prefix == "" {
		return invalid("workspace.prefix", "must not be empty")
	}
	if strings.ContainsAny(cfg.Workspace.Prefix, `/\`) {
		return invalid("workspace.prefix", "must not contain path separators")
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Watchdog.Deadline >= cfg.Server.WriteTimeout {
		return invalid("watchdog.deadline", fmt.Sprintf("deadline %s must be shorter than server.write_timeout %s",
			cfg.Watchdog.Deadline, cfg.Server.WriteTimeout))
	}
	for i, step := range cfg.Build.Steps {
		if strings.TrimSpace(step) == "" {
			return invalid("build.steps", fmt.Sprintf("step %d is empty", i))
		}
	}
	if !strings.HasPrefix(cfg.Build.ArtifactExt, ".") {
		return invalid("build.artifact_ext", "must start with '.'")
	}

	switch cfg.Storage.Backend {
	case StorageBackendS3:
		if cfg.Storage.S3.Bucket == "" {
			return invalid("storage.s3.bucket", "required for the s3 backend")
		}
	case StorageBackendLocal:
		if cfg.Storage.Local.Dir == "" {
			return invalid("storage.local.dir", "required for the local backend")
		}
	default:
		if len(cfg.Storage.Script.Mkdir) == 0 || len(cfg.Storage.Script.Upload) == 0 {
			return invalid("storage.script", "mkdir and upload commands are required")
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return errors.ConfigError("invalid configuration").
		WithContext("field", field).
		WithCause(fmt.Errorf("%s: %s", field, reason)).
		Build()
}

// Package config loads texbuilder's process-wide configuration from YAML, .env files
// and environment variables. Configuration is fixed at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete texbuilder configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Secret    string          `yaml:"secret" env:"GITLAB_SECRET_TOKEN"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Clone     CloneConfig     `yaml:"clone"`
	Build     BuildConfig     `yaml:"build"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig represents HTTP listener configuration.
type ServerConfig struct {
	Port         int           `yaml:"port" env:"TEXBUILDER_PORT"`
	WebhookPath  string        `yaml:"webhook_path" env:"TEXBUILDER_WEBHOOK_PATH"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// WorkspaceConfig controls where repositories are cloned.
type WorkspaceConfig struct {
	BaseDir         string        `yaml:"base_dir" env:"TEXBUILDER_WORKSPACE_DIR"`
	Prefix          string        `yaml:"prefix" env:"TEXBUILDER_REPO_PREFIX"`
	JanitorInterval time.Duration `yaml:"janitor_interval"` // 0 disables the janitor
	MaxAge          time.Duration `yaml:"max_age"`
}

// WatchdogConfig controls the per-request response deadline.
type WatchdogConfig struct {
	Deadline time.Duration `yaml:"deadline" env:"TEXBUILDER_DEADLINE"`
}

// CloneBackend selects how repositories are cloned.
type CloneBackend string

const (
	CloneBackendExec  CloneBackend = "exec"
	CloneBackendGoGit CloneBackend = "go-git"
)

// CloneProtocol selects which clone URL of the push payload is used.
type CloneProtocol string

const (
	CloneProtocolSSH  CloneProtocol = "ssh"
	CloneProtocolHTTP CloneProtocol = "http"
)

// CloneConfig represents repository clone configuration.
type CloneConfig struct {
	Backend    CloneBackend  `yaml:"backend" env:"TEXBUILDER_CLONE_BACKEND"`
	Protocol   CloneProtocol `yaml:"protocol" env:"TEXBUILDER_CLONE_PROTOCOL"`
	SSHKeyPath string        `yaml:"ssh_key_path" env:"TEXBUILDER_SSH_KEY_PATH"`
	Depth      int           `yaml:"depth"`
}

// BuildConfig describes the typesetting passes run for every requested document.
type BuildConfig struct {
	Steps       []string            `yaml:"steps" env:"TEXBUILDER_STEPS" envSeparator:","`
	StepArgs    map[string][]string `yaml:"step_args"`
	ArtifactExt string              `yaml:"artifact_ext"`
}

// StorageBackend selects the remote storage implementation.
type StorageBackend string

const (
	StorageBackendScript StorageBackend = "script"
	StorageBackendS3     StorageBackend = "s3"
	StorageBackendLocal  StorageBackend = "local"
)

// StorageConfig represents remote storage configuration.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend" env:"TEXBUILDER_STORAGE_BACKEND"`
	Script  ScriptConfig   `yaml:"script"`
	S3      S3Config       `yaml:"s3"`
	Local   LocalConfig    `yaml:"local"`
}

// ScriptConfig holds the command prefixes for the script storage backend.
// The folder name, or destination and source paths, are appended as arguments.
type ScriptConfig struct {
	Mkdir  []string `yaml:"mkdir"`
	Upload []string `yaml:"upload"`
}

// S3Config represents S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"TEXBUILDER_S3_ENDPOINT"`
	Bucket    string `yaml:"bucket" env:"TEXBUILDER_S3_BUCKET"`
	Region    string `yaml:"region" env:"TEXBUILDER_S3_REGION"`
	AccessKey string `yaml:"access_key" env:"TEXBUILDER_S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"TEXBUILDER_S3_SECRET_KEY"`
}

// LocalConfig configures the local directory backend.
type LocalConfig struct {
	Dir string `yaml:"dir" env:"TEXBUILDER_LOCAL_STORAGE_DIR"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"TEXBUILDER_METRICS_ENABLED"`
	Path    string `yaml:"path"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"TEXBUILDER_LOG_LEVEL"`
	Format LogFormat `yaml:"format" env:"TEXBUILDER_LOG_FORMAT"`
}

// Load loads configuration from configPath. A missing file is not an error: the
// built-in defaults are used, still subject to .env and environment overrides.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			fmt.Fprintf(os.Stderr, "Note: configuration file %s not found, using defaults\n", configPath)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			// Expand environment variables in the YAML content
			expandedData := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

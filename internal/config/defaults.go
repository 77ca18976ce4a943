package config

import (
	"time"
)

const (
	DefaultPort         = 3838
	DefaultRepoPrefix   = "repo-"
	DefaultDeadline     = 9 * time.Second
	DefaultArtifactExt  = ".pdf"
	DefaultMaxBodyBytes = 5 << 20
)

// DefaultSteps is the usual LaTeX sequence: a first pass, bibliography, and two
// more passes so cross-references and citations settle.
func DefaultSteps() []string {
	return []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}
}

// DefaultStepArgs returns the extra arguments applied per step name.
func DefaultStepArgs() map[string][]string {
	return map[string][]string{"pdflatex": {"-interaction=nonstopmode"}}
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			WebhookPath:  "/",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 15 * time.Second,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Workspace: WorkspaceConfig{
			BaseDir:         ".",
			Prefix:          DefaultRepoPrefix,
			JanitorInterval: 10 * time.Minute,
			MaxAge:          time.Hour,
		},
		Watchdog: WatchdogConfig{Deadline: DefaultDeadline},
		Clone: CloneConfig{
			Backend:  CloneBackendExec,
			Protocol: CloneProtocolSSH,
		},
		Build: BuildConfig{
			Steps:       DefaultSteps(),
			StepArgs:    DefaultStepArgs(),
			ArtifactExt: DefaultArtifactExt,
		},
		Storage: StorageConfig{
			Backend: StorageBackendScript,
			Script: ScriptConfig{
				Mkdir:  []string{"bash", "cloud_mkdir.sh"},
				Upload: []string{"bash", "cloud_upload.sh"},
			},
			S3: S3Config{Region: "us-east-1"},
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// applyDefaults fills zero values left behind by a partial YAML document and
// normalizes enum spellings. Unknown backend or protocol names are rejected.
func applyDefaults(cfg *Config) error {
	def := Default()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = def.Server.WebhookPath
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}

	if cfg.Workspace.BaseDir == "" {
		cfg.Workspace.BaseDir = def.Workspace.BaseDir
	}
	if cfg.Workspace.MaxAge <= 0 {
		cfg.Workspace.MaxAge = def.Workspace.MaxAge
	}

	if cfg.Watchdog.Deadline <= 0 {
		cfg.Watchdog.Deadline = def.Watchdog.Deadline
	}

	var err error
	if cfg.Clone.Backend, err = cloneBackendNormalizer.Parse(string(cfg.Clone.Backend)); err != nil {
		return invalid("clone.backend", err.Error())
	}
	if cfg.Clone.Protocol, err = cloneProtocolNormalizer.Parse(string(cfg.Clone.Protocol)); err != nil {
		return invalid("clone.protocol", err.Error())
	}

	if len(cfg.Build.Steps) == 0 {
		cfg.Build.Steps = def.Build.Steps
	}
	if cfg.Build.StepArgs == nil {
		cfg.Build.StepArgs = map[string][]string{}
	}
	if cfg.Build.ArtifactExt == "" {
		cfg.Build.ArtifactExt = def.Build.ArtifactExt
	}

	if cfg.Storage.Backend, err = storageBackendNormalizer.Parse(string(cfg.Storage.Backend)); err != nil {
		return invalid("storage.backend", err.Error())
	}
	if len(cfg.Storage.Script.Mkdir) == 0 {
		cfg.Storage.Script.Mkdir = def.Storage.Script.Mkdir
	}
	if len(cfg.Storage.Script.Upload) == 0 {
		cfg.Storage.Script.Upload = def.Storage.Script.Upload
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = def.Storage.S3.Region
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = def.Metrics.Path
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

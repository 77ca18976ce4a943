package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "repo-", cfg.Workspace.Prefix)
	assert.Equal(t, 9*time.Second, cfg.Watchdog.Deadline)
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, cfg.Build.Steps)
	assert.Equal(t, []string{"-interaction=nonstopmode"}, cfg.Build.StepArgs["pdflatex"])
	assert.Equal(t, StorageBackendScript, cfg.Storage.Backend)
	assert.Equal(t, CloneBackendExec, cfg.Clone.Backend)
}

func TestLoad_YAMLAndEnvExpansion(t *testing.T) {
	t.Setenv("TB_TEST_SECRET", "abc")
	path := writeConfig(t, `
server:
  port: 9000
secret: ${TB_TEST_SECRET}
watchdog:
  deadline: 5s
clone:
  backend: GO-GIT
  protocol: https
build:
  steps: [lualatex, biber, lualatex]
  step_args:
    lualatex: ["-interaction=nonstopmode", "-halt-on-error"]
logging:
  level: DEBUG
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.Secret)
	assert.Equal(t, 5*time.Second, cfg.Watchdog.Deadline)
	assert.Equal(t, CloneBackendGoGit, cfg.Clone.Backend)
	assert.Equal(t, CloneProtocolHTTP, cfg.Clone.Protocol)
	assert.Equal(t, []string{"lualatex", "biber", "lualatex"}, cfg.Build.Steps)
	assert.Equal(t, []string{"-interaction=nonstopmode", "-halt-on-error"}, cfg.Build.StepArgs["lualatex"])
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GITLAB_SECRET_TOKEN", "from-env")
	t.Setenv("TEXBUILDER_PORT", "4040")
	t.Setenv("TEXBUILDER_REPO_PREFIX", "job-")
	t.Setenv("TEXBUILDER_STEPS", "xelatex,xelatex")

	path := writeConfig(t, "server:\n  port: 9000\nsecret: from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Secret)
	assert.Equal(t, 4040, cfg.Server.Port)
	assert.Equal(t, "job-", cfg.Workspace.Prefix)
	assert.Equal(t, []string{"xelatex", "xelatex"}, cfg.Build.Steps)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_UnknownBackendRejected(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: owncloud\n")
	_, err := Load(path)
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	field, _ := ce.Context().GetString("field")
	assert.Equal(t, "storage.backend", field)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"prefix with separator", func(c *Config) { c.Workspace.Prefix = "a/b" }, "workspace.prefix"},
		{"deadline beyond write timeout", func(c *Config) { c.Watchdog.Deadline = time.Minute }, "watchdog.deadline"},
		{"empty step", func(c *Config) { c.Build.Steps = []string{"pdflatex", " "} }, "build.steps"},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = StorageBackendS3 }, "storage.s3.bucket"},
		{"relative webhook path", func(c *Config) { c.Server.WebhookPath = "hook" }, "server.webhook_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)

			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryConfig, ce.Category())
			field, _ := ce.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}

	require.NoError(t, ValidateConfig(Default()))
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "second init without force must fail")
	require.NoError(t, Init(path, true))

	t.Setenv("GITLAB_SECRET_TOKEN", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf = &testWriter{}
	logger := LoggingConfig{Level: LogLevelWarn, Format: LogFormatJSON}.NewLogger(buf, false)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

type testWriter struct{ data []byte }

func (w *testWriter) Write(p []byte) (int, error) { w.data = append(w.data, p...); return len(p), nil }
func (w *testWriter) String() string             { return string(w.data) }

package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/process"
	"git.home.luguber.info/inful/texbuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

type stepRunner struct {
	failOn string
}

func (r stepRunner) Run(_ context.Context, _ string, name string, args ...string) (process.Result, error) {
	if args[len(args)-1] == r.failOn && name == "bibtex" {
		return process.Result{ExitCode: 2, Stdout: "I found no \\citation commands", Stderr: "bibtex failed"}, nil
	}
	return process.Result{Stdout: "ok"}, nil
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texbuilder.yaml")
	var out bytes.Buffer

	require.NoError(t, RunInit(&out, path, false))
	assert.Contains(t, out.String(), "Writing configuration to "+path)
	assert.FileExists(t, path)

	out.Reset()
	require.Error(t, RunInit(&out, path, false))
	assert.Contains(t, out.String(), "Initialization failed")
	require.NoError(t, RunInit(&out, path, true))
}

func TestCLI_InitRunsWithParsedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texbuilder.yaml")
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("texbuilder"), kong.Vars{"version": version.String()})
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"--config", path, "init"})
	require.NoError(t, err)
	require.NoError(t, ctx.Run(cli))
	assert.FileExists(t, path)
}

func TestRunCompile_Clean(t *testing.T) {
	exec := latex.NewExecutor(stepRunner{}, config.DefaultSteps(), config.DefaultStepArgs())
	var out bytes.Buffer

	require.NoError(t, RunCompile(context.Background(), &out, exec, t.TempDir(), []string{"a.tex"}))
	assert.True(t, strings.HasPrefix(out.String(), "# Build Log\nno build errors\n"), out.String())
}

func TestRunCompile_ReportsFailures(t *testing.T) {
	exec := latex.NewExecutor(stepRunner{failOn: "b"}, config.DefaultSteps(), config.DefaultStepArgs())
	var out bytes.Buffer

	err := RunCompile(context.Background(), &out, exec, t.TempDir(), []string{"a.tex", "b.tex"})
	require.ErrorIs(t, err, errBuildFailed)
	assert.Contains(t, out.String(), "\n### b.tex:\n\nbibtex:I found no \\citation commands")
	assert.NotContains(t, out.String(), "### a.tex")
}

func serviceConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Workspace.BaseDir = t.TempDir()
	cfg.Workspace.JanitorInterval = time.Hour
	cfg.Storage.Backend = config.StorageBackendLocal
	cfg.Storage.Local.Dir = t.TempDir()
	return cfg
}

func TestService_StartStop(t *testing.T) {
	svc, err := newService(context.Background(), serviceConfig(t))
	require.NoError(t, err)
	require.NotNil(t, svc.janitor)

	require.NoError(t, svc.start(context.Background()))
	assert.NotEmpty(t, svc.server.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.stop(ctx))
}

func TestService_Routes(t *testing.T) {
	cfg := serviceConfig(t)
	cfg.Workspace.JanitorInterval = 0
	svc, err := newService(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, svc.janitor)

	for _, path := range []string{httpserver.HealthPath, cfg.Metrics.Path} {
		rec := httptest.NewRecorder()
		svc.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.Server.WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestService_UnknownStorageBackend(t *testing.T) {
	cfg := serviceConfig(t)
	cfg.Storage.Backend = "ftp"
	_, err := newService(context.Background(), cfg)
	require.ErrorContains(t, err, "storage backend")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := loadConfig(&CLI{Config: filepath.Join(t.TempDir(), "absent.yaml")})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Equal(t, config.StorageBackendScript, cfg.Storage.Backend)
}

// Package process runs external commands and captures their output.
//
// Every external collaborator of the build pipeline (git, the typesetting
// toolchain, storage scripts) goes through a Runner, so tests can substitute
// a scripted implementation without touching the host toolchain.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Result is the captured outcome of one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Failed reports whether the command exited nonzero or could not be started.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Combined returns stderr followed by stdout, skipping empty streams.
func (r Result) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stderr + "\n" + r.Stdout
	}
}

// Runner executes a command in dir. A nonzero exit is reported through
// Result.ExitCode, never as an error; the error is reserved for commands that
// could not be started at all (ExitCode is then -1).
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	// Env, when non-nil, replaces the inherited environment.
	Env []string
}

// NewExecRunner returns a Runner that inherits the process environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == 0 {
			// killed by a signal
			res.ExitCode = -1
		}
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("start %s: %w", name, err)
	}

	slog.Debug("Command finished",
		logfields.Command(CommandLine(name, args...)),
		logfields.Path(dir),
		logfields.ExitCode(res.ExitCode),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// CommandLine renders name and args for logs and reports.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

package git

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

// ExecCloner runs `git clone` through a process.Runner.
type ExecCloner struct {
	runner process.Runner
	depth  int
}

// NewExecCloner returns a cloner using the git binary. depth > 0 requests a
// shallow clone.
func NewExecCloner(runner process.Runner, depth int) *ExecCloner {
	return &ExecCloner{runner: runner, depth: depth}
}

// Clone runs git from the parent of dest. A relative dest is made absolute
// first so it does not resolve against that parent a second time.
func (c *ExecCloner) Clone(ctx context.Context, url, dest string) (string, error) {
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	args := []string{"clone"}
	if c.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(c.depth))
	}
	args = append(args, url, dest)

	slog.Debug("Cloning repository", logfields.URL(url), logfields.Path(dest))
	res, err := c.runner.Run(ctx, filepath.Dir(dest), "git", args...)
	output := res.Combined()
	if err != nil {
		return output + err.Error(), classifyCloneError(url, err)
	}
	if res.Failed() {
		return output, classifyCloneError(url, &exitError{code: res.ExitCode, output: output})
	}
	return output, nil
}

type exitError struct {
	code   int
	output string
}

func (e *exitError) Error() string {
	return "git exited with status " + strconv.Itoa(e.code) + ": " + e.output
}

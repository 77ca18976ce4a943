// Package latex runs the typesetting toolchain over one document at a time.
package latex

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

// StepEvent describes the step about to run. Index is zero-based.
type StepEvent struct {
	File  string
	Step  string
	Index int
	Total int
}

// StepResult is reported after each step finishes.
type StepResult struct {
	StepEvent
	Result process.Result
	Err    error
}

// Observer receives step progress. Either hook may be nil.
type Observer struct {
	OnStepStart func(StepEvent)
	OnStepDone  func(StepResult)
}

// Executor runs an ordered list of steps against a document.
type Executor struct {
	runner   process.Runner
	steps    []string
	stepArgs map[string][]string
	observer Observer
}

// NewExecutor creates an executor. stepArgs maps a step name to the extra
// arguments placed before the document name.
func NewExecutor(runner process.Runner, steps []string, stepArgs map[string][]string) *Executor {
	return &Executor{
		runner:   runner,
		steps:    append([]string(nil), steps...),
		stepArgs: stepArgs,
	}
}

// WithObserver returns a copy of the executor reporting to obs.
func (e *Executor) WithObserver(obs Observer) *Executor {
	cp := *e
	cp.observer = obs
	return &cp
}

// Steps returns the configured step names.
func (e *Executor) Steps() []string {
	return append([]string(nil), e.steps...)
}

// Compile runs every step for file, a path relative to workdir. Steps run in
// the document's directory with the extension-less base name as the final
// argument. A failing step does not stop the remaining ones. The output of
// each failing step is appended to stdout/stderr under a "\n<step>:" label.
func (e *Executor) Compile(ctx context.Context, workdir, file string) (failed bool, stdout, stderr string) {
	dir := DocumentDir(workdir, file)
	base := BaseName(file)

	var outBuf, errBuf strings.Builder
	for i, step := range e.steps {
		ev := StepEvent{File: file, Step: step, Index: i, Total: len(e.steps)}
		if e.observer.OnStepStart != nil {
			e.observer.OnStepStart(ev)
		}

		args := append(append([]string(nil), e.stepArgs[step]...), base)
		slog.Info("Running build step",
			logfields.File(file),
			logfields.Stage(step),
			logfields.Command(process.CommandLine(step, args...)))

		res, err := e.runner.Run(ctx, dir, step, args...)
		if err != nil && res.ExitCode == 0 {
			res.ExitCode = -1
		}
		if e.observer.OnStepDone != nil {
			e.observer.OnStepDone(StepResult{StepEvent: ev, Result: res, Err: err})
		}
		if !res.Failed() {
			continue
		}

		failed = true
		stepErr := res.Stderr
		if err != nil {
			stepErr += err.Error() + "\n"
		}
		slog.Warn("Build step failed",
			logfields.File(file),
			logfields.Stage(step),
			logfields.ExitCode(res.ExitCode),
			logfields.Error(err))
		outBuf.WriteString("\n" + step + ":" + res.Stdout)
		errBuf.WriteString("\n" + step + ":" + stepErr)
	}
	return failed, outBuf.String(), errBuf.String()
}

// DocumentDir is the directory inside workdir that holds file.
func DocumentDir(workdir, file string) string {
	return filepath.Join(workdir, filepath.Dir(filepath.FromSlash(file)))
}

// BaseName strips the directory and extension from file.
func BaseName(file string) string {
	b := filepath.Base(filepath.FromSlash(file))
	return strings.TrimSuffix(b, filepath.Ext(b))
}

// ArtifactPath is where the toolchain leaves the output for file:
// <workdir>/<dir(file)>/<base><ext>.
func ArtifactPath(workdir, file, ext string) string {
	return filepath.Join(DocumentDir(workdir, file), BaseName(file)+ext)
}

// ArtifactName is the artifact's file name without any directory.
func ArtifactName(file, ext string) string {
	return BaseName(file) + ext
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/texbuilder/internal/buildlog"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/process"
)

var errBuildFailed = errors.New("one or more documents failed to build")

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Dir   string   `short:"d" help:"Directory the document paths are relative to" default:"." type:"existingdir"`
	Files []string `arg:"" name:"file" help:"Documents to compile"`
}

func (c *CompileCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	executor := latex.NewExecutor(process.NewExecRunner(), cfg.Build.Steps, cfg.Build.StepArgs)
	return RunCompile(ctx, os.Stdout, executor, c.Dir, c.Files)
}

// RunCompile compiles files under dir and writes the build report to w.
func RunCompile(ctx context.Context, w io.Writer, executor *latex.Executor, dir string, files []string) error {
	executor = executor.WithObserver(latex.Observer{
		OnStepStart: func(ev latex.StepEvent) {
			slog.Info("Running step",
				logfields.File(ev.File),
				logfields.Stage(ev.Step),
				slog.Int("step", ev.Index+1),
				slog.Int("steps", ev.Total))
		},
	})

	report := buildlog.New()
	for _, file := range files {
		failed, stdout, stderr := executor.Compile(ctx, dir, file)
		if failed {
			report.RecordBuildFailure(file, stdout, stderr)
		}
	}

	if _, err := fmt.Fprintln(w, report.Render(false)); err != nil {
		return err
	}
	if report.BuildFailed() {
		return errBuildFailed
	}
	return nil
}

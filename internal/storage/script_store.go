package storage

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/texbuilder/internal/process"
)

// ScriptStore delegates to two external commands, typically shell scripts
// wrapping a WebDAV or cloud CLI:
//
//	<mkdir...> <folder>
//	<upload...> <dest> <src>
type ScriptStore struct {
	runner process.Runner
	mkdir  []string
	upload []string
	dir    string
}

// NewScriptStore creates a store running mkdir and upload command prefixes.
func NewScriptStore(runner process.Runner, mkdir, upload []string) *ScriptStore {
	return &ScriptStore{
		runner: runner,
		mkdir:  append([]string(nil), mkdir...),
		upload: append([]string(nil), upload...),
	}
}

// WithDir sets the directory the scripts run in. By default they inherit the
// server's working directory.
func (s *ScriptStore) WithDir(dir string) *ScriptStore {
	s.dir = dir
	return s
}

func (s *ScriptStore) PrepareFolder(ctx context.Context, folder string) (string, error) {
	return s.run(ctx, "prepare folder", folder, s.mkdir, folder)
}

func (s *ScriptStore) Upload(ctx context.Context, dest, src string) (string, error) {
	return s.run(ctx, "upload", dest, s.upload, dest, src)
}

func (s *ScriptStore) run(ctx context.Context, op, target string, prefix []string, extra ...string) (string, error) {
	if len(prefix) == 0 {
		return "", storageError(op, target, fmt.Errorf("no command configured"))
	}
	args := append(append([]string(nil), prefix[1:]...), extra...)
	res, err := s.runner.Run(ctx, s.dir, prefix[0], args...)
	out := res.Combined()
	if err != nil {
		return out + err.Error(), storageError(op, target, err)
	}
	if res.Failed() {
		return out, storageError(op, target, fmt.Errorf("%s exited with status %d", prefix[0], res.ExitCode))
	}
	return out, nil
}

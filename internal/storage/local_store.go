package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore publishes into a directory on the local filesystem, for
// development and for hosts where the destination is a mounted share.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates basePath if needed.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage requires a directory")
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (l *LocalStore) PrepareFolder(_ context.Context, folder string) (string, error) {
	target, err := l.resolve(folder)
	if err != nil {
		return err.Error(), storageError("prepare folder", folder, err)
	}
	if err := os.MkdirAll(target, 0o750); err != nil {
		return err.Error(), storageError("prepare folder", folder, err)
	}
	return "", nil
}

func (l *LocalStore) Upload(ctx context.Context, dest, src string) (string, error) {
	target, err := l.resolve(dest)
	if err != nil {
		return err.Error(), storageError("upload", dest, err)
	}
	if err := copyFile(ctx, src, target); err != nil {
		return err.Error(), storageError("upload", dest, err)
	}
	return "", nil
}

// resolve maps a slash-separated remote path below basePath.
func (l *LocalStore) resolve(remote string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(remote))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the storage directory", remote)
	}
	return filepath.Join(l.basePath, clean), nil
}

// copyFile writes to a temp file and renames it into place so readers never
// see a partial artifact.
func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

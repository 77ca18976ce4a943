package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// GoGitCloner clones in-process with go-git.
type GoGitCloner struct {
	sshAuth transport.AuthMethod
	depth   int
}

// NewGoGitCloner loads the SSH key at sshKeyPath, if set, for SSH remotes.
func NewGoGitCloner(sshKeyPath string, depth int) (*GoGitCloner, error) {
	c := &GoGitCloner{depth: depth}
	if sshKeyPath != "" {
		keys, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", sshKeyPath, err)
		}
		c.sshAuth = keys
	}
	return c, nil
}

func (c *GoGitCloner) Clone(ctx context.Context, url, dest string) (string, error) {
	var progress bytes.Buffer
	opts := &git.CloneOptions{
		URL:      url,
		Progress: &progress,
		Depth:    c.depth,
	}
	if c.sshAuth != nil && isSSHURL(url) {
		opts.Auth = c.sshAuth
	}

	slog.Debug("Cloning repository in-process", logfields.URL(url), logfields.Path(dest))
	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		out := progress.String()
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		return out + err.Error(), classifyCloneError(url, err)
	}

	if head, herr := repo.Head(); herr == nil {
		slog.Debug("Cloned", logfields.URL(url), slog.String("commit", head.Hash().String()[:8]))
	}
	return progress.String(), nil
}

func isSSHURL(url string) bool {
	if strings.HasPrefix(url, "ssh://") {
		return true
	}
	// scp-like syntax: user@host:path
	return !strings.Contains(url, "://") && strings.Contains(url, "@") && strings.Contains(url, ":")
}

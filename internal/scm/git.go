// Package scm acquires temporary local checkouts of remote repositories.
package scm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	depExec "github.com/reed74/dependency-code2/internal/exec"
	"github.com/reed74/dependency-code2/internal/log"
)

// ErrGitUnavailable is returned when the git binary cannot be found
var ErrGitUnavailable = errors.New("git is not installed or not in PATH")

const tempDirPrefix = "dependency-analysis-"

// Provider clones a repository into a local path and removes it afterwards
type Provider interface {
	Clone(ctx context.Context, url string) (string, error)
	Cleanup(path string) error
}

// GitProvider implements Provider with shallow git clones
type GitProvider struct {
	Binary string
	fs     afero.Fs
}

// NewGitProvider creates a provider working on the OS filesystem
func NewGitProvider() *GitProvider {
	return &GitProvider{Binary: "git", fs: afero.NewOsFs()}
}

// Clone runs `git clone --depth 1` into a fresh temporary directory. The
// directory is removed again when the clone fails.
func (g *GitProvider) Clone(ctx context.Context, url string) (string, error) {
	binary := g.binary()
	if _, err := depExec.LookPath(binary); err != nil {
		return "", ErrGitUnavailable
	}

	dir, err := afero.TempDir(g.filesystem(), "", tempDirPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout directory: %w", err)
	}

	log.Debugf("cloning %s into %s", url, dir)
	res, err := depExec.Run(ctx, binary, []string{"clone", "--depth", "1", url, dir}, "")
	if err != nil {
		if rmErr := g.Cleanup(dir); rmErr != nil {
			log.Warnf("failed to remove %s after clone failure: %v", dir, rmErr)
		}
		return "", fmt.Errorf("git clone failed: %s", strings.TrimSpace(res.Stderr))
	}

	return dir, nil
}

// Cleanup removes a checkout. Removing a path that no longer exists succeeds.
func (g *GitProvider) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	fs := g.filesystem()
	if _, err := fs.Stat(path); err != nil {
		return nil
	}
	if err := fs.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove checkout %s: %w", path, err)
	}
	return nil
}

func (g *GitProvider) binary() string {
	if g.Binary == "" {
		return "git"
	}
	return g.Binary
}

func (g *GitProvider) filesystem() afero.Fs {
	if g.fs == nil {
		return afero.NewOsFs()
	}
	return g.fs
}

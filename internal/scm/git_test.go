package scm

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitProvider_CleanupIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/tmp/dependency-analysis-1/src", 0755))
	require.NoError(t, afero.WriteFile(fs, "/tmp/dependency-analysis-1/src/go.mod", []byte("module x"), 0644))

	g := &GitProvider{fs: fs}
	require.NoError(t, g.Cleanup("/tmp/dependency-analysis-1"))

	exists, err := afero.Exists(fs, "/tmp/dependency-analysis-1")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, g.Cleanup("/tmp/dependency-analysis-1"))
	assert.NoError(t, g.Cleanup(""))
}

func TestGitProvider_MissingBinary(t *testing.T) {
	g := &GitProvider{Binary: "no-such-git-12345", fs: afero.NewMemMapFs()}
	_, err := g.Clone(context.Background(), "https://example.com/repo.git")
	assert.True(t, errors.Is(err, ErrGitUnavailable))
}

func TestGitProvider_CloneFailureRemovesTempDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	bin := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'fatal: repository not found' >&2\nexit 128\n"), 0755))

	fs := afero.NewMemMapFs()
	g := &GitProvider{Binary: bin, fs: fs}

	_, err := g.Clone(context.Background(), "https://example.com/missing.git")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository not found")

	entries, err := afero.ReadDir(fs, os.TempDir())
	if err == nil {
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), tempDirPrefix), "leftover checkout dir %s", e.Name())
		}
	}
}

func TestGitProvider_Clone(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	// stand-in for git that populates the target directory (last argument)
	bin := filepath.Join(t.TempDir(), "git")
	script := "#!/bin/sh\nfor last; do :; done\necho 'module example.com/x' > \"$last/go.mod\"\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))

	g := &GitProvider{Binary: bin, fs: afero.NewOsFs()}
	dir, err := g.Clone(context.Background(), "https://example.com/x.git")
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Cleanup(dir) })

	assert.True(t, strings.HasPrefix(filepath.Base(dir), tempDirPrefix))
	_, err = os.Stat(filepath.Join(dir, "go.mod"))
	assert.NoError(t, err)

	require.NoError(t, g.Cleanup(dir))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

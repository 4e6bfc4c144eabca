package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("path", "", "")
	fs.String("repo-url", "", "")
	fs.String("output", "", "")
	fs.String("format", "json", "")
	fs.String("sbom", "", "")
	fs.Int("workers", 4, "")
	fs.Duration("registry-timeout", 10*time.Second, "")
	fs.String("fallback-policy", "no-vulnerabilities", "")
	fs.String("metrics-file", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "no-vulnerabilities", cfg.FallbackPolicy)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "localhost", cfg.Store.Host)
	assert.Equal(t, 5432, cfg.Store.Port)
	assert.Equal(t, "postgres", cfg.Store.User)
	assert.Equal(t, "postgres", cfg.Store.Password)
	assert.Equal(t, "postgres", cfg.Store.Name)
	assert.Equal(t, 4, cfg.Store.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, "DependencyAnalysisTool/1.0", cfg.Registry.UserAgent)
	assert.Equal(t, "https://registry.npmjs.org", cfg.Registry.NpmURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_LegacyDatabaseEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "scanner")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "vulns")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Store.Host)
	assert.Equal(t, 6543, cfg.Store.Port)
	assert.Equal(t, "scanner", cfg.Store.User)
	assert.Equal(t, "s3cret", cfg.Store.Password)
	assert.Equal(t, "vulns", cfg.Store.Name)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEPSCAN_WORKERS", "9")
	t.Setenv("DEPSCAN_REGISTRY_TIMEOUT", "3s")
	t.Setenv("DEPSCAN_MATCHER_FALLBACK_POLICY", "unknown-product")
	t.Setenv("DEPSCAN_DB_HOST", "preferred")
	t.Setenv("DB_HOST", "legacy")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, 3*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, "unknown-product", cfg.FallbackPolicy)
	assert.Equal(t, "preferred", cfg.Store.Host)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_NAME=from_dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("DB_NAME") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Store.Name)
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfgFile := filepath.Join(dir, "depscan.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
workers: 2
db:
  driver: sqlite
  dsn: /var/lib/vulns.db
log:
  level: warn
  structured: true
`), 0644))

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--path", "/src", "--output", "out.json", "--workers", "6", "--format", "table"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, "/src", cfg.Path)
	assert.Equal(t, "out.json", cfg.OutputFile)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, 6, cfg.Workers, "flags override the config file")
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/vulns.db", cfg.Store.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Structured)
	assert.Equal(t, 10*time.Second, cfg.Registry.Timeout, "unchanged flags keep the default")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml", nil)
	assert.ErrorContains(t, err, "failed to read config file")
}

package models

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for an analysis run
type Config struct {
	// Target, exactly one of Path or RepoURL
	Path    string
	RepoURL string

	// Output settings
	OutputFormat string // "json", "table", "sarif", "cyclonedx"
	OutputFile   string
	MetricsFile  string // Optional Prometheus text exposition output

	// SBOMFile, when set, replaces running syft against the target
	SBOMFile string

	// Behavior settings
	Workers        int
	FallbackPolicy string

	Store    StoreConfig
	Registry RegistryConfig
	Log      LogConfig
}

// StoreConfig holds the vulnerability store connection parameters
type StoreConfig struct {
	Driver       string // "postgres" or "sqlite"
	DSN          string // Takes precedence over the discrete fields below
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
}

// RegistryConfig holds package registry endpoints and limits
type RegistryConfig struct {
	Timeout      time.Duration
	UserAgent    string
	PyPIURL      string
	MavenURL     string
	PackagistURL string
	NpmURL       string
	GoProxyURL   string
	NuGetURL     string
}

// LogConfig controls application logging
type LogConfig struct {
	Level      string
	Structured bool
	File       string
}

// DefaultRegistryConfig returns the public registry endpoints
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Timeout:      10 * time.Second,
		UserAgent:    "DependencyAnalysisTool/1.0",
		PyPIURL:      "https://pypi.org",
		MavenURL:     "https://search.maven.org",
		PackagistURL: "https://packagist.org",
		NpmURL:       "https://registry.npmjs.org",
		GoProxyURL:   "https://proxy.golang.org",
		NuGetURL:     "https://api.nuget.org",
	}
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFormat:   "json",
		Workers:        4,
		FallbackPolicy: "no-vulnerabilities",
		Store: StoreConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Registry: DefaultRegistryConfig(),
		Log:      LogConfig{Level: "info"},
	}
}

// Validate checks the store configuration for obvious mistakes
func (c StoreConfig) Validate() error {
	switch c.Driver {
	case "postgres":
		if c.DSN != "" {
			return nil
		}
		if c.Host == "" {
			return errors.New("store host is required")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("store port %d out of range", c.Port)
		}
		if c.Name == "" {
			return errors.New("store database name is required")
		}
	case "sqlite":
		if c.DSN == "" {
			return errors.New("sqlite store requires a DSN (database file path)")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Driver)
	}
	if c.MaxOpenConns < 0 {
		return errors.New("store max open connections cannot be negative")
	}
	return nil
}

// Validate checks the run configuration
func (c *Config) Validate() error {
	if (c.Path == "") == (c.RepoURL == "") {
		return errors.New("exactly one of path or repository URL must be provided")
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Registry.Timeout <= 0 {
		return errors.New("registry timeout must be positive")
	}
	return c.Store.Validate()
}

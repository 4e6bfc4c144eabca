// Package config assembles the run configuration from defaults, an optional
// config file, .env files, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/reed74/dependency-code2/internal/models"
)

// EnvPrefix is the prefix for environment overrides, e.g. DEPSCAN_WORKERS
const EnvPrefix = "DEPSCAN"

// flagKeys maps command-line flags onto configuration keys
var flagKeys = map[string]string{
	"path":             "path",
	"repo-url":         "repo_url",
	"output":           "output",
	"format":           "format",
	"sbom":             "sbom",
	"workers":          "workers",
	"registry-timeout": "registry.timeout",
	"fallback-policy":  "matcher.fallback_policy",
	"metrics-file":     "metrics_file",
}

// legacyEnv keeps the database variable names the tool has always read
var legacyEnv = map[string]string{
	"db.driver":   "DB_DRIVER",
	"db.dsn":      "DB_DSN",
	"db.host":     "DB_HOST",
	"db.port":     "DB_PORT",
	"db.user":     "DB_USER",
	"db.password": "DB_PASSWORD",
	"db.name":     "DB_NAME",
	"db.sslmode":  "DB_SSLMODE",
}

// Load builds the configuration. cfgFile is optional; when set it must exist.
// flags may be nil. Values from a .env file in the working directory never
// override variables already present in the environment.
func Load(cfgFile string, flags *pflag.FlagSet) (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, err
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	def := models.DefaultConfig()

	v.SetDefault("format", def.OutputFormat)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("matcher.fallback_policy", def.FallbackPolicy)

	v.SetDefault("db.driver", def.Store.Driver)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", def.Store.Host)
	v.SetDefault("db.port", def.Store.Port)
	v.SetDefault("db.user", def.Store.User)
	v.SetDefault("db.password", def.Store.Password)
	v.SetDefault("db.name", def.Store.Name)
	v.SetDefault("db.sslmode", def.Store.SSLMode)

	v.SetDefault("registry.timeout", def.Registry.Timeout)
	v.SetDefault("registry.user_agent", def.Registry.UserAgent)
	v.SetDefault("registry.pypi_url", def.Registry.PyPIURL)
	v.SetDefault("registry.maven_url", def.Registry.MavenURL)
	v.SetDefault("registry.packagist_url", def.Registry.PackagistURL)
	v.SetDefault("registry.npm_url", def.Registry.NpmURL)
	v.SetDefault("registry.goproxy_url", def.Registry.GoProxyURL)
	v.SetDefault("registry.nuget_url", def.Registry.NuGetURL)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.structured", false)
	v.SetDefault("log.file", "")
}

func fromViper(v *viper.Viper) *models.Config {
	workers := v.GetInt("workers")
	return &models.Config{
		Path:           v.GetString("path"),
		RepoURL:        v.GetString("repo_url"),
		OutputFormat:   v.GetString("format"),
		OutputFile:     v.GetString("output"),
		MetricsFile:    v.GetString("metrics_file"),
		SBOMFile:       v.GetString("sbom"),
		Workers:        workers,
		FallbackPolicy: v.GetString("matcher.fallback_policy"),
		Store: models.StoreConfig{
			Driver:       v.GetString("db.driver"),
			DSN:          v.GetString("db.dsn"),
			Host:         v.GetString("db.host"),
			Port:         v.GetInt("db.port"),
			User:         v.GetString("db.user"),
			Password:     v.GetString("db.password"),
			Name:         v.GetString("db.name"),
			SSLMode:      v.GetString("db.sslmode"),
			MaxOpenConns: workers,
		},
		Registry: models.RegistryConfig{
			Timeout:      v.GetDuration("registry.timeout"),
			UserAgent:    v.GetString("registry.user_agent"),
			PyPIURL:      v.GetString("registry.pypi_url"),
			MavenURL:     v.GetString("registry.maven_url"),
			PackagistURL: v.GetString("registry.packagist_url"),
			NpmURL:       v.GetString("registry.npm_url"),
			GoProxyURL:   v.GetString("registry.goproxy_url"),
			NuGetURL:     v.GetString("registry.nuget_url"),
		},
		Log: models.LogConfig{
			Level:      v.GetString("log.level"),
			Structured: v.GetBool("log.structured"),
			File:       v.GetString("log.file"),
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reed74/dependency-code2/internal/clients"
	"github.com/reed74/dependency-code2/internal/config"
	"github.com/reed74/dependency-code2/internal/inventory"
	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/matcher"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/normalizer"
	"github.com/reed74/dependency-code2/internal/reporter"
	"github.com/reed74/dependency-code2/internal/scanner"
	"github.com/reed74/dependency-code2/internal/scm"
	"github.com/reed74/dependency-code2/internal/store"
	"github.com/reed74/dependency-code2/internal/telemetry"
)

const reportFilePermissions = 0644

var (
	flagConfig string
	flagDebug  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dependency-analysis --path DIR | --repo-url URL --output FILE",
	Short: "Inventory a project's dependencies and match them against a vulnerability database",
	Long: `dependency-analysis inventories the dependencies of a local directory or a
remote git repository, fills in missing versions from the public package
registries and matches every dependency against a vulnerability database.

Supported registries for version resolution:
  - Python (PyPI), Java (Maven Central), PHP (Packagist)
  - JavaScript/TypeScript (npm), Go (module proxy), .NET (NuGet)

Inventory is produced by syft, which must be on PATH unless --sbom is given.
Remote repositories are fetched with git.

Examples:
  # Scan a local checkout
  dependency-analysis --path ./service --output results.json

  # Scan a remote repository
  dependency-analysis --repo-url https://github.com/org/repo.git --output results.json

  # Reuse an existing syft JSON document and print a table
  dependency-analysis --path . --sbom syft.json --format table --output results.txt

  # Connect to a SQLite copy of the vulnerability database
  DB_DRIVER=sqlite DB_DSN=./vulns.db dependency-analysis --path . --output results.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

// Execute runs the root command and exits with status 1 on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	def := models.DefaultConfig()

	flags := rootCmd.Flags()
	flags.String("path", "", "Path to the directory to scan")
	flags.String("repo-url", "", "URL of the git repository to scan")
	flags.StringP("output", "o", "", "Path to save the report")
	flags.StringP("format", "f", def.OutputFormat, "Report format: json, table, sarif, cyclonedx")
	flags.String("sbom", "", "Read inventory from an existing syft JSON document instead of running syft")
	flags.Int("workers", def.Workers, "Concurrent registry lookups and store queries")
	flags.Duration("registry-timeout", def.Registry.Timeout, "Timeout for each package registry request")
	flags.String("fallback-policy", def.FallbackPolicy, "When to retry a scoped name by its last segment: no-vulnerabilities, unknown-product")
	flags.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	flags.StringVar(&flagConfig, "config", "", "Configuration file (YAML)")
	flags.BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.MarkFlagsMutuallyExclusive("path", "repo-url")
	rootCmd.MarkFlagsOneRequired("path", "repo-url")
	_ = rootCmd.MarkFlagRequired("output")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig, cmd.Flags())
	if err != nil {
		return err
	}
	if flagDebug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := matcher.ParseFallbackPolicy(cfg.FallbackPolicy)
	if err != nil {
		return err
	}
	rep, err := reporter.Get(cfg.OutputFormat)
	if err != nil {
		return err
	}
	target := scanner.Target{Path: cfg.Path, URL: cfg.RepoURL}
	if err := scanner.ValidateTarget(target); err != nil {
		return err
	}

	logCloser, err := log.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer log.CloseAndLogError(logCloser, "log file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()

	st, err := store.Open(ctx, cfg.Store, metrics)
	if err != nil {
		return err
	}
	defer log.CloseAndLogError(st, "vulnerability store")

	s := scanner.New(
		newInventory(cfg),
		normalizer.New(clients.NewRegistryResolver(cfg.Registry, metrics), normalizer.WithWorkers(cfg.Workers)),
		matcher.New(st, policy),
		scanner.WithSource(scm.NewGitProvider()),
		scanner.WithWorkers(cfg.Workers),
		scanner.WithMetrics(metrics),
	)

	fmt.Fprintln(os.Stderr, "Starting analysis...")
	start := time.Now()

	results, err := s.Analyze(ctx, target)
	if err != nil {
		return err
	}

	output, err := rep.Report(results)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if err := os.WriteFile(cfg.OutputFile, output, reportFilePermissions); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	vulnerable := 0
	for _, r := range results {
		if r.IsVulnerable() {
			vulnerable++
		}
	}
	log.WithFields(logrus.Fields{
		"dependencies": len(results),
		"vulnerable":   vulnerable,
		"elapsed":      time.Since(start).Round(time.Millisecond),
	}).Debug("analysis finished")

	fmt.Fprintf(os.Stderr, "Analysis complete. Results saved to %s\n", cfg.OutputFile)
	fmt.Fprintf(os.Stderr, "Found %d dependencies.\n", len(results))
	fmt.Fprintf(os.Stderr, "Dependencies with vulnerabilities: %d\n", vulnerable)

	return nil
}

func newInventory(cfg *models.Config) inventory.Scanner {
	if cfg.SBOMFile != "" {
		return &inventory.SBOMFile{Path: cfg.SBOMFile}
	}
	return inventory.NewSyftScanner()
}

package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/reed74/dependency-code2/internal/inventory"
	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/matcher"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/normalizer"
	"github.com/reed74/dependency-code2/internal/parsers"
	"github.com/reed74/dependency-code2/internal/purl"
	"github.com/reed74/dependency-code2/internal/scm"
	"github.com/reed74/dependency-code2/internal/telemetry"
)

// ErrInvalidInput is returned when the analysis target is malformed
var ErrInvalidInput = errors.New("invalid input")

const defaultWorkers = 4

// Target is what to analyze: a local directory or a remote repository
type Target struct {
	Path string
	URL  string
}

func (t Target) String() string {
	if t.URL != "" {
		return t.URL
	}
	return t.Path
}

// Scanner orchestrates the analysis pipeline
type Scanner struct {
	inventory  inventory.Scanner
	normalizer *normalizer.Normalizer
	matcher    *matcher.Matcher
	source     scm.Provider
	workers    int
	metrics    *telemetry.Metrics
}

// Option configures a Scanner
type Option func(*Scanner)

// WithSource enables remote targets
func WithSource(p scm.Provider) Option {
	return func(s *Scanner) { s.source = p }
}

// WithWorkers bounds the number of dependencies matched concurrently
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMetrics records per-dependency counters
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New creates a new Scanner from its collaborators
func New(inv inventory.Scanner, norm *normalizer.Normalizer, m *matcher.Matcher, opts ...Option) *Scanner {
	s := &Scanner{
		inventory:  inv,
		normalizer: norm,
		matcher:    m,
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze scans the target and returns one result per normalized dependency,
// in normalization order. A temporary checkout is always removed; a failure to
// remove it is reported together with any other error.
func (s *Scanner) Analyze(ctx context.Context, target Target) (results []models.ScanResult, err error) {
	root, err := s.resolveRoot(target)
	if err != nil {
		return nil, err
	}
	log.Infof("analyzing %s", target)

	if target.URL != "" {
		dir, cloneErr := s.source.Clone(ctx, target.URL)
		if cloneErr != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", target.URL, cloneErr)
		}
		root = dir
		defer func() {
			if cleanupErr := s.source.Cleanup(dir); cleanupErr != nil {
				log.Errorf("failed to remove checkout of %s: %v", target.URL, cleanupErr)
				err = multierror.Append(err, cleanupErr)
				results = nil
			}
		}()
	}

	// Step 1: Inventory the source tree
	artifacts, err := s.inventory.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("inventory scan failed: %w", err)
	}
	log.Debugf("inventory reported %d artifacts", len(artifacts))

	// Step 2: Normalize, then augment from manifests at the root
	deps, err := s.normalizer.Normalize(ctx, artifacts, manifestPaths(root)...)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize dependencies: %w", err)
	}

	// Step 3: Match each dependency against the store
	return s.match(ctx, deps)
}

// ValidateTarget checks that exactly one of Path or URL is set and that a
// local path is an existing directory. It touches nothing but the filesystem.
func ValidateTarget(target Target) error {
	if (target.Path == "") == (target.URL == "") {
		return fmt.Errorf("%w: exactly one of path or repository URL must be provided", ErrInvalidInput)
	}
	if target.URL != "" {
		return nil
	}

	info, err := os.Stat(target.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidInput, target.Path)
	}
	return nil
}

func (s *Scanner) resolveRoot(target Target) (string, error) {
	if err := ValidateTarget(target); err != nil {
		return "", err
	}
	if target.URL != "" {
		if s.source == nil {
			return "", fmt.Errorf("%w: no source provider configured for %s", ErrInvalidInput, target.URL)
		}
		return "", nil
	}
	return target.Path, nil
}

func (s *Scanner) match(ctx context.Context, deps []models.Dependency) ([]models.ScanResult, error) {
	results := make([]models.ScanResult, len(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, dep := range deps {
		i, dep := i, dep
		g.Go(func() error {
			m, err := s.matcher.Match(gctx, dep.Name, dep.Version)
			if err != nil {
				return fmt.Errorf("%s: %w", dep, err)
			}
			results[i] = newResult(dep, m)
			s.metrics.ObserveDependency(results[i].IsVulnerable())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// newResult builds the result for dep. The store vendor wins; the package URL
// is consulted only when the store had none.
func newResult(dep models.Dependency, m matcher.Match) models.ScanResult {
	vendor := m.Vendor
	if vendor == "" {
		vendor, _ = purl.Vendor(dep.PackageURL())
	}
	vendor = strings.ReplaceAll(vendor, "@", "")

	vulns := m.Vulnerabilities
	if vulns == nil {
		vulns = []models.Vulnerability{}
	}

	result := models.ScanResult{Dependency: dep, Vulnerabilities: vulns}
	if vendor != "" {
		result.Vendor = &vendor
	}
	return result
}

// manifestPaths lists the auxiliary manifests looked up at root
func manifestPaths(root string) []string {
	names := parsers.Filenames()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(root, name))
	}
	return paths
}

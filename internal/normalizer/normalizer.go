// Package normalizer turns raw inventory artifacts into a deduplicated,
// fully versioned dependency list.
package normalizer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/scylladb/go-set/strset"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/reed74/dependency-code2/internal/cache"
	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/parsers"
)

const defaultWorkers = 4

// Resolver finds the latest published version of a package. It returns
// models.UnknownVersion when the version cannot be determined.
type Resolver interface {
	Resolve(ctx context.Context, name, tag string) string
}

// Normalizer deduplicates artifacts and fills in missing versions
type Normalizer struct {
	resolver Resolver
	fs       afero.Fs
	workers  int
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithFs reads manifests from fs instead of the OS filesystem
func WithFs(fs afero.Fs) Option {
	return func(n *Normalizer) { n.fs = fs }
}

// WithWorkers bounds the number of concurrent registry lookups
func WithWorkers(workers int) Option {
	return func(n *Normalizer) {
		if workers > 0 {
			n.workers = workers
		}
	}
}

// New creates a Normalizer that resolves missing versions with resolver
func New(resolver Resolver, opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: resolver,
		fs:       afero.NewOsFs(),
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves missing versions, then deduplicates artifacts by
// (sanitized name, version, type) keeping the first occurrence. Afterwards
// each manifest contributes the entries whose sanitized name is not yet
// present. Only context cancellation produces an error.
func (n *Normalizer) Normalize(ctx context.Context, artifacts []models.RawArtifact, manifests ...string) ([]models.Dependency, error) {
	memo := cache.New()

	named := make([]models.RawArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Name == "" {
			continue
		}
		named = append(named, a)
	}

	versions, err := n.resolveVersions(ctx, memo, named)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.DependencyKey]struct{}, len(named))
	names := strset.New()
	deps := make([]models.Dependency, 0, len(named))
	for i, a := range named {
		dep := models.Dependency{
			Name:    models.SanitizeName(a.Name),
			Version: versions[i],
			Type:    a.Type,
			PURL:    purlPtr(a.PURL),
		}
		if _, dup := seen[dep.Key()]; dup {
			continue
		}
		seen[dep.Key()] = struct{}{}
		names.Add(dep.Name)
		deps = append(deps, dep)
	}

	for _, path := range manifests {
		entries := n.readManifest(path)
		var added []models.RawArtifact
		for _, e := range entries {
			name := models.SanitizeName(e.Name)
			if e.Name == "" || names.Has(name) {
				continue
			}
			names.Add(name)
			added = append(added, e)
		}
		if len(added) == 0 {
			continue
		}

		versions, err := n.resolveVersions(ctx, memo, added)
		if err != nil {
			return nil, err
		}
		for i, e := range added {
			deps = append(deps, models.Dependency{
				Name:    models.SanitizeName(e.Name),
				Version: versions[i],
				Type:    e.Type,
				PURL:    purlPtr(e.PURL),
			})
		}
		log.Debugf("%s added %d dependencies", filepath.Base(path), len(added))
	}

	log.Debugf("normalized %d artifacts into %d dependencies (%d registry lookups)", len(artifacts), len(deps), memo.Len())
	return deps, nil
}

// resolveVersions returns the version to use for each artifact, looking up
// missing ones concurrently. Lookups are shared per (ecosystem, name) within memo.
func (n *Normalizer) resolveVersions(ctx context.Context, memo *cache.Memo, artifacts []models.RawArtifact) ([]string, error) {
	versions := make([]string, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for i, a := range artifacts {
		if a.HasVersion() {
			versions[i] = a.Version
			continue
		}
		i, a := i, a
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			versions[i] = memo.Do(cache.Key(string(models.EcosystemFor(a.Type)), a.Name), func() string {
				return n.resolver.Resolve(gctx, a.Name, a.Type)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

// readManifest parses one manifest file. Missing files are skipped silently;
// unreadable or malformed ones are logged and skipped.
func (n *Normalizer) readManifest(path string) []models.RawArtifact {
	parser := parsers.ForFile(filepath.Base(path))
	if parser == nil {
		log.Warnf("no parser for manifest %s", path)
		return nil
	}

	content, err := afero.ReadFile(n.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		log.Warnf("skipping manifest %s: %v", path, err)
		return nil
	}

	entries, err := parser.Parse(path, content)
	if err != nil {
		log.Warnf("skipping manifest %s: %v", path, err)
		return nil
	}
	return entries
}

func purlPtr(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}

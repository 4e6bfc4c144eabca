package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reed74/dependency-code2/internal/matcher"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/normalizer"
	"github.com/reed74/dependency-code2/internal/store"
)

type fakeInventory struct {
	artifacts []models.RawArtifact
	err       error
	roots     []string
}

func (f *fakeInventory) Scan(_ context.Context, root string) ([]models.RawArtifact, error) {
	f.roots = append(f.roots, root)
	return f.artifacts, f.err
}

type fixedResolver map[string]string

func (r fixedResolver) Resolve(_ context.Context, name, _ string) string {
	if v, ok := r[name]; ok {
		return v
	}
	return models.UnknownVersion
}

type key struct{ product, version string }

type memStore struct {
	aliases map[string]string
	vulns   map[key][]store.VulnerabilityRow
	vendors map[key]string
	err     error
}

func (m *memStore) LookupAlias(_ context.Context, name string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	c, ok := m.aliases[name]
	return c, ok, nil
}

func (m *memStore) FindVulnerabilities(_ context.Context, product, version string) ([]store.VulnerabilityRow, error) {
	return m.vulns[key{product, version}], nil
}

func (m *memStore) FindVendor(_ context.Context, product, version string) (string, bool, error) {
	v, ok := m.vendors[key{product, version}]
	return v, ok, nil
}

func (m *memStore) Close() error { return nil }

type fakeSource struct {
	mu         sync.Mutex
	dir        string
	cloneErr   error
	cleanupErr error
	cleaned    []string
}

func (f *fakeSource) Clone(_ context.Context, _ string) (string, error) {
	if f.cloneErr != nil {
		return "", f.cloneErr
	}
	return f.dir, nil
}

func (f *fakeSource) Cleanup(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, path)
	return f.cleanupErr
}

func newTestScanner(inv *fakeInventory, resolver fixedResolver, st *memStore, opts ...Option) *Scanner {
	norm := normalizer.New(resolver)
	return New(inv, norm, matcher.New(st, matcher.FallbackOnNoVulnerabilities), opts...)
}

func vuln(id string) store.VulnerabilityRow {
	return store.VulnerabilityRow{Vulnerability: models.Vulnerability{CVEID: id}, Vendor: "google"}
}

func TestAnalyze_ScopedPackageEndToEnd(t *testing.T) {
	inv := &fakeInventory{artifacts: []models.RawArtifact{
		{Name: "@angular/core", Type: "npm", PURL: "pkg:npm/%40angular/core"},
	}}
	st := &memStore{vulns: map[key][]store.VulnerabilityRow{
		{"core", "17.0.0"}: {vuln("CVE-2024-0001")},
	}}
	s := newTestScanner(inv, fixedResolver{"@angular/core": "17.0.0"}, st)

	root := t.TempDir()
	results, err := s.Analyze(context.Background(), Target{Path: root})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "angular/core", r.Dependency.Name)
	assert.Equal(t, "17.0.0", r.Dependency.Version)
	require.Len(t, r.Vulnerabilities, 1)
	assert.Equal(t, "CVE-2024-0001", r.Vulnerabilities[0].CVEID)
	assert.Equal(t, "google", r.VendorName())
	assert.Equal(t, []string{root}, inv.roots)
}

func TestAnalyze_VendorPrecedence(t *testing.T) {
	inv := &fakeInventory{artifacts: []models.RawArtifact{
		{Name: "widget", Version: "1.0.0", Type: "maven", PURL: "pkg:maven/Other/widget@1.0.0"},
		{Name: "gadget", Version: "2.0.0", Type: "maven", PURL: "pkg:maven/org.other/gadget@2.0.0"},
		{Name: "plain", Version: "3.0.0", Type: "binary"},
		{Name: "scoped", Version: "4.0.0", Type: "npm"},
	}}
	st := &memStore{vendors: map[key]string{
		{"widget", "1.0.0"}: "Acme",
		{"scoped", "4.0.0"}: "@scope",
	}}
	s := newTestScanner(inv, nil, st)

	results, err := s.Analyze(context.Background(), Target{Path: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "Acme", results[0].VendorName(), "store vendor wins over package URL")
	assert.Equal(t, "org.other", results[1].VendorName(), "package URL fills in a missing store vendor")
	assert.Nil(t, results[2].Vendor)
	assert.Equal(t, "scope", results[3].VendorName())

	for _, r := range results {
		assert.NotNil(t, r.Vulnerabilities)
		assert.Empty(t, r.Vulnerabilities)
	}
}

func TestAnalyze_PreservesOrder(t *testing.T) {
	var artifacts []models.RawArtifact
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		artifacts = append(artifacts, models.RawArtifact{Name: name, Version: "1.0", Type: "npm"})
	}
	s := newTestScanner(&fakeInventory{artifacts: artifacts}, nil, &memStore{}, WithWorkers(3))

	results, err := s.Analyze(context.Background(), Target{Path: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, results, len(artifacts))
	for i, r := range results {
		assert.Equal(t, artifacts[i].Name, r.Dependency.Name)
	}
}

func TestAnalyze_ManifestAugmentation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("requests==2.31.0\nflask\n"), 0644))

	inv := &fakeInventory{artifacts: []models.RawArtifact{
		{Name: "requests", Version: "2.31.0", Type: "python"},
	}}
	s := newTestScanner(inv, fixedResolver{"flask": "3.0.0"}, &memStore{})

	results, err := s.Analyze(context.Background(), Target{Path: root})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "flask", results[1].Dependency.Name)
	assert.Equal(t, "3.0.0", results[1].Dependency.Version)
	assert.Equal(t, "python", results[1].Dependency.Type)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	inv := &fakeInventory{}
	source := &fakeSource{dir: t.TempDir()}
	s := newTestScanner(inv, nil, &memStore{}, WithSource(source))

	cases := map[string]Target{
		"neither":     {},
		"both":        {Path: t.TempDir(), URL: "https://example.com/r.git"},
		"missing dir": {Path: filepath.Join(t.TempDir(), "nope")},
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Analyze(context.Background(), target)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.Empty(t, inv.roots, "no scan may start on invalid input")
	assert.Empty(t, source.cleaned)

	noSource := newTestScanner(inv, nil, &memStore{})
	_, err := noSource.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "go.mod")
	require.NoError(t, os.WriteFile(file, []byte("module x\n"), 0o600))

	assert.NoError(t, ValidateTarget(Target{Path: dir}))
	assert.NoError(t, ValidateTarget(Target{URL: "https://example.com/r.git"}))

	assert.ErrorIs(t, ValidateTarget(Target{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTarget(Target{Path: dir, URL: "https://example.com/r.git"}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTarget(Target{Path: filepath.Join(dir, "nope")}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTarget(Target{Path: file}), ErrInvalidInput)
}

func TestAnalyze_RemoteCheckoutIsCleanedUp(t *testing.T) {
	dir := t.TempDir()

	t.Run("success", func(t *testing.T) {
		source := &fakeSource{dir: dir}
		inv := &fakeInventory{artifacts: []models.RawArtifact{{Name: "x", Version: "1", Type: "npm"}}}
		s := newTestScanner(inv, nil, &memStore{}, WithSource(source))

		results, err := s.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, []string{dir}, inv.roots)
		assert.Equal(t, []string{dir}, source.cleaned)
	})

	t.Run("scan failure", func(t *testing.T) {
		source := &fakeSource{dir: dir}
		inv := &fakeInventory{err: errors.New("syft exploded")}
		s := newTestScanner(inv, nil, &memStore{}, WithSource(source))

		_, err := s.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
		assert.ErrorContains(t, err, "syft exploded")
		assert.Equal(t, []string{dir}, source.cleaned)
	})

	t.Run("cleanup failure is combined", func(t *testing.T) {
		source := &fakeSource{dir: dir, cleanupErr: errors.New("device busy")}
		inv := &fakeInventory{err: errors.New("syft exploded")}
		s := newTestScanner(inv, nil, &memStore{}, WithSource(source))

		_, err := s.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "syft exploded")
		assert.Contains(t, err.Error(), "device busy")
	})

	t.Run("cleanup failure alone is fatal", func(t *testing.T) {
		source := &fakeSource{dir: dir, cleanupErr: errors.New("device busy")}
		s := newTestScanner(&fakeInventory{}, nil, &memStore{}, WithSource(source))

		results, err := s.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
		assert.ErrorContains(t, err, "device busy")
		assert.Nil(t, results)
	})

	t.Run("clone failure", func(t *testing.T) {
		source := &fakeSource{cloneErr: errors.New("repository not found")}
		s := newTestScanner(&fakeInventory{}, nil, &memStore{}, WithSource(source))

		_, err := s.Analyze(context.Background(), Target{URL: "https://example.com/r.git"})
		assert.ErrorContains(t, err, "repository not found")
		assert.Empty(t, source.cleaned)
	})
}

func TestAnalyze_StoreFailureIsFatal(t *testing.T) {
	inv := &fakeInventory{artifacts: []models.RawArtifact{
		{Name: "a", Version: "1", Type: "npm"},
		{Name: "b", Version: "1", Type: "npm"},
	}}
	s := newTestScanner(inv, nil, &memStore{err: errors.New("connection refused")})

	results, err := s.Analyze(context.Background(), Target{Path: t.TempDir()})
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, results)
}

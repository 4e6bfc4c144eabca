package models

import "strings"

// UnknownVersion is the sentinel used when no version could be determined
const UnknownVersion = "unknown"

// Ecosystem represents a package registry family
type Ecosystem string

const (
	EcosystemPyPI     Ecosystem = "pypi"
	EcosystemMaven    Ecosystem = "maven"
	EcosystemComposer Ecosystem = "composer"
	EcosystemNpm      Ecosystem = "npm"
	EcosystemGo       Ecosystem = "go"
	EcosystemNuGet    Ecosystem = "nuget"

	// EcosystemUnsupported is returned for tags no registry handles
	EcosystemUnsupported Ecosystem = ""
)

var ecosystemTags = map[string]Ecosystem{
	"python":         EcosystemPyPI,
	"pypi":           EcosystemPyPI,
	"java-archive":   EcosystemMaven,
	"jenkins-plugin": EcosystemMaven,
	"maven":          EcosystemMaven,
	"pom":            EcosystemMaven,
	"php-composer":   EcosystemComposer,
	"composer":       EcosystemComposer,
	"npm":            EcosystemNpm,
	"javascript":     EcosystemNpm,
	"typescript":     EcosystemNpm,
	"go":             EcosystemGo,
	"gomod":          EcosystemGo,
	"go-module":      EcosystemGo,
	"dotnet":         EcosystemNuGet,
	"nuget":          EcosystemNuGet,
}

// EcosystemFor maps a raw inventory type tag to its registry family
func EcosystemFor(tag string) Ecosystem {
	return ecosystemTags[strings.ToLower(tag)]
}

// RawArtifact is a single component as reported by the inventory scanner
type RawArtifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
	PURL    string `json:"purl"`
}

// HasVersion reports whether the artifact carries a usable version
func (a RawArtifact) HasVersion() bool {
	return IsKnownVersion(a.Version)
}

// IsKnownVersion reports whether v is neither empty nor the unknown sentinel
func IsKnownVersion(v string) bool {
	return v != "" && v != UnknownVersion
}

// Dependency represents a single normalized package dependency
type Dependency struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Type    string  `json:"type"`
	PURL    *string `json:"purl"`
}

// DependencyKey is the identity of a Dependency within one scan
type DependencyKey struct {
	Name    string
	Version string
	Type    string
}

// Key returns the deduplication key
func (d Dependency) Key() DependencyKey {
	return DependencyKey{Name: d.Name, Version: d.Version, Type: d.Type}
}

// PackageURL returns the package URL or an empty string
func (d Dependency) PackageURL() string {
	if d.PURL == nil {
		return ""
	}
	return *d.PURL
}

// String returns a human-readable representation
func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

// SanitizeName strips the scope marker so "@angular/core" becomes "angular/core"
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "@", "")
}

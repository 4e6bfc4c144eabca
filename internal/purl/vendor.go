// Package purl derives vendor information from package URLs.
package purl

import (
	"net/url"
	"strings"

	"github.com/package-url/packageurl-go"
)

const scheme = "pkg:"

// Vendor returns the namespace of a package URL for use as a vendor, e.g.
// "org.example" for "pkg:maven/org.example/lib@1.0". The namespace is taken
// verbatim from the URL: multi-segment namespaces are joined with "/", percent
// escapes are decoded, case is preserved and any "@" is removed, so
// "pkg:npm/%40angular/core" yields "angular". It reports false when the URL is
// empty, malformed, or has no namespace.
func Vendor(p string) (string, bool) {
	if !strings.HasPrefix(p, scheme) {
		return "", false
	}
	if _, err := packageurl.FromString(p); err != nil {
		return "", false
	}

	// type/namespace.../name once version, qualifiers and subpath are dropped
	path := strings.TrimPrefix(p, scheme)
	if i := strings.IndexAny(path, "@?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return "", false
	}

	namespace, err := url.PathUnescape(strings.Join(parts[1:len(parts)-1], "/"))
	if err != nil {
		return "", false
	}
	vendor := strings.ReplaceAll(namespace, "@", "")
	if vendor == "" {
		return "", false
	}
	return vendor, true
}

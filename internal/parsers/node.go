package parsers

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/reed74/dependency-code2/internal/models"
)

// NodePackageJSONParser parses package.json files (direct dependencies only)
type NodePackageJSONParser struct{}

// CanParse returns true for package.json files
func (p *NodePackageJSONParser) CanParse(filename string) bool {
	return filename == "package.json"
}

// packageJSON represents the structure of package.json
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Parse extracts dependencies from package.json content. Only exact versions
// are kept; ranges, tags and URLs leave the version empty.
func (p *NodePackageJSONParser) Parse(filepath string, content []byte) ([]models.RawArtifact, error) {
	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		return nil, err
	}

	var deps []models.RawArtifact
	for _, group := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		// map order is random; keep output stable
		names := make([]string, 0, len(group))
		for name := range group {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			deps = append(deps, models.RawArtifact{
				Name:    name,
				Version: exactNpmVersion(group[name]),
				Type:    "npm",
			})
		}
	}

	return deps, nil
}

// exactNpmVersion returns spec when it names exactly one version. Partial
// versions such as "4" or "4.18" are ranges to npm.
func exactNpmVersion(spec string) string {
	spec = strings.TrimPrefix(strings.TrimSpace(spec), "=")
	spec = strings.TrimPrefix(spec, "v")
	if semver.Canonical("v"+spec) != "v"+spec {
		return ""
	}
	return spec
}

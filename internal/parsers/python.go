package parsers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reed74/dependency-code2/internal/models"
)

const pythonType = "python"

// PythonRequirementsParser parses requirements.txt files
type PythonRequirementsParser struct{}

// CanParse returns true for requirements.txt files
func (p *PythonRequirementsParser) CanParse(filename string) bool {
	return filename == "requirements.txt" ||
		strings.HasSuffix(filename, "-requirements.txt") ||
		strings.HasSuffix(filename, "_requirements.txt") ||
		(strings.HasPrefix(filename, "requirements-") && strings.HasSuffix(filename, ".txt"))
}

// namePattern matches the distribution name at the start of a requirement
var namePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

// Parse extracts dependencies from requirements.txt content. Only exact "=="
// pins keep their version.
func (p *PythonRequirementsParser) Parse(filepath string, content []byte) ([]models.RawArtifact, error) {
	var deps []models.RawArtifact

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)

		// Skip empty lines, comments, and options like -r / -e / --hash
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		name, version := parseRequirement(line)
		if name == "" {
			continue
		}
		deps = append(deps, models.RawArtifact{
			Name:    name,
			Version: version,
			Type:    pythonType,
		})
	}

	return deps, nil
}

// parseRequirement splits a PEP 508 style line into name and pinned version
func parseRequirement(spec string) (name string, version string) {
	if idx := strings.Index(spec, "#"); idx >= 0 {
		spec = spec[:idx]
	}
	// environment markers
	if idx := strings.Index(spec, ";"); idx >= 0 {
		spec = spec[:idx]
	}
	// extras like [security]
	if idx := strings.Index(spec, "["); idx > 0 {
		if end := strings.Index(spec, "]"); end > idx {
			spec = spec[:idx] + spec[end+1:]
		}
	}
	spec = strings.TrimSpace(spec)

	m := namePattern.FindStringSubmatch(spec)
	if m == nil {
		return "", ""
	}
	name = m[1]

	rest := strings.TrimSpace(spec[len(name):])
	if strings.HasPrefix(rest, "==") && !strings.HasPrefix(rest, "===") {
		version = strings.TrimSpace(strings.TrimPrefix(rest, "=="))
		// "==1.0,<2" is a range, not a pin
		if strings.ContainsAny(version, ",*<>!~= ") {
			version = ""
		}
	}
	return name, version
}

// PythonPyProjectParser parses pyproject.toml files
type PythonPyProjectParser struct{}

// CanParse returns true for pyproject.toml files
func (p *PythonPyProjectParser) CanParse(filename string) bool {
	return filename == "pyproject.toml"
}

// pyproject represents the structure of pyproject.toml
type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Parse extracts PEP 621 and Poetry dependencies from pyproject.toml content
func (p *PythonPyProjectParser) Parse(filepath string, content []byte) ([]models.RawArtifact, error) {
	var proj pyproject
	if err := toml.Unmarshal(content, &proj); err != nil {
		return nil, err
	}

	var deps []models.RawArtifact

	for _, dep := range proj.Project.Dependencies {
		name, version := parseRequirement(dep)
		if name != "" {
			deps = append(deps, models.RawArtifact{Name: name, Version: version, Type: pythonType})
		}
	}

	names := make([]string, 0, len(proj.Tool.Poetry.Dependencies))
	for name := range proj.Tool.Poetry.Dependencies {
		if name != "python" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		deps = append(deps, models.RawArtifact{
			Name:    name,
			Version: extractPoetryPin(proj.Tool.Poetry.Dependencies[name]),
			Type:    pythonType,
		})
	}

	return deps, nil
}

// extractPoetryPin returns the version of an exact Poetry constraint
// ("1.2.3" or "==1.2.3"); caret, tilde and range constraints yield "".
func extractPoetryPin(val interface{}) string {
	var constraint string
	switch v := val.(type) {
	case string:
		constraint = v
	case map[string]interface{}:
		constraint, _ = v["version"].(string)
	}

	constraint = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(constraint), "=="))
	if constraint == "" || strings.ContainsAny(constraint, "^~<>=!*, ") {
		return ""
	}
	return constraint
}

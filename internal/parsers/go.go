package parsers

import (
	"github.com/reed74/dependency-code2/internal/models"
	"golang.org/x/mod/modfile"
)

// GoModParser parses go.mod files
type GoModParser struct {
	IncludeIndirect bool // Whether to include indirect dependencies
}

// CanParse returns true for go.mod files
func (p *GoModParser) CanParse(filename string) bool {
	return filename == "go.mod"
}

// Parse extracts requirements from go.mod content. Versions keep their "v"
// prefix, matching what the module proxy lists.
func (p *GoModParser) Parse(filepath string, content []byte) ([]models.RawArtifact, error) {
	mod, err := modfile.ParseLax(filepath, content, nil)
	if err != nil {
		return nil, err
	}

	var deps []models.RawArtifact
	for _, req := range mod.Require {
		if req.Indirect && !p.IncludeIndirect {
			continue
		}
		deps = append(deps, models.RawArtifact{
			Name:    req.Mod.Path,
			Version: req.Mod.Version,
			Type:    "go-module",
		})
	}

	return deps, nil
}

package parsers

import "github.com/reed74/dependency-code2/internal/models"

// Parser is the interface for auxiliary manifest parsers. Entries with an
// empty Version still need their version resolved.
type Parser interface {
	// CanParse returns true if this parser can handle the given filename
	CanParse(filename string) bool

	// Parse extracts declared dependencies from the file content
	Parse(filepath string, content []byte) ([]models.RawArtifact, error)
}

// GetAllParsers returns all available parsers
func GetAllParsers() []Parser {
	return []Parser{
		&PythonRequirementsParser{},
		&PythonPyProjectParser{},
		&NodePackageJSONParser{},
		&GoModParser{},
	}
}

// ForFile returns the first parser able to handle filename, or nil
func ForFile(filename string) Parser {
	for _, p := range GetAllParsers() {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// Filenames lists the fixed manifest names looked up at a project root
func Filenames() []string {
	return []string{"requirements.txt", "pyproject.toml", "package.json", "go.mod"}
}

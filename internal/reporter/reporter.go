package reporter

import (
	"fmt"

	"github.com/reed74/dependency-code2/internal/models"
)

// Reporter is the interface for output formatters
type Reporter interface {
	// Report generates output for the given scan results
	Report(results []models.ScanResult) ([]byte, error)
}

// Formats lists the supported output formats; the first is the default
func Formats() []string {
	return []string{"json", "table", "sarif", "cyclonedx"}
}

// Get returns a reporter for the specified format
func Get(format string) (Reporter, error) {
	switch format {
	case "", "json":
		return &JSONReporter{}, nil
	case "table":
		return &TableReporter{}, nil
	case "sarif":
		return &SARIFReporter{}, nil
	case "cyclonedx":
		return &CycloneDXReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %v)", format, Formats())
	}
}

// countVulnerable returns how many results carry at least one vulnerability
func countVulnerable(results []models.ScanResult) int {
	n := 0
	for _, r := range results {
		if r.IsVulnerable() {
			n++
		}
	}
	return n
}

package reporter

import (
	"encoding/json"

	"github.com/reed74/dependency-code2/internal/models"
)

// JSONReporter outputs results as an indented JSON array
type JSONReporter struct{}

// Report generates JSON output for the given results
func (r *JSONReporter) Report(results []models.ScanResult) ([]byte, error) {
	out := make([]models.ScanResult, 0, len(results))
	for _, res := range results {
		if res.Vulnerabilities == nil {
			res.Vulnerabilities = []models.Vulnerability{}
		}
		out = append(out, res)
	}
	return json.MarshalIndent(out, "", "  ")
}

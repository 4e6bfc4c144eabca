package reporter

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/reed74/dependency-code2/internal/models"
)

// TableReporter outputs results as a plain-text table, one row per
// vulnerability and one row for each clean dependency
type TableReporter struct{}

// Report generates table output for the given results
func (r *TableReporter) Report(results []models.ScanResult) ([]byte, error) {
	var buf bytes.Buffer

	if len(results) == 0 {
		buf.WriteString("No dependencies found.\n")
		return buf.Bytes(), nil
	}

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Name", "Version", "Type", "Vendor", "Vulnerability", "Severity"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(true)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	var rows [][]string
	for _, res := range results {
		dep := res.Dependency
		if !res.IsVulnerable() {
			rows = append(rows, []string{dep.Name, dep.Version, dep.Type, res.VendorName(), "", ""})
			continue
		}
		for _, v := range res.Vulnerabilities {
			rows = append(rows, []string{dep.Name, dep.Version, dep.Type, res.VendorName(), v.CVEID, severity(v)})
		}
	}
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintf(&buf, "\n%d dependencies, %d with vulnerabilities\n", len(results), countVulnerable(results))
	return buf.Bytes(), nil
}

// severity prefers the CVSS v3.1 rating and falls back to v4.0
func severity(v models.Vulnerability) string {
	switch {
	case v.CVSSV31Severity != nil:
		return *v.CVSSV31Severity
	case v.CVSSV40Severity != nil:
		return *v.CVSSV40Severity
	default:
		return "UNKNOWN"
	}
}

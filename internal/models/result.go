package models

// Vulnerability is a read-only projection of a vulnerability store row
type Vulnerability struct {
	CVEID           string   `json:"cve_id"`
	Description     *string  `json:"description"`
	CVSSV31Score    *float64 `json:"cvss_v31_score"`
	CVSSV31Severity *string  `json:"cvss_v31_severity"`
	CVSSV40Score    *float64 `json:"cvss_v40_score"`
	CVSSV40Severity *string  `json:"cvss_v40_severity"`
}

// ScanResult pairs a dependency with the vulnerabilities matched for it
type ScanResult struct {
	Dependency      Dependency      `json:"dependency"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Vendor          *string         `json:"vendor"`
}

// IsVulnerable returns true if at least one vulnerability matched
func (r ScanResult) IsVulnerable() bool {
	return len(r.Vulnerabilities) > 0
}

// VendorName returns the vendor or an empty string
func (r ScanResult) VendorName() string {
	if r.Vendor == nil {
		return ""
	}
	return *r.Vendor
}

package reporter

import (
	"bytes"
	"fmt"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/reed74/dependency-code2/internal/models"
)

// scoringMethodCVSSv4 is the CycloneDX rating method name for CVSS 4.0
const scoringMethodCVSSv4 = cdx.ScoringMethod("CVSSv4")

// CycloneDXReporter outputs a CycloneDX JSON BOM with one component per
// dependency and the matched vulnerabilities attached to it
type CycloneDXReporter struct{}

// Report generates a CycloneDX document for the given results
func (r *CycloneDXReporter) Report(results []models.ScanResult) ([]byte, error) {
	bom := cdx.NewBOM()

	components := []cdx.Component{}
	vulnerabilities := []cdx.Vulnerability{}
	for _, res := range results {
		component := newComponent(res)
		for _, v := range res.Vulnerabilities {
			vuln := newVulnerability(v)
			vuln.BOMRef = component.BOMRef + "#" + v.CVEID
			vuln.Affects = &[]cdx.Affects{{Ref: component.BOMRef}}
			vulnerabilities = append(vulnerabilities, vuln)
		}
		components = append(components, component)
	}
	bom.Components = &components
	bom.Vulnerabilities = &vulnerabilities

	var buf bytes.Buffer
	enc := cdx.NewBOMEncoder(&buf, cdx.BOMFileFormatJSON)
	enc.SetPretty(true)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(bom); err != nil {
		return nil, fmt.Errorf("failed to encode CycloneDX BOM: %w", err)
	}
	return buf.Bytes(), nil
}

func newComponent(res models.ScanResult) cdx.Component {
	dep := res.Dependency
	component := cdx.Component{
		BOMRef:     fmt.Sprintf("%s:%s@%s", dep.Type, dep.Name, dep.Version),
		Type:       cdx.ComponentTypeLibrary,
		Name:       dep.Name,
		Version:    dep.Version,
		PackageURL: dep.PackageURL(),
	}
	if res.Vendor != nil {
		component.Supplier = &cdx.OrganizationalEntity{Name: *res.Vendor}
	}
	return component
}

func newVulnerability(v models.Vulnerability) cdx.Vulnerability {
	vuln := cdx.Vulnerability{
		ID: v.CVEID,
		Source: &cdx.Source{
			Name: "NVD",
			URL:  "https://nvd.nist.gov/vuln/detail/" + v.CVEID,
		},
	}
	if v.Description != nil {
		vuln.Description = *v.Description
	}

	var ratings []cdx.VulnerabilityRating
	if v.CVSSV31Score != nil || v.CVSSV31Severity != nil {
		ratings = append(ratings, newRating(v.CVSSV31Score, v.CVSSV31Severity, cdx.ScoringMethodCVSSv31))
	}
	if v.CVSSV40Score != nil || v.CVSSV40Severity != nil {
		ratings = append(ratings, newRating(v.CVSSV40Score, v.CVSSV40Severity, scoringMethodCVSSv4))
	}
	if len(ratings) > 0 {
		vuln.Ratings = &ratings
	}
	return vuln
}

func newRating(score *float64, severity *string, method cdx.ScoringMethod) cdx.VulnerabilityRating {
	rating := cdx.VulnerabilityRating{Method: method}
	if score != nil {
		s := *score
		rating.Score = &s
	}
	if severity != nil {
		rating.Severity = cdx.Severity(strings.ToLower(*severity))
	}
	return rating
}

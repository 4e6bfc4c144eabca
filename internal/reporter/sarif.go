package reporter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/reed74/dependency-code2/internal/models"
)

// SARIFReporter outputs results in SARIF format for code scanning dashboards
type SARIFReporter struct{}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	FullDescription  sarifText       `json:"fullDescription"`
	Help             sarifText       `json:"help"`
	HelpURI          string          `json:"helpUri"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags             []string `json:"tags"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// Report generates SARIF output for the given results
func (r *SARIFReporter) Report(results []models.ScanResult) ([]byte, error) {
	rules, ruleIndexMap := r.buildRules(results)

	report := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "dependency-analysis",
					Version:        "1.0.0",
					InformationURI: "https://github.com/reed74/dependency-code2",
					Rules:          rules,
				},
			},
			Results: r.buildResults(results, ruleIndexMap),
		}},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildRules creates one rule per CVE, in first-seen order
func (r *SARIFReporter) buildRules(results []models.ScanResult) ([]sarifRule, map[string]int) {
	rules := []sarifRule{}
	ruleIndexMap := make(map[string]int)

	for _, res := range results {
		for _, v := range res.Vulnerabilities {
			if _, exists := ruleIndexMap[v.CVEID]; exists {
				continue
			}

			desc := v.CVEID
			if v.Description != nil && *v.Description != "" {
				desc = *v.Description
			}

			tags := []string{"security", "vulnerability"}
			if sev := severity(v); sev != "UNKNOWN" {
				tags = append(tags, sev)
			}

			ruleIndexMap[v.CVEID] = len(rules)
			rules = append(rules, sarifRule{
				ID:               v.CVEID,
				Name:             v.CVEID,
				ShortDescription: sarifText{Text: v.CVEID},
				FullDescription:  sarifText{Text: desc},
				Help:             sarifText{Text: fmt.Sprintf("See https://nvd.nist.gov/vuln/detail/%s", v.CVEID)},
				HelpURI:          fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", v.CVEID),
				DefaultConfig:    sarifRuleConfig{Level: sarifLevel(v)},
				Properties: sarifProperties{
					Tags:             tags,
					SecuritySeverity: securitySeverity(v),
				},
			})
		}
	}

	return rules, ruleIndexMap
}

func (r *SARIFReporter) buildResults(results []models.ScanResult, ruleIndexMap map[string]int) []sarifResult {
	out := []sarifResult{}

	for _, res := range results {
		dep := res.Dependency
		uri := dep.PackageURL()
		if uri == "" {
			uri = dep.Name
		}

		for _, v := range res.Vulnerabilities {
			msg := fmt.Sprintf("Dependency %s (%s) is affected by %s", dep.String(), dep.Type, v.CVEID)
			if res.Vendor != nil {
				msg += fmt.Sprintf(" [vendor: %s]", *res.Vendor)
			}

			out = append(out, sarifResult{
				RuleID:    v.CVEID,
				RuleIndex: ruleIndexMap[v.CVEID],
				Level:     sarifLevel(v),
				Message:   sarifText{Text: msg},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifact{URI: uri},
					},
				}},
				PartialFingerprints: map[string]string{
					"primaryLocationLineHash": fmt.Sprintf("%s:%s:%s:%s", dep.Name, dep.Version, dep.Type, v.CVEID),
				},
			})
		}
	}

	return out
}

// securitySeverity is the numeric score used by code scanning to rank results
func securitySeverity(v models.Vulnerability) string {
	switch {
	case v.CVSSV31Score != nil:
		return strconv.FormatFloat(*v.CVSSV31Score, 'f', 1, 64)
	case v.CVSSV40Score != nil:
		return strconv.FormatFloat(*v.CVSSV40Score, 'f', 1, 64)
	default:
		return ""
	}
}

func sarifLevel(v models.Vulnerability) string {
	switch strings.ToUpper(severity(v)) {
	case "CRITICAL", "HIGH":
		return "error"
	case "MEDIUM":
		return "warning"
	default:
		return "note"
	}
}

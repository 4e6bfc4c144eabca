// Package matcher maps a dependency name and version onto vulnerability
// records in the store.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/store"
)

// FallbackPolicy decides when the matcher moves on to the next candidate name
type FallbackPolicy string

const (
	// FallbackOnNoVulnerabilities tries the next candidate whenever the
	// current one yielded no vulnerability rows
	FallbackOnNoVulnerabilities FallbackPolicy = "no-vulnerabilities"
	// FallbackOnUnknownProduct tries the next candidate only when the current
	// one has no products row for the version
	FallbackOnUnknownProduct FallbackPolicy = "unknown-product"
)

// ParseFallbackPolicy validates a policy name; empty selects the default
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackOnNoVulnerabilities, nil
	case FallbackOnNoVulnerabilities, FallbackOnUnknownProduct:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q (want %q or %q)", s, FallbackOnNoVulnerabilities, FallbackOnUnknownProduct)
	}
}

// Match is the outcome of matching one dependency
type Match struct {
	Vulnerabilities []models.Vulnerability
	// Vendor is empty when no products row matched
	Vendor string
	// Product is the candidate name that produced the match, if any
	Product string
}

// Matcher queries a Store for vulnerabilities of a dependency
type Matcher struct {
	store  store.Store
	policy FallbackPolicy
}

// New creates a matcher over s
func New(s store.Store, policy FallbackPolicy) *Matcher {
	if policy == "" {
		policy = FallbackOnNoVulnerabilities
	}
	return &Matcher{store: s, policy: policy}
}

// Candidates returns the product names tried for name, in order: the name
// itself and, for scoped or grouped names, the segment after the last "/".
func Candidates(name string) []string {
	candidates := []string{name}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		candidates = append(candidates, name[i+1:])
	}
	return candidates
}

// Match looks up the vulnerabilities and vendor of name@version. The name is
// replaced by its canonical alias when one exists. Store errors are returned;
// finding nothing is not an error.
func (m *Matcher) Match(ctx context.Context, name, version string) (Match, error) {
	search := name
	canonical, found, err := m.store.LookupAlias(ctx, name)
	if err != nil {
		return Match{}, fmt.Errorf("matching %s: %w", name, err)
	}
	if found {
		log.Debugf("alias %s -> %s", name, canonical)
		search = canonical
	}

	candidates := Candidates(search)
	var result Match
	for i, candidate := range candidates {
		rows, err := m.store.FindVulnerabilities(ctx, candidate, version)
		if err != nil {
			return Match{}, fmt.Errorf("matching %s: %w", name, err)
		}
		if len(rows) > 0 {
			result.Product = candidate
			result.Vulnerabilities = make([]models.Vulnerability, 0, len(rows))
			for _, row := range rows {
				if result.Vendor == "" {
					result.Vendor = row.Vendor
				}
				result.Vulnerabilities = append(result.Vulnerabilities, row.Vulnerability)
			}
			return result, nil
		}

		if m.policy != FallbackOnUnknownProduct {
			continue
		}
		vendor, known, err := m.store.FindVendor(ctx, candidate, version)
		if err != nil {
			return Match{}, fmt.Errorf("matching %s: %w", name, err)
		}
		if known {
			if i+1 < len(candidates) {
				log.Debugf("%s@%s is a known product without vulnerabilities, not falling back", candidate, version)
			}
			return Match{Vendor: vendor, Product: candidate}, nil
		}
	}

	if m.policy == FallbackOnUnknownProduct {
		// every candidate was already checked for a products row
		return result, nil
	}

	for _, candidate := range candidates {
		vendor, known, err := m.store.FindVendor(ctx, candidate, version)
		if err != nil {
			return Match{}, fmt.Errorf("matching %s: %w", name, err)
		}
		if known {
			return Match{Vendor: vendor, Product: candidate}, nil
		}
	}
	return result, nil
}

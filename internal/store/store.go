// Package store provides read access to the vulnerability database.
package store

import (
	"context"
	"errors"

	"github.com/reed74/dependency-code2/internal/models"
)

// ErrUnavailable is returned when the vulnerability store cannot be reached
var ErrUnavailable = errors.New("vulnerability store unavailable")

// VulnerabilityRow is a vulnerability joined with the vendor of the product
// it was recorded against
type VulnerabilityRow struct {
	models.Vulnerability
	Vendor string
}

// Store is the read-only query surface used by the matcher
type Store interface {
	// LookupAlias maps an alias to its canonical product name
	LookupAlias(ctx context.Context, name string) (string, bool, error)
	// FindVulnerabilities returns the vulnerabilities recorded for a product
	// and exact version, ordered by CVE id
	FindVulnerabilities(ctx context.Context, product, version string) ([]VulnerabilityRow, error)
	// FindVendor returns the vendor of a product row, if one exists
	FindVendor(ctx context.Context, product, version string) (string, bool, error)
	Close() error
}

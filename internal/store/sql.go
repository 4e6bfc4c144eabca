package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/telemetry"
)

const (
	aliasQuery = `SELECT canonical_name FROM package_aliases WHERE alias_name = ?`

	vulnerabilitiesQuery = `SELECT v.cve_id, v.description, v.cvss_v31_score, v.cvss_v31_severity,
	v.cvss_v40_score, v.cvss_v40_severity, p.vendor
FROM vulnerabilities v
JOIN vulnerability_product_map vpm ON v.id = vpm.vulnerability_id
JOIN products p ON vpm.product_id = p.id
WHERE p.product = ? AND p.version = ?
ORDER BY v.cve_id`

	vendorQuery = `SELECT vendor FROM products WHERE product = ? AND version = ? LIMIT 1`
)

// SQLStore implements Store on database/sql
type SQLStore struct {
	db      *sql.DB
	dialect string
	metrics *telemetry.Metrics
}

// Open connects to the store described by cfg and verifies the connection.
// Connection failures wrap ErrUnavailable.
func Open(ctx context.Context, cfg models.StoreConfig, metrics *telemetry.Metrics) (*SQLStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = PostgresDSN(cfg)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Debugf("connected to %s vulnerability store", cfg.Driver)
	return NewSQLStore(db, cfg.Driver, metrics), nil
}

// NewSQLStore wraps an open database handle. dialect selects the placeholder
// style and is either "postgres" or "sqlite".
func NewSQLStore(db *sql.DB, dialect string, metrics *telemetry.Metrics) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, metrics: metrics}
}

// PostgresDSN builds a postgres connection URL from discrete settings
func PostgresDSN(cfg models.StoreConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// LookupAlias returns the canonical name registered for an alias
func (s *SQLStore) LookupAlias(ctx context.Context, name string) (string, bool, error) {
	var canonical string
	err := s.db.QueryRowContext(ctx, s.rebind(aliasQuery), name).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.ObserveStoreQuery("alias", nil)
		return "", false, nil
	}
	s.metrics.ObserveStoreQuery("alias", err)
	if err != nil {
		return "", false, fmt.Errorf("alias lookup for %s: %w", name, err)
	}
	return canonical, true, nil
}

// FindVulnerabilities returns the vulnerabilities mapped to product@version
func (s *SQLStore) FindVulnerabilities(ctx context.Context, product, version string) ([]VulnerabilityRow, error) {
	result, err := s.findVulnerabilities(ctx, product, version)
	s.metrics.ObserveStoreQuery("vulnerabilities", err)
	return result, err
}

func (s *SQLStore) findVulnerabilities(ctx context.Context, product, version string) ([]VulnerabilityRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(vulnerabilitiesQuery), product, version)
	if err != nil {
		return nil, fmt.Errorf("vulnerability query for %s@%s: %w", product, version, err)
	}
	defer rows.Close()

	var result []VulnerabilityRow
	for rows.Next() {
		var (
			cveID                    string
			description              sql.NullString
			v31Score, v40Score       sql.NullFloat64
			v31Severity, v40Severity sql.NullString
			vendor                   sql.NullString
		)
		if err := rows.Scan(&cveID, &description, &v31Score, &v31Severity, &v40Score, &v40Severity, &vendor); err != nil {
			return nil, fmt.Errorf("scan vulnerability row: %w", err)
		}
		result = append(result, VulnerabilityRow{
			Vulnerability: models.Vulnerability{
				CVEID:           cveID,
				Description:     nullString(description),
				CVSSV31Score:    nullFloat(v31Score),
				CVSSV31Severity: nullString(v31Severity),
				CVSSV40Score:    nullFloat(v40Score),
				CVSSV40Severity: nullString(v40Severity),
			},
			Vendor: vendor.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vulnerability query for %s@%s: %w", product, version, err)
	}
	return result, nil
}

// FindVendor returns the vendor of the first products row for product@version.
// found is true when a row exists, even if its vendor is empty.
func (s *SQLStore) FindVendor(ctx context.Context, product, version string) (string, bool, error) {
	var vendor sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(vendorQuery), product, version).Scan(&vendor)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.ObserveStoreQuery("vendor", nil)
		return "", false, nil
	}
	s.metrics.ObserveStoreQuery("vendor", err)
	if err != nil {
		return "", false, fmt.Errorf("vendor lookup for %s@%s: %w", product, version, err)
	}
	return vendor.String, true, nil
}

// Close releases the connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Package inventory produces the raw component list of a source tree.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	depExec "github.com/reed74/dependency-code2/internal/exec"
	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/models"
)

// ErrScannerUnavailable is returned when the syft binary cannot be found
var ErrScannerUnavailable = errors.New("syft is not installed or not in PATH")

// Scanner lists the components found under a filesystem root
type Scanner interface {
	Scan(ctx context.Context, root string) ([]models.RawArtifact, error)
}

// syftDocument is the subset of syft's JSON output we rely on
type syftDocument struct {
	Artifacts []models.RawArtifact `json:"artifacts"`
}

// SyftScanner runs the syft CLI against a directory
type SyftScanner struct {
	// Binary is the syft executable; defaults to "syft" on PATH
	Binary string
}

// NewSyftScanner creates a scanner using syft from PATH
func NewSyftScanner() *SyftScanner {
	return &SyftScanner{Binary: "syft"}
}

// Scan runs `syft <root> -o json` and returns its artifacts
func (s *SyftScanner) Scan(ctx context.Context, root string) ([]models.RawArtifact, error) {
	binary := s.Binary
	if binary == "" {
		binary = "syft"
	}
	if _, err := depExec.LookPath(binary); err != nil {
		return nil, ErrScannerUnavailable
	}

	log.Debugf("running %s against %s", binary, root)
	res, err := depExec.Run(ctx, binary, []string{root, "-o", "json"}, "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("syft scan failed (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	log.Debugf("syft finished in %s", res.Duration)

	return ParseSyftJSON(res.Stdout)
}

// SBOMFile reads a previously generated syft JSON document instead of
// running syft; the scan root is ignored.
type SBOMFile struct {
	Path string
}

// Scan reads and parses the SBOM file
func (f *SBOMFile) Scan(_ context.Context, _ string) ([]models.RawArtifact, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SBOM %s: %w", f.Path, err)
	}
	return ParseSyftJSON(data)
}

// ParseSyftJSON extracts artifacts from syft JSON output
func ParseSyftJSON(data []byte) ([]models.RawArtifact, error) {
	var doc syftDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse syft output: %w", err)
	}
	return doc.Artifacts, nil
}

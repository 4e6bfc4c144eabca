package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/reed74/dependency-code2/internal/log"
	"github.com/reed74/dependency-code2/internal/models"
	"github.com/reed74/dependency-code2/internal/telemetry"
)

// maxResponseSize bounds how much of a registry response is read
const maxResponseSize = 32 << 20

var (
	// ErrPackageNotFound is returned when a registry has no such package
	ErrPackageNotFound = errors.New("package not found")
	// ErrNoVersions is returned when a registry lists no usable version
	ErrNoVersions = errors.New("registry returned no versions")
)

// Registry looks up the latest published version of a package in one ecosystem
type Registry interface {
	Latest(ctx context.Context, name string) (string, error)
}

// RegistryResolver dispatches latest-version lookups to the registry matching
// a package's ecosystem
type RegistryResolver struct {
	registries map[models.Ecosystem]Registry
	timeout    time.Duration
	metrics    *telemetry.Metrics
}

// NewRegistryResolver creates a resolver backed by the public registries in cfg
func NewRegistryResolver(cfg models.RegistryConfig, metrics *telemetry.Metrics) *RegistryResolver {
	h := newHTTPGetter(cfg)
	return &RegistryResolver{
		registries: map[models.Ecosystem]Registry{
			models.EcosystemPyPI:     &PyPIClient{http: h, baseURL: cfg.PyPIURL},
			models.EcosystemMaven:    &MavenClient{http: h, baseURL: cfg.MavenURL},
			models.EcosystemComposer: &PackagistClient{http: h, baseURL: cfg.PackagistURL},
			models.EcosystemNpm:      &NpmClient{http: h, baseURL: cfg.NpmURL},
			models.EcosystemGo:       &GoProxyClient{http: h, baseURL: cfg.GoProxyURL},
			models.EcosystemNuGet:    &NuGetClient{http: h, baseURL: cfg.NuGetURL},
		},
		timeout: cfg.Timeout,
		metrics: metrics,
	}
}

// Resolve returns the latest version of the named package, or
// models.UnknownVersion when the lookup fails for any reason. It never
// returns an error; a failed lookup must not stop the analysis.
func (r *RegistryResolver) Resolve(ctx context.Context, name, tag string) string {
	ecosystem := models.EcosystemFor(tag)
	registry, ok := r.registries[ecosystem]
	if !ok {
		r.metrics.ObserveLookup(string(ecosystem), telemetry.OutcomeUnsupported)
		return models.UnknownVersion
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	version, err := registry.Latest(ctx, name)
	if err == nil {
		version = strings.TrimSpace(version)
		if version == "" {
			err = ErrNoVersions
		}
	}
	if err != nil {
		log.Debugf("unable to resolve latest version of %s (%s): %v", name, tag, err)
		r.metrics.ObserveLookup(string(ecosystem), telemetry.OutcomeFailed)
		return models.UnknownVersion
	}

	r.metrics.ObserveLookup(string(ecosystem), telemetry.OutcomeResolved)
	return version
}

// httpGetter performs the GET requests shared by every registry client
type httpGetter struct {
	client    *http.Client
	userAgent string
}

func newHTTPGetter(cfg models.RegistryConfig) *httpGetter {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = cfg.Timeout
	return &httpGetter{client: client, userAgent: cfg.UserAgent}
}

// get fetches url and returns the body of a 200 response
func (h *httpGetter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPackageNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// getJSON fetches url and decodes the JSON body into v
func (h *httpGetter) getJSON(ctx context.Context, url string, v interface{}) error {
	body, err := h.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse registry response: %w", err)
	}
	return nil
}

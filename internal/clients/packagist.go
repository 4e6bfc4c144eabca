package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PackagistClient queries Packagist for PHP Composer packages
type PackagistClient struct {
	http    *httpGetter
	baseURL string
}

type packagistResponse struct {
	Package struct {
		Versions json.RawMessage `json:"versions"`
	} `json:"package"`
}

var preReleaseMarkers = []string{"dev", "alpha", "beta"}

// Latest returns the first listed version that is not a pre-release,
// falling back to the first listed version. Names look like "vendor/package".
func (c *PackagistClient) Latest(ctx context.Context, name string) (string, error) {
	var resp packagistResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/packages/"+name+".json", &resp); err != nil {
		return "", err
	}

	versions, err := objectKeys(resp.Package.Versions)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", ErrNoVersions
	}

	for _, v := range versions {
		if !isPreRelease(v) {
			return v, nil
		}
	}
	return versions[0], nil
}

func isPreRelease(v string) bool {
	for _, marker := range preReleaseMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected versions object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected versions key %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

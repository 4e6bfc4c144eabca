package clients

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/module"
)

// GoProxyClient queries a Go module proxy
type GoProxyClient struct {
	http    *httpGetter
	baseURL string
}

// Latest returns the last entry of GET /{module}/@v/list
func (c *GoProxyClient) Latest(ctx context.Context, name string) (string, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return "", fmt.Errorf("invalid module path %q: %w", name, err)
	}

	body, err := c.http.get(ctx, c.baseURL+"/"+escaped+"/@v/list")
	if err != nil {
		return "", err
	}

	var last string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			last = line
		}
	}
	if last == "" {
		return "", ErrNoVersions
	}
	return last, nil
}

package clients

import (
	"context"
	"net/url"
)

// PyPIClient queries the Python Package Index JSON API
type PyPIClient struct {
	http    *httpGetter
	baseURL string
}

type pypiResponse struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// Latest returns info.version from GET /pypi/{name}/json
func (c *PyPIClient) Latest(ctx context.Context, name string) (string, error) {
	var resp pypiResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/pypi/"+url.PathEscape(name)+"/json", &resp); err != nil {
		return "", err
	}
	return resp.Info.Version, nil
}

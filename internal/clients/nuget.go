package clients

import (
	"context"
	"net/url"
	"strings"
)

// NuGetClient queries the NuGet flat container API
type NuGetClient struct {
	http    *httpGetter
	baseURL string
}

type nugetIndex struct {
	Versions []string `json:"versions"`
}

// Latest returns the last entry of the package's version index
func (c *NuGetClient) Latest(ctx context.Context, name string) (string, error) {
	id := url.PathEscape(strings.ToLower(name))

	var index nugetIndex
	if err := c.http.getJSON(ctx, c.baseURL+"/v3-flatcontainer/"+id+"/index.json", &index); err != nil {
		return "", err
	}
	if len(index.Versions) == 0 {
		return "", ErrNoVersions
	}
	return index.Versions[len(index.Versions)-1], nil
}

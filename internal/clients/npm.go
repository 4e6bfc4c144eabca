package clients

import (
	"context"
	"net/url"
)

// NpmClient queries the npm registry
type NpmClient struct {
	http    *httpGetter
	baseURL string
}

type npmPackument struct {
	DistTags struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
}

// Latest returns dist-tags.latest. Scoped names keep their "@" and have the
// scope separator escaped, e.g. "@angular%2Fcore".
func (c *NpmClient) Latest(ctx context.Context, name string) (string, error) {
	var doc npmPackument
	if err := c.http.getJSON(ctx, c.baseURL+"/"+url.PathEscape(name), &doc); err != nil {
		return "", err
	}
	return doc.DistTags.Latest, nil
}

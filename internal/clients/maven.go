package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// MavenClient queries the Maven Central search API
type MavenClient struct {
	http    *httpGetter
	baseURL string
}

type mavenSearchResponse struct {
	Response struct {
		Docs []struct {
			V             string `json:"v"`
			LatestVersion string `json:"latestVersion"`
		} `json:"docs"`
	} `json:"response"`
}

// Latest searches by "group:artifact" when the name carries a group,
// otherwise by artifact id alone.
func (c *MavenClient) Latest(ctx context.Context, name string) (string, error) {
	var q string
	if group, artifact, ok := strings.Cut(name, ":"); ok {
		q = fmt.Sprintf(`g:"%s" AND a:"%s"`, group, artifact)
	} else {
		q = fmt.Sprintf(`a:"%s"`, name)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("rows", "1")
	params.Set("wt", "json")

	var resp mavenSearchResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/solrsearch/select?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Response.Docs) == 0 {
		return "", ErrPackageNotFound
	}

	doc := resp.Response.Docs[0]
	if doc.V != "" {
		return doc.V, nil
	}
	return doc.LatestVersion, nil
}

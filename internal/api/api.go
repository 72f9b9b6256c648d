// Package api queries the crates.io web API for crate metadata the index
// does not carry: descriptions, repository links, download counts, owners.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/cargo-query/client"
)

// Client talks to the crates.io API.
type Client struct {
	baseURL string
	http    *client.Client
	urls    *client.URLs
}

// New creates an API client. An empty baseURL falls back to crates.io.
func New(baseURL string, c *client.Client) *Client {
	if baseURL == "" {
		baseURL = client.DefaultAPIURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    c,
		urls:    client.NewURLs("", baseURL),
	}
}

// URLs returns the URL builder backing this client.
func (c *Client) URLs() *client.URLs {
	return c.urls
}

type crateResponse struct {
	Crate    crateInfo     `json:"crate"`
	Versions []versionInfo `json:"versions"`
}

type crateInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Homepage    string   `json:"homepage"`
	Repository  string   `json:"repository"`
	Keywords    []string `json:"keywords"`
	Categories  []string `json:"categories"`
	Downloads   int      `json:"downloads"`
	MaxVersion  string   `json:"max_version"`
}

type versionInfo struct {
	Num       string `json:"num"`
	License   string `json:"license"`
	Yanked    bool   `json:"yanked"`
	CreatedAt string `json:"created_at"`
}

type ownersResponse struct {
	Users []ownerInfo `json:"users"`
}

type ownerInfo struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// Crate is the API-side metadata for one crate.
type Crate struct {
	Name        string
	Description string
	Homepage    string
	Repository  string
	License     string
	Keywords    []string
	Categories  []string
	Downloads   int
	MaxVersion  string
	PublishedAt time.Time
}

// Owner is one registered owner of a crate.
type Owner struct {
	ID    int
	Login string
	Name  string
	URL   string
}

func (c *Client) apiURL(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// Crate fetches crate-level metadata.
func (c *Client) Crate(ctx context.Context, name string) (*Crate, error) {
	url := c.apiURL("/api/v1/crates/%s", name)

	var resp crateResponse
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*client.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}

	crate := &Crate{
		Name:        resp.Crate.ID,
		Description: resp.Crate.Description,
		Homepage:    resp.Crate.Homepage,
		Repository:  resp.Crate.Repository,
		Keywords:    resp.Crate.Keywords,
		Categories:  resp.Crate.Categories,
		Downloads:   resp.Crate.Downloads,
		MaxVersion:  resp.Crate.MaxVersion,
	}
	if len(resp.Versions) > 0 {
		crate.License = resp.Versions[0].License
		if t, err := time.Parse(time.RFC3339, resp.Versions[0].CreatedAt); err == nil {
			crate.PublishedAt = t
		}
	}
	return crate, nil
}

// Owners fetches the crate's owner users.
func (c *Client) Owners(ctx context.Context, name string) ([]Owner, error) {
	url := c.apiURL("/api/v1/crates/%s/owner_user", name)

	var resp ownersResponse
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*client.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}

	owners := make([]Owner, len(resp.Users))
	for i, u := range resp.Users {
		owners[i] = Owner{
			ID:    u.ID,
			Login: u.Login,
			Name:  u.Name,
			URL:   u.URL,
		}
	}
	return owners, nil
}

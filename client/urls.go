package client

import (
	"fmt"
	"strings"
)

const (
	// DefaultIndexURL is the crates.io sparse index root.
	DefaultIndexURL = "https://index.crates.io"
	// DefaultAPIURL is the crates.io web API root.
	DefaultAPIURL = "https://crates.io"
)

// URLs builds the well-known crates.io URL family for a crate.
type URLs struct {
	indexBase string
	apiBase   string
}

// NewURLs creates a URL builder. Empty arguments fall back to the
// crates.io defaults.
func NewURLs(indexBase, apiBase string) *URLs {
	if indexBase == "" {
		indexBase = DefaultIndexURL
	}
	if apiBase == "" {
		apiBase = DefaultAPIURL
	}
	return &URLs{
		indexBase: strings.TrimSuffix(indexBase, "/"),
		apiBase:   strings.TrimSuffix(apiBase, "/"),
	}
}

// Index returns the full URL of an index shard given its relative path.
func (u *URLs) Index(shardPath string) string {
	return u.indexBase + "/" + shardPath
}

// Registry returns the crate's page on the registry.
func (u *URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("%s/crates/%s/%s", u.apiBase, name, version)
	}
	return fmt.Sprintf("%s/crates/%s", u.apiBase, name)
}

// Download returns the .crate archive URL for a version.
func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("https://static.crates.io/crates/%s/%s-%s.crate", name, name, version)
}

// Documentation returns the docs.rs URL.
func (u *URLs) Documentation(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://docs.rs/%s/%s", name, version)
	}
	return fmt.Sprintf("https://docs.rs/%s", name)
}

// PURL returns the package URL identifier.
func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:cargo/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:cargo/%s", name)
}

// BuildURLs returns a map of all non-empty URLs for a crate.
// Keys are "registry", "download", "docs", and "purl".
func BuildURLs(urls *URLs, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Registry(name, version); v != "" {
		result["registry"] = v
	}
	if v := urls.Download(name, version); v != "" {
		result["download"] = v
	}
	if v := urls.Documentation(name, version); v != "" {
		result["docs"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}

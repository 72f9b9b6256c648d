// Package fetch retrieves raw index shards over HTTP with retry, DNS
// caching, and circuit breaking. It is the only part of the query
// pipeline that performs I/O.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNotFound     = errors.New("shard not found")
	ErrRateLimited  = errors.New("rate limited by upstream")
	ErrUpstreamDown = errors.New("upstream index unavailable")
)

// ShardFetcher fetches the raw bytes of an index shard by its relative
// path. Implementations return an error wrapping ErrNotFound when the
// index has no shard at that path.
type ShardFetcher interface {
	FetchShard(ctx context.Context, shardPath string) ([]byte, error)
}

// Fetcher downloads index shards from a sparse registry index.
type Fetcher struct {
	baseURL    string
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration

	stopDNS   chan struct{}
	closeOnce sync.Once
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// NewFetcher creates a Fetcher for the index rooted at baseURL. An empty
// baseURL falls back to the crates.io sparse index.
func NewFetcher(baseURL string, opts ...Option) *Fetcher {
	if baseURL == "" {
		baseURL = "https://index.crates.io"
	}

	// DNS cache with 5 minute refresh interval; the goroutine runs
	// until Close.
	resolver := &dnscache.Resolver{}
	stopDNS := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-stopDNS:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	f := &Fetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "cargo-query/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		stopDNS:    stopDNS,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BaseURL returns the index root this fetcher reads from.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// Close stops the background DNS refresh. Safe to call more than once;
// the fetcher itself stays usable, only cache refreshing stops.
func (f *Fetcher) Close() error {
	f.closeOnce.Do(func() {
		close(f.stopDNS)
	})
	return nil
}

// FetchShard downloads one shard and returns its raw bytes.
func (f *Fetcher) FetchShard(ctx context.Context, shardPath string) ([]byte, error) {
	url := f.baseURL + "/" + shardPath

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter to prevent thundering herd
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(float64(delay) * (rand.Float64() * 0.1))
			delay += jitter

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, err := f.doFetch(ctx, url)
		if err == nil {
			return data, nil
		}

		lastErr = err

		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			continue
		}
		return nil, err
	}

	return nil, lastErr
}

func (f *Fetcher) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching shard: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading shard body: %w", err)
		}
		return data, nil

	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited

	case resp.StatusCode >= 500:
		return nil, ErrUpstreamDown

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// Package robots provides robots.txt compliance checking with per-host
// caching, part of the crawl etiquette applied before snapshot fetches.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// defaultCacheTTL is how long a fetched robots.txt stays valid.
const defaultCacheTTL = 24 * time.Hour

// robotsPath is the well-known robots.txt location.
const robotsPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// Checker checks and caches robots.txt rules per host. A missing or
// erroring robots.txt allows all, per standard practice.
type Checker struct {
	httpClient *http.Client
	userAgent  string
	cacheTTL   time.Duration

	mu    sync.RWMutex
	cache map[string]*cacheEntry // keyed by host
}

// cacheEntry stores parsed robots.txt data for a host.
type cacheEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewChecker creates a Checker backed by the given HTTP client.
func NewChecker(httpClient *http.Client, userAgent string, cacheTTL time.Duration) *Checker {
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Checker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]*cacheEntry),
	}
}

// IsAllowed reports whether rawURL may be fetched under the host's
// robots.txt, fetching and caching the file when absent or stale.
func (c *Checker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry, err := c.getOrFetch(ctx, host, parsed.Scheme)
	if err != nil {
		return false, err
	}

	if entry.allowAll {
		return true, nil
	}

	return entry.data.TestAgent(parsed.Path, c.userAgent), nil
}

// getOrFetch returns the cached entry for host, refreshing it when stale.
func (c *Checker) getOrFetch(ctx context.Context, host, scheme string) (*cacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.cache[host]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.cacheTTL {
		return entry, nil
	}

	entry = c.fetch(ctx, host, scheme)

	c.mu.Lock()
	c.cache[host] = entry
	c.mu.Unlock()

	return entry, nil
}

// fetch retrieves and parses robots.txt for the host. Any failure produces
// an allow-all entry so a flaky robots endpoint never blocks ingestion.
func (c *Checker) fetch(ctx context.Context, host, scheme string) *cacheEntry {
	if scheme == "" {
		scheme = "https"
	}

	robotsURL := scheme + "://" + host + robotsPath

	allowAll := &cacheEntry{fetchedAt: time.Now(), allowAll: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return allowAll
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return allowAll
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return allowAll
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return allowAll
	}

	return &cacheEntry{data: data, fetchedAt: time.Now()}
}

// Package rails defines the immutable crawl policy governing one ingestion
// run: item caps, per-host pacing, timeouts, payload ceilings, and the
// domain allowlist.
package rails

import (
	"os"
	"strconv"
	"time"
)

// Static defaults, tuned for polite crawling of regulator sites.
const (
	DefaultMaxItemsPerRun           = 200
	DefaultMaxPerFeedPerRun         = 50
	DefaultMaxRequestsPerHostPerMin = 30
	DefaultMinDelayMsSameHost       = 1000
	DefaultFetchTimeoutMs           = 15000
	DefaultMaxHTMLSnapshotBytes     = 2 * 1024 * 1024
	DefaultMaxPDFBytes              = 20 * 1024 * 1024
)

// Environment variable names for the overridable fields. Security- and
// correctness-sensitive fields (allowed domains, strip params, byte
// ceilings) are never overridable from the environment.
const (
	EnvMaxItemsPerRun   = "REGINTAKE_MAX_ITEMS_PER_RUN"
	EnvMaxPerFeedPerRun = "REGINTAKE_MAX_PER_FEED_PER_RUN"
	EnvFetchTimeoutMs   = "REGINTAKE_FETCH_TIMEOUT_MS"
)

// CrawlRails is the policy value object for one ingestion run. It is
// constructed once per run and never mutated afterward; any override
// produces a new value.
type CrawlRails struct {
	MaxItemsPerRun              int
	MaxPerFeedPerRun            int
	MaxRequestsPerHostPerMinute int
	MinDelayMsBetweenRequests   int
	FetchTimeoutMs              int
	MaxHTMLSnapshotBytes        int64
	MaxPDFBytes                 int64
	AllowedDomains              map[string]struct{}
	StripQueryParams            map[string]struct{}
}

// Default returns the static default rails with the given domain allowlist
// and strip-param set.
func Default(allowedDomains, stripQueryParams []string) CrawlRails {
	return CrawlRails{
		MaxItemsPerRun:              DefaultMaxItemsPerRun,
		MaxPerFeedPerRun:            DefaultMaxPerFeedPerRun,
		MaxRequestsPerHostPerMinute: DefaultMaxRequestsPerHostPerMin,
		MinDelayMsBetweenRequests:   DefaultMinDelayMsSameHost,
		FetchTimeoutMs:              DefaultFetchTimeoutMs,
		MaxHTMLSnapshotBytes:        DefaultMaxHTMLSnapshotBytes,
		MaxPDFBytes:                 DefaultMaxPDFBytes,
		AllowedDomains:              toSet(allowedDomains),
		StripQueryParams:            toSet(stripQueryParams),
	}
}

// WithEnvOverrides returns a copy of base with the overridable fields
// replaced by values from the environment. An override must parse as a
// positive integer; absent, non-numeric, or non-positive values leave the
// base value intact. The base is never mutated.
func WithEnvOverrides(base CrawlRails) CrawlRails {
	out := base

	if v, ok := positiveIntEnv(EnvMaxItemsPerRun); ok {
		out.MaxItemsPerRun = v
	}
	if v, ok := positiveIntEnv(EnvMaxPerFeedPerRun); ok {
		out.MaxPerFeedPerRun = v
	}
	if v, ok := positiveIntEnv(EnvFetchTimeoutMs); ok {
		out.FetchTimeoutMs = v
	}

	return out
}

// FetchTimeout returns the per-request timeout as a duration.
func (r CrawlRails) FetchTimeout() time.Duration {
	return time.Duration(r.FetchTimeoutMs) * time.Millisecond
}

// MinDelay returns the per-host minimum inter-request delay as a duration.
func (r CrawlRails) MinDelay() time.Duration {
	return time.Duration(r.MinDelayMsBetweenRequests) * time.Millisecond
}

// positiveIntEnv reads the named environment variable as a positive integer.
func positiveIntEnv(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}

	return v, true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Package urlutil provides URL canonicalization and allowlist matching for
// the intake pipeline. All functions are pure and perform no I/O.
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// queryPair is a single query parameter. Pairs are sorted with a stable sort
// so equal names keep their original relative order.
type queryPair struct {
	name     string
	value    string
	hasValue bool
}

// Canonicalize rewrites rawURL into the normal form used for dedupe hashing:
// query parameters named in stripParams are removed (case-sensitive exact
// match), remaining parameters are sorted by name, and a single trailing
// slash is stripped from the path unless the path is exactly "/".
//
// Malformed input is returned unchanged; downstream hashing still needs a
// stable string, so canonicalization fails open.
func Canonicalize(rawURL string, stripParams map[string]struct{}) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.RawQuery = canonicalQuery(parsed.RawQuery, stripParams)

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		if parsed.RawPath != "" {
			parsed.RawPath = strings.TrimSuffix(parsed.RawPath, "/")
		}
	}

	return parsed.String()
}

// canonicalQuery strips and sorts query parameters. Parsing is done by hand
// rather than through url.Values so parameter order can be controlled: equal
// names must keep their original relative order.
func canonicalQuery(rawQuery string, stripParams map[string]struct{}) string {
	if rawQuery == "" {
		return ""
	}

	pairs := make([]queryPair, 0)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}

		name, value, hasValue := strings.Cut(part, "=")

		decoded, decodeErr := url.QueryUnescape(name)
		if decodeErr != nil {
			decoded = name
		}

		if _, strip := stripParams[decoded]; strip {
			continue
		}

		pairs = append(pairs, queryPair{name: name, value: value, hasValue: hasValue})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].name < pairs[j].name
	})

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !p.hasValue {
			parts = append(parts, p.name)
			continue
		}
		parts = append(parts, p.name+"="+p.value)
	}

	return strings.Join(parts, "&")
}

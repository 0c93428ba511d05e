package urlutil

import (
	"net/url"
	"strings"
)

// IsAllowed reports whether rawURL's host is covered by the domain allowlist.
// A host matches when it equals an allowed domain exactly or is a strict
// subdomain of it. Matching anchors on the label boundary: "malicious-ftc.gov"
// does not match "ftc.gov". Unparseable URLs are never allowed.
func IsAllowed(rawURL string, allowedDomains map[string]struct{}) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for domain := range allowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}

// Host extracts the lowercased hostname from rawURL, or "" when the URL does
// not parse. Used to key per-host rate gates.
func Host(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

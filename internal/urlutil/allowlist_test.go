package urlutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/regintake/internal/urlutil"
)

func allowed(domains ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	return set
}

func TestIsAllowed_ExactMatch(t *testing.T) {
	domains := allowed("ftc.gov")

	assert.True(t, urlutil.IsAllowed("https://ftc.gov/news/item", domains))
}

func TestIsAllowed_Subdomain(t *testing.T) {
	domains := allowed("ftc.gov")

	assert.True(t, urlutil.IsAllowed("https://www.ftc.gov/news/item", domains))
	assert.True(t, urlutil.IsAllowed("https://press.media.ftc.gov/x", domains))
}

func TestIsAllowed_LabelBoundary(t *testing.T) {
	domains := allowed("ftc.gov")

	// A hostname that merely ends with the allowed domain's characters must
	// not match.
	assert.False(t, urlutil.IsAllowed("https://malicious-ftc.gov/phish", domains))
	assert.False(t, urlutil.IsAllowed("https://notftc.gov/phish", domains))
}

func TestIsAllowed_CaseInsensitiveHost(t *testing.T) {
	domains := allowed("ftc.gov")

	assert.True(t, urlutil.IsAllowed("https://WWW.FTC.GOV/news", domains))
}

func TestIsAllowed_FailsClosed(t *testing.T) {
	domains := allowed("ftc.gov")

	assert.False(t, urlutil.IsAllowed("http://[::1", domains), "unparseable url")
	assert.False(t, urlutil.IsAllowed("not a url at all://", domains))
	assert.False(t, urlutil.IsAllowed("/relative/path", domains), "no host")
	assert.False(t, urlutil.IsAllowed("https://sec.gov/filings", nil), "empty allowlist")
}

func TestHost(t *testing.T) {
	assert.Equal(t, "www.ftc.gov", urlutil.Host("https://WWW.FTC.GOV:443/news"))
	assert.Equal(t, "", urlutil.Host("http://[::1"))
}

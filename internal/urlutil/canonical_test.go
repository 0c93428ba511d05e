package urlutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/regintake/internal/urlutil"
)

func stripSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestCanonicalize_StripsTrackingParams(t *testing.T) {
	strip := stripSet("utm_source", "utm_medium", "utm_campaign")

	got := urlutil.Canonicalize(
		"https://www.ftc.gov/news/press-release?utm_source=rss&id=42&utm_medium=feed",
		strip,
	)

	assert.Equal(t, "https://www.ftc.gov/news/press-release?id=42", got)
}

func TestCanonicalize_SortsQueryParams(t *testing.T) {
	got := urlutil.Canonicalize("https://sec.gov/filings?c=3&a=1&b=2", nil)

	assert.Equal(t, "https://sec.gov/filings?a=1&b=2&c=3", got)
}

func TestCanonicalize_EqualNamesKeepRelativeOrder(t *testing.T) {
	got := urlutil.Canonicalize("https://sec.gov/filings?tag=second&tag=first", nil)

	assert.Equal(t, "https://sec.gov/filings?tag=second&tag=first", got)
}

func TestCanonicalize_ValuelessParamPreserved(t *testing.T) {
	got := urlutil.Canonicalize("https://sec.gov/filings?flag&a=1", nil)

	assert.Equal(t, "https://sec.gov/filings?a=1&flag", got)
}

func TestCanonicalize_TrailingSlash(t *testing.T) {
	assert.Equal(t,
		"https://ftc.gov/news/press-releases",
		urlutil.Canonicalize("https://ftc.gov/news/press-releases/", nil),
	)

	// Bare root path keeps its slash.
	assert.Equal(t,
		"https://ftc.gov/",
		urlutil.Canonicalize("https://ftc.gov/", nil),
	)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	strip := stripSet("utm_source")

	inputs := []string{
		"https://ftc.gov/news/item/?utm_source=rss&z=1&a=2",
		"https://sec.gov/filings?tag=b&tag=a&flag",
		"https://cftc.gov/PressRoom/PressReleases/8954-24",
	}

	for _, in := range inputs {
		once := urlutil.Canonicalize(in, strip)
		twice := urlutil.Canonicalize(once, strip)
		assert.Equal(t, once, twice, "canonicalization must be idempotent for %q", in)
	}
}

func TestCanonicalize_MalformedURLReturnedUnchanged(t *testing.T) {
	malformed := "http://[::1"

	assert.Equal(t, malformed, urlutil.Canonicalize(malformed, nil))
}

func TestCanonicalize_StripMatchIsCaseSensitive(t *testing.T) {
	strip := stripSet("utm_source")

	got := urlutil.Canonicalize("https://ftc.gov/item?UTM_SOURCE=rss", strip)

	assert.Equal(t, "https://ftc.gov/item?UTM_SOURCE=rss", got)
}

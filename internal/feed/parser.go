// Package feed provides tolerant parsing of regulator-published RSS and Atom
// feeds into intake candidates.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Candidate is a single entry extracted from a feed. Candidates are
// ephemeral parser output, consumed immediately by the dedupe/filter
// pipeline and never persisted.
type Candidate struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	PubDate     string   `json:"pub_date,omitempty"`
	GUID        string   `json:"guid,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	// PublishedAt is the feed library's best-effort parse of PubDate. The
	// verbatim PubDate string remains the dedupe input; this field only
	// feeds the stored item's metadata.
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Parse extracts candidates from a feed body. It tolerates the
// malformed-but-recoverable markup regulator feeds are known to emit:
// whitespace and newlines inside element bodies (including between a URL and
// its closing link tag), CDATA-wrapped text, and HTML entities. Entries
// missing a title or link are silently dropped; remaining entries keep
// document order. An empty channel yields a non-nil empty slice.
//
// Link URLs are passed through verbatim after trimming; allowlist checking
// and canonicalization happen downstream.
func Parse(ctx context.Context, body string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	parser := gofeed.NewParser()

	parsed, err := parser.ParseString(body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	candidates := make([]Candidate, 0, len(parsed.Items))

	for _, entry := range parsed.Items {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)

		if title == "" || link == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			Title:       title,
			Link:        link,
			PubDate:     strings.TrimSpace(entry.Published),
			GUID:        strings.TrimSpace(entry.GUID),
			Description: strings.TrimSpace(entry.Description),
			Categories:  trimAll(entry.Categories),
			PublishedAt: entry.PublishedParsed,
		})
	}

	return candidates, nil
}

// trimAll trims whitespace from every category, dropping empties and
// preserving document order.
func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

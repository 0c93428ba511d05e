// Package domain provides domain models used across the application.
package domain

import (
	"time"

	"github.com/lib/pq"
)

// IntakeItem status constants.
const (
	IntakeStatusNew      = "new"
	IntakeStatusReviewed = "reviewed"
	IntakeStatusPromoted = "promoted"
	IntakeStatusRejected = "rejected"
)

// Lifecycle action constants accepted by the transition endpoint.
const (
	IntakeActionReview  = "review"
	IntakeActionPromote = "promote"
	IntakeActionReject  = "reject"
)

// IntakeItem represents a candidate announcement discovered from a feed,
// awaiting review. Items are created exactly once per dedupe key and are
// never deleted.
type IntakeItem struct {
	// Identity. DedupeKey is the content fingerprint of the canonical
	// URL plus effective date and is globally unique.
	DedupeKey string `db:"dedupe_key" json:"dedupe_key"`
	FeedID    string `db:"feed_id"    json:"feed_id"`

	// Discovery
	SourceURL    string         `db:"source_url"    json:"source_url"`
	CanonicalURL string         `db:"canonical_url" json:"canonical_url"`
	Title        string         `db:"title"         json:"title"`
	Description  string         `db:"description"   json:"description,omitempty"`
	Categories   pq.StringArray `db:"categories"    json:"categories,omitempty"`

	// Dates. PublishedAt is best-effort parsed from the feed and may be
	// nil when the feed supplied no usable date.
	PublishedAt  *time.Time `db:"published_at"  json:"published_at,omitempty"`
	DiscoveredAt time.Time  `db:"discovered_at" json:"discovered_at"`

	// Review state
	Status string `db:"status" json:"status"`

	// RawContentRef locates the raw fetched snapshot in the blob store
	// as "bucket/key". Empty when no snapshot was stored.
	RawContentRef string `db:"raw_content_ref" json:"raw_content_ref,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the item's status permits no further transitions.
func (i *IntakeItem) Terminal() bool {
	return i.Status == IntakeStatusPromoted || i.Status == IntakeStatusRejected
}

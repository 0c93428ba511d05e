package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Entity type constants.
const (
	EntityTypeCorporation = "corporation"
	EntityTypeAgency      = "agency"
	EntityTypePerson      = "person"
)

// Entity is a canonical subject of record. No two entities may share the
// same normalized name.
type Entity struct {
	ID             string    `db:"id"              json:"id"`
	Name           string    `db:"name"            json:"name"`
	NormalizedName string    `db:"normalized_name" json:"normalized_name"`
	Type           string    `db:"type"            json:"type"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// NormalizeEntityName lowercases the name and strips every character outside
// [a-z0-9]. Uniqueness is enforced on this form, so "Acme Corp.", "ACME CORP"
// and "Acme  Corp" all collide.
func NormalizeEntityName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Card is a published claim referencing one or more entities and the source
// document it was promoted from.
type Card struct {
	ID        string         `db:"id"         json:"id"`
	Summary   string         `db:"summary"    json:"summary"`
	Tags      pq.StringArray `db:"tags"       json:"tags,omitempty"`
	EntityIDs pq.StringArray `db:"entity_ids" json:"entity_ids"`
	SourceURL string         `db:"source_url" json:"source_url"`
	IntakeKey string         `db:"intake_key" json:"intake_key"`
	CreatedBy string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

package domain

import "time"

// Audit action constants.
const (
	AuditActionReview  = "intake.review"
	AuditActionPromote = "intake.promote"
	AuditActionReject  = "intake.reject"
)

// AuditLogEntry is an append-only record of a state-changing action. Entries
// are never mutated or deleted after creation.
type AuditLogEntry struct {
	ID        string    `db:"id"         json:"id"`
	Action    string    `db:"action"     json:"action"`
	Actor     string    `db:"actor"      json:"actor"`
	Subject   string    `db:"subject"    json:"subject"`
	Metadata  JSONBMap  `db:"metadata"   json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

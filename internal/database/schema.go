package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates the intake record-store tables when absent. The
// statements are idempotent so startup can always run them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS intake_items (
		dedupe_key      CHAR(64) PRIMARY KEY,
		feed_id         TEXT NOT NULL,
		source_url      TEXT NOT NULL,
		canonical_url   TEXT NOT NULL,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		categories      TEXT[] NOT NULL DEFAULT '{}',
		published_at    TIMESTAMPTZ,
		discovered_at   TIMESTAMPTZ NOT NULL,
		status          TEXT NOT NULL DEFAULT 'new',
		raw_content_ref TEXT NOT NULL DEFAULT '',
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_intake_items_status
		ON intake_items (status, discovered_at DESC)`,
	`CREATE TABLE IF NOT EXISTS entities (
		id              UUID PRIMARY KEY,
		name            TEXT NOT NULL,
		normalized_name TEXT NOT NULL UNIQUE,
		type            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id         UUID PRIMARY KEY,
		summary    TEXT NOT NULL,
		tags       TEXT[] NOT NULL DEFAULT '{}',
		entity_ids TEXT[] NOT NULL DEFAULT '{}',
		source_url TEXT NOT NULL,
		intake_key CHAR(64) NOT NULL REFERENCES intake_items (dedupe_key),
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id         UUID PRIMARY KEY,
		action     TEXT NOT NULL,
		actor      TEXT NOT NULL,
		subject    TEXT NOT NULL,
		metadata   JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS promotion_idempotency (
		token      TEXT PRIMARY KEY,
		result     JSONB,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema statements.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

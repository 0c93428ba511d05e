package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/regintake/internal/domain"
)

// AuditLogRepository handles the append-only audit log. Entries are only
// ever inserted; there is no update or delete path.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append inserts an audit log entry.
func (r *AuditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (id, action, actor, subject, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID, entry.Action, entry.Actor, entry.Subject, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit log entry: %w", err)
	}

	return nil
}

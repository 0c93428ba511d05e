package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/regintake/internal/domain"
)

// CardRepository handles database operations for cards.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create inserts a new card.
func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (id, summary, tags, entity_ids, source_url, intake_key, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		card.ID, card.Summary, card.Tags, card.EntityIDs,
		card.SourceURL, card.IntakeKey, card.CreatedBy, card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	return nil
}

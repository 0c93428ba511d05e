package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/regintake/internal/domain"
)

// intakeSelectColumns lists columns for SELECT queries on intake_items.
const intakeSelectColumns = `dedupe_key, feed_id, source_url, canonical_url, title, description,
	categories, published_at, discovered_at, status, raw_content_ref, updated_at`

// defaultListLimit bounds intake item pages when the caller passes no limit.
const defaultListLimit = 50

// maxListLimit caps intake item pages regardless of the caller's limit.
const maxListLimit = 200

// IntakeItemRepository handles database operations for intake items.
type IntakeItemRepository struct {
	db *sqlx.DB
}

// NewIntakeItemRepository creates a new intake item repository.
func NewIntakeItemRepository(db *sqlx.DB) *IntakeItemRepository {
	return &IntakeItemRepository{db: db}
}

// CreateIfAbsent inserts the item only when its dedupe key is unseen.
// Returns false when the key already exists; the existing record is never
// modified. Two concurrent runs discovering the same item each attempt this
// conditional create and exactly one succeeds.
func (r *IntakeItemRepository) CreateIfAbsent(ctx context.Context, item *domain.IntakeItem) (bool, error) {
	query := `
		INSERT INTO intake_items (
			dedupe_key, feed_id, source_url, canonical_url, title, description,
			categories, published_at, discovered_at, status, raw_content_ref, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (dedupe_key) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx, query,
		item.DedupeKey, item.FeedID, item.SourceURL, item.CanonicalURL,
		item.Title, item.Description, item.Categories,
		item.PublishedAt, item.DiscoveredAt, item.Status, item.RawContentRef,
	)
	if err != nil {
		return false, fmt.Errorf("create intake item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create intake item rows affected: %w", err)
	}

	return n > 0, nil
}

// SetRawContentRef records the blob-store locator of the item's raw snapshot.
func (r *IntakeItemRepository) SetRawContentRef(ctx context.Context, dedupeKey, ref string) error {
	query := `
		UPDATE intake_items
		SET raw_content_ref = $2, updated_at = NOW()
		WHERE dedupe_key = $1
	`

	result, err := r.db.ExecContext(ctx, query, dedupeKey, ref)
	return execRequireRows(result, err, &domain.NotFoundError{Kind: "intake item", Key: dedupeKey})
}

// Get returns the intake item with the given dedupe key.
func (r *IntakeItemRepository) Get(ctx context.Context, dedupeKey string) (*domain.IntakeItem, error) {
	query := `SELECT ` + intakeSelectColumns + ` FROM intake_items WHERE dedupe_key = $1`

	var item domain.IntakeItem
	err := r.db.GetContext(ctx, &item, query, dedupeKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "intake item", Key: dedupeKey}
	}
	if err != nil {
		return nil, fmt.Errorf("get intake item: %w", err)
	}

	return &item, nil
}

// UpdateStatus transitions an item conditionally: the row is updated only
// when its current status matches from. Returns false when another
// transition won, leaving the row untouched.
func (r *IntakeItemRepository) UpdateStatus(ctx context.Context, dedupeKey, from, to string) (bool, error) {
	query := `
		UPDATE intake_items
		SET status = $3, updated_at = NOW()
		WHERE dedupe_key = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, dedupeKey, from, to)
	if err != nil {
		return false, fmt.Errorf("update intake item status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update intake item status rows affected: %w", err)
	}

	return n > 0, nil
}

// List returns a page of intake items ordered newest-first, optionally
// filtered by status, with an opaque continuation cursor.
func (r *IntakeItemRepository) List(
	ctx context.Context,
	status string,
	limit int,
	cursor string,
) ([]domain.IntakeItem, string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + intakeSelectColumns + ` FROM intake_items WHERE 1=1`
	args := make([]any, 0, 4)

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if cursor != "" {
		pos, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		args = append(args, pos.DiscoveredAt)
		discoveredArg := len(args)
		args = append(args, pos.DedupeKey)
		query += fmt.Sprintf(
			" AND (discovered_at, dedupe_key) < ($%d, $%d)",
			discoveredArg, len(args),
		)
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY discovered_at DESC, dedupe_key DESC LIMIT $%d", len(args))

	items := make([]domain.IntakeItem, 0, limit)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, "", fmt.Errorf("list intake items: %w", err)
	}

	next := ""
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		next = encodeCursor(cursorPosition{
			DiscoveredAt: last.DiscoveredAt,
			DedupeKey:    last.DedupeKey,
		})
	}

	return items, next, nil
}

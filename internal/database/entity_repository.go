package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/regintake/internal/domain"
	"github.com/lib/pq"
)

// pqUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pqUniqueViolation = "23505"

// entitySelectColumns lists columns for SELECT queries on entities.
const entitySelectColumns = `id, name, normalized_name, type, created_at, updated_at`

// EntityRepository handles database operations for entities.
type EntityRepository struct {
	db *sqlx.DB
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// GetByID returns the entity with the given id.
func (r *EntityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	query := `SELECT ` + entitySelectColumns + ` FROM entities WHERE id = $1`

	var entity domain.Entity
	err := r.db.GetContext(ctx, &entity, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "entity", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}

	return &entity, nil
}

// FindByNormalizedName returns the entity whose normalized name matches
// exactly, or nil when no such entity exists.
func (r *EntityRepository) FindByNormalizedName(ctx context.Context, normalized string) (*domain.Entity, error) {
	query := `SELECT ` + entitySelectColumns + ` FROM entities WHERE normalized_name = $1`

	var entity domain.Entity
	err := r.db.GetContext(ctx, &entity, query, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find entity by normalized name: %w", err)
	}

	return &entity, nil
}

// Create inserts a new entity. The unique index on normalized_name is the
// backstop for the pre-insert conflict check: a violation is surfaced as a
// ConflictError naming the entity that already holds the name.
func (r *EntityRepository) Create(ctx context.Context, entity *domain.Entity) error {
	query := `
		INSERT INTO entities (id, name, normalized_name, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		entity.ID, entity.Name, entity.NormalizedName, entity.Type,
		entity.CreatedAt, entity.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		if existing, findErr := r.FindByNormalizedName(ctx, entity.NormalizedName); findErr == nil && existing != nil {
			return &domain.ConflictError{EntityID: existing.ID, EntityName: existing.Name}
		}
		return &domain.ConflictError{EntityName: entity.Name}
	}

	return fmt.Errorf("create entity: %w", err)
}

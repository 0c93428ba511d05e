package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/regintake/internal/lifecycle"
)

// IdempotencyRepository backs promotion idempotency tokens with a
// conditional-create ledger: reserving a token is an INSERT guarded by the
// primary key, so exactly one of two concurrent promote calls wins.
type IdempotencyRepository struct {
	db *sqlx.DB
}

// NewIdempotencyRepository creates a new idempotency repository.
func NewIdempotencyRepository(db *sqlx.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// idempotencyRow is the storage shape of a token.
type idempotencyRow struct {
	Token     string    `db:"token"`
	Result    []byte    `db:"result"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Reserve attempts to claim the token. On success it returns won=true. When
// the token is already held and carries a completed result, that result is
// returned; a held token with no result means the original request is still
// in flight. Expired reservations are replaced.
func (r *IdempotencyRepository) Reserve(
	ctx context.Context,
	token string,
	expiresAt time.Time,
) (bool, *lifecycle.PromotionResult, error) {
	insert := `
		INSERT INTO promotion_idempotency (token, result, expires_at)
		VALUES ($1, NULL, $2)
		ON CONFLICT (token) DO UPDATE SET
			result = NULL,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
		WHERE promotion_idempotency.expires_at <= NOW()
	`

	result, err := r.db.ExecContext(ctx, insert, token, expiresAt)
	if err != nil {
		return false, nil, fmt.Errorf("reserve idempotency token: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("reserve idempotency token rows affected: %w", err)
	}
	if n > 0 {
		return true, nil, nil
	}

	// Lost the conditional create: return the winner's result if present.
	var row idempotencyRow
	query := `SELECT token, result, expires_at FROM promotion_idempotency WHERE token = $1`

	err = r.db.GetContext(ctx, &row, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		// Row vanished between insert and read (released by the winner
		// after a failure); caller retries as a fresh request.
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("read idempotency token: %w", err)
	}

	if len(row.Result) == 0 {
		return false, nil, nil
	}

	var prior lifecycle.PromotionResult
	if err := json.Unmarshal(row.Result, &prior); err != nil {
		return false, nil, fmt.Errorf("decode idempotency result: %w", err)
	}

	return false, &prior, nil
}

// Complete stores the promotion result on the reserved token.
func (r *IdempotencyRepository) Complete(
	ctx context.Context,
	token string,
	result *lifecycle.PromotionResult,
) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency result: %w", err)
	}

	query := `UPDATE promotion_idempotency SET result = $2 WHERE token = $1`

	res, err := r.db.ExecContext(ctx, query, token, payload)
	return execRequireRows(res, err, errors.New("idempotency token not reserved"))
}

// Release drops a reservation after a failed promotion so a retry with the
// same token is treated as a fresh request.
func (r *IdempotencyRepository) Release(ctx context.Context, token string) error {
	query := `DELETE FROM promotion_idempotency WHERE token = $1 AND result IS NULL`

	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("release idempotency token: %w", err)
	}

	return nil
}

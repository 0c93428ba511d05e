// Package lifecycle governs an intake item from arrival to rejection or
// promotion into the canonical entity/card graph.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/regintake/internal/domain"
	"github.com/jonesrussell/regintake/internal/logger"
)

// ErrPromotionInFlight is returned when a promote request carries an
// idempotency token whose original request is still being processed.
var ErrPromotionInFlight = errors.New("promotion with this idempotency token is in flight")

// IdempotencyWindow is how long a promotion idempotency token collapses
// retried requests onto the original result.
const IdempotencyWindow = 48 * time.Hour

// ItemStore reads and transitions intake items. UpdateStatus must be
// conditional on the expected current status and report whether the row was
// updated, so concurrent transitions cannot both win.
type ItemStore interface {
	Get(ctx context.Context, dedupeKey string) (*domain.IntakeItem, error)
	UpdateStatus(ctx context.Context, dedupeKey, from, to string) (bool, error)
	List(ctx context.Context, status string, limit int, cursor string) ([]domain.IntakeItem, string, error)
}

// EntityStore persists entities. Create must enforce normalized-name
// uniqueness and return a domain.ConflictError on violation.
type EntityStore interface {
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
	FindByNormalizedName(ctx context.Context, normalized string) (*domain.Entity, error)
	Create(ctx context.Context, entity *domain.Entity) error
}

// CardStore persists cards.
type CardStore interface {
	Create(ctx context.Context, card *domain.Card) error
}

// AuditStore appends audit log entries.
type AuditStore interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
}

// IdempotencyStore is the atomic check-and-set ledger for promotion tokens.
// Reserve is a conditional create keyed by token: exactly one concurrent
// caller wins the reservation.
type IdempotencyStore interface {
	Reserve(ctx context.Context, token string, expiresAt time.Time) (bool, *PromotionResult, error)
	Complete(ctx context.Context, token string, result *PromotionResult) error
	Release(ctx context.Context, token string) error
}

// PromotionResult is the durable outcome of a promotion, returned verbatim
// for retried requests carrying the same idempotency token.
type PromotionResult struct {
	ItemKey       string `json:"item_key"`
	EntityID      string `json:"entity_id"`
	CardID        string `json:"card_id"`
	AuditID       string `json:"audit_id"`
	EntityCreated bool   `json:"entity_created"`
}

// Service applies lifecycle transitions to intake items.
type Service struct {
	items       ItemStore
	entities    EntityStore
	cards       CardStore
	audits      AuditStore
	idempotency IdempotencyStore
	log         logger.Interface
	now         func() time.Time
}

// NewService creates a lifecycle service.
func NewService(
	items ItemStore,
	entities EntityStore,
	cards CardStore,
	audits AuditStore,
	idempotency IdempotencyStore,
	log logger.Interface,
) *Service {
	return &Service{
		items:       items,
		entities:    entities,
		cards:       cards,
		audits:      audits,
		idempotency: idempotency,
		log:         log,
		now:         time.Now,
	}
}

// ReviewRequest marks an item as reviewed.
type ReviewRequest struct {
	Actor string `json:"actor"`
}

// RejectRequest terminally rejects an item, recording a reason. It does not
// touch the entity/card graph.
type RejectRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// Review transitions an item from NEW to REVIEWED.
func (s *Service) Review(ctx context.Context, dedupeKey string, req ReviewRequest) (*domain.IntakeItem, error) {
	item, err := s.items.Get(ctx, dedupeKey)
	if err != nil {
		return nil, err
	}

	if item.Status != domain.IntakeStatusNew {
		return nil, &domain.InvalidTransitionError{From: item.Status, Action: domain.IntakeActionReview}
	}

	updated, err := s.items.UpdateStatus(ctx, dedupeKey, domain.IntakeStatusNew, domain.IntakeStatusReviewed)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !updated {
		return nil, s.staleTransition(ctx, dedupeKey, domain.IntakeActionReview)
	}

	if err := s.appendAudit(ctx, domain.AuditActionReview, req.Actor, dedupeKey, nil); err != nil {
		s.revertStatus(ctx, dedupeKey, domain.IntakeStatusReviewed, domain.IntakeStatusNew)
		return nil, err
	}

	item.Status = domain.IntakeStatusReviewed
	return item, nil
}

// Reject transitions an item from NEW or REVIEWED to the terminal REJECTED.
func (s *Service) Reject(ctx context.Context, dedupeKey string, req RejectRequest) (*domain.IntakeItem, error) {
	item, err := s.items.Get(ctx, dedupeKey)
	if err != nil {
		return nil, err
	}

	if item.Terminal() {
		return nil, &domain.InvalidTransitionError{From: item.Status, Action: domain.IntakeActionReject}
	}

	updated, err := s.items.UpdateStatus(ctx, dedupeKey, item.Status, domain.IntakeStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !updated {
		return nil, s.staleTransition(ctx, dedupeKey, domain.IntakeActionReject)
	}

	metadata := domain.JSONBMap{"reason": req.Reason}
	if err := s.appendAudit(ctx, domain.AuditActionReject, req.Actor, dedupeKey, metadata); err != nil {
		s.revertStatus(ctx, dedupeKey, domain.IntakeStatusRejected, item.Status)
		return nil, err
	}

	item.Status = domain.IntakeStatusRejected
	return item, nil
}

// List returns a page of intake items, optionally filtered by status.
func (s *Service) List(
	ctx context.Context,
	status string,
	limit int,
	cursor string,
) ([]domain.IntakeItem, string, error) {
	return s.items.List(ctx, status, limit, cursor)
}

// Get returns a single intake item by dedupe key.
func (s *Service) Get(ctx context.Context, dedupeKey string) (*domain.IntakeItem, error) {
	return s.items.Get(ctx, dedupeKey)
}

// revertStatus undoes a conditional status flip after a later write in the
// same transition failed. Every transition's side effects (entity, card,
// audit) must exist before its status sticks; without the revert a failed
// write would strand the item in a state it never completed.
func (s *Service) revertStatus(ctx context.Context, dedupeKey, from, to string) {
	reverted, err := s.items.UpdateStatus(ctx, dedupeKey, from, to)
	if err != nil || !reverted {
		s.log.Error("status revert failed",
			"dedupe_key", dedupeKey,
			"from", from,
			"to", to,
		)
	}
}

// staleTransition re-reads the item after a lost conditional update so the
// error names the state that actually blocked the action.
func (s *Service) staleTransition(ctx context.Context, dedupeKey, action string) error {
	item, err := s.items.Get(ctx, dedupeKey)
	if err != nil {
		return err
	}
	return &domain.InvalidTransitionError{From: item.Status, Action: action}
}

// appendAudit writes the append-only record for a transition.
func (s *Service) appendAudit(
	ctx context.Context,
	action, actor, subject string,
	metadata domain.JSONBMap,
) error {
	entry := &domain.AuditLogEntry{
		ID:        newID(),
		Action:    action,
		Actor:     actor,
		Subject:   subject,
		Metadata:  metadata,
		CreatedAt: s.now().UTC(),
	}

	if err := s.audits.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonesrussell/regintake/internal/domain"
)

// NewEntityRequest asks promotion to create a fresh entity.
type NewEntityRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PromoteRequest converts a reviewed intake item into a permanent
// entity/card record. Exactly one of EntityID or NewEntity must be set.
type PromoteRequest struct {
	Actor            string            `json:"actor"`
	EntityID         string            `json:"entity_id,omitempty"`
	NewEntity        *NewEntityRequest `json:"new_entity,omitempty"`
	Summary          string            `json:"summary"`
	Tags             []string          `json:"tags,omitempty"`
	IdempotencyToken string            `json:"idempotency_token,omitempty"`
}

// Promote executes the promotion state transition. It is safe under
// at-least-once delivery: a retried call with the same idempotency token
// inside the validity window returns the original result without creating a
// second entity, card, or audit record.
func (s *Service) Promote(ctx context.Context, dedupeKey string, req PromoteRequest) (*PromotionResult, error) {
	if req.IdempotencyToken != "" {
		won, prior, err := s.idempotency.Reserve(
			ctx,
			req.IdempotencyToken,
			s.now().UTC().Add(IdempotencyWindow),
		)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency token: %w", err)
		}

		if !won {
			if prior != nil {
				return prior, nil
			}
			return nil, ErrPromotionInFlight
		}
	}

	result, err := s.promote(ctx, dedupeKey, req)
	if err != nil {
		if req.IdempotencyToken != "" {
			if releaseErr := s.idempotency.Release(ctx, req.IdempotencyToken); releaseErr != nil {
				s.log.Warn("idempotency token release failed",
					"token", req.IdempotencyToken,
					"error", releaseErr.Error(),
				)
			}
		}
		return nil, err
	}

	if req.IdempotencyToken != "" {
		if err := s.idempotency.Complete(ctx, req.IdempotencyToken, result); err != nil {
			return nil, fmt.Errorf("complete idempotency token: %w", err)
		}
	}

	return result, nil
}

// promote performs the promotion writes: conditional status flip as the
// exactly-once gate, then entity, card, and audit.
func (s *Service) promote(ctx context.Context, dedupeKey string, req PromoteRequest) (*PromotionResult, error) {
	item, err := s.items.Get(ctx, dedupeKey)
	if err != nil {
		return nil, err
	}

	if item.Status != domain.IntakeStatusNew && item.Status != domain.IntakeStatusReviewed {
		return nil, &domain.InvalidTransitionError{From: item.Status, Action: domain.IntakeActionPromote}
	}

	entity, entityCreated, err := s.resolveEntity(ctx, req)
	if err != nil {
		return nil, err
	}

	// The conditional flip is the exactly-once gate. Any failure in the
	// writes after it reverts the flip so the item is never stranded
	// terminally PROMOTED without its entity, card, and audit record.
	updated, err := s.items.UpdateStatus(ctx, dedupeKey, item.Status, domain.IntakeStatusPromoted)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !updated {
		return nil, s.staleTransition(ctx, dedupeKey, domain.IntakeActionPromote)
	}

	if entityCreated {
		if err := s.entities.Create(ctx, entity); err != nil {
			// The unique-index backstop fires when a concurrent promote
			// raced past the pre-check with the same normalized name.
			s.revertStatus(ctx, dedupeKey, domain.IntakeStatusPromoted, item.Status)
			return nil, fmt.Errorf("create entity: %w", err)
		}
	}

	card := &domain.Card{
		ID:        newID(),
		Summary:   req.Summary,
		Tags:      req.Tags,
		EntityIDs: []string{entity.ID},
		SourceURL: item.SourceURL,
		IntakeKey: item.DedupeKey,
		CreatedBy: req.Actor,
		CreatedAt: s.now().UTC(),
	}

	if err := s.cards.Create(ctx, card); err != nil {
		s.revertStatus(ctx, dedupeKey, domain.IntakeStatusPromoted, item.Status)
		return nil, fmt.Errorf("create card: %w", err)
	}

	auditID := newID()
	entry := &domain.AuditLogEntry{
		ID:      auditID,
		Action:  domain.AuditActionPromote,
		Actor:   req.Actor,
		Subject: dedupeKey,
		Metadata: domain.JSONBMap{
			"entity_id":      entity.ID,
			"entity_created": entityCreated,
			"card_id":        card.ID,
			"source_url":     item.SourceURL,
		},
		CreatedAt: s.now().UTC(),
	}

	if err := s.audits.Append(ctx, entry); err != nil {
		s.revertStatus(ctx, dedupeKey, domain.IntakeStatusPromoted, item.Status)
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	s.log.Info("intake item promoted",
		"dedupe_key", dedupeKey,
		"entity_id", entity.ID,
		"entity_created", entityCreated,
		"card_id", card.ID,
	)

	return &PromotionResult{
		ItemKey:       dedupeKey,
		EntityID:      entity.ID,
		CardID:        card.ID,
		AuditID:       auditID,
		EntityCreated: entityCreated,
	}, nil
}

// resolveEntity returns the promotion target: either the referenced existing
// entity, or a new entity validated against the normalized-name uniqueness
// invariant. Validation performs no writes; a normalized-name match fails
// with a ConflictError naming the colliding entity, and the caller must pass
// that entity's id explicitly instead.
func (s *Service) resolveEntity(ctx context.Context, req PromoteRequest) (*domain.Entity, bool, error) {
	if req.EntityID != "" {
		entity, err := s.entities.GetByID(ctx, req.EntityID)
		if err != nil {
			return nil, false, err
		}
		return entity, false, nil
	}

	if req.NewEntity == nil {
		return nil, false, fmt.Errorf("promote requires an entity id or a new entity")
	}

	normalized := domain.NormalizeEntityName(req.NewEntity.Name)

	existing, err := s.entities.FindByNormalizedName(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("check entity name: %w", err)
	}
	if existing != nil {
		return nil, false, &domain.ConflictError{EntityID: existing.ID, EntityName: existing.Name}
	}

	now := s.now().UTC()
	entity := &domain.Entity{
		ID:             newID(),
		Name:           req.NewEntity.Name,
		NormalizedName: normalized,
		Type:           req.NewEntity.Type,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	return entity, true, nil
}

// newID mints a record identifier.
func newID() string {
	return uuid.NewString()
}

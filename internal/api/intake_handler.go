package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regintake/internal/domain"
	"github.com/jonesrussell/regintake/internal/intake"
	"github.com/jonesrussell/regintake/internal/lifecycle"
	"github.com/jonesrussell/regintake/internal/logger"
)

// idempotencyHeader carries a promote idempotency token when the request
// body omits one.
const idempotencyHeader = "Idempotency-Key"

// LifecycleService is the slice of the lifecycle service the handler needs.
type LifecycleService interface {
	List(ctx context.Context, status string, limit int, cursor string) ([]domain.IntakeItem, string, error)
	Get(ctx context.Context, dedupeKey string) (*domain.IntakeItem, error)
	Review(ctx context.Context, dedupeKey string, req lifecycle.ReviewRequest) (*domain.IntakeItem, error)
	Reject(ctx context.Context, dedupeKey string, req lifecycle.RejectRequest) (*domain.IntakeItem, error)
	Promote(ctx context.Context, dedupeKey string, req lifecycle.PromoteRequest) (*lifecycle.PromotionResult, error)
}

// RunTrigger starts an ingestion run.
type RunTrigger interface {
	Run(ctx context.Context, feeds []intake.Feed) (*intake.Summary, error)
}

// SnapshotPresigner issues download URLs for stored snapshots.
type SnapshotPresigner interface {
	PresignGet(ctx context.Context, ref string) (string, error)
}

// IntakeHandler handles intake-related HTTP requests.
type IntakeHandler struct {
	service   LifecycleService
	runner    RunTrigger
	snapshots SnapshotPresigner
	feeds     []intake.Feed
	log       logger.Interface
}

// NewIntakeHandler creates a new intake handler serving the configured feeds.
func NewIntakeHandler(
	service LifecycleService,
	runner RunTrigger,
	snapshots SnapshotPresigner,
	feeds []intake.Feed,
	log logger.Interface,
) *IntakeHandler {
	return &IntakeHandler{
		service:   service,
		runner:    runner,
		snapshots: snapshots,
		feeds:     feeds,
		log:       log,
	}
}

// ListItems handles GET /api/v1/intake/items.
func (h *IntakeHandler) ListItems(c *gin.Context) {
	status := c.Query("status")
	cursor := c.Query("cursor")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}

	items, next, err := h.service.List(c.Request.Context(), status, limit, cursor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": next,
	})
}

// GetItem handles GET /api/v1/intake/items/:key.
func (h *IntakeHandler) GetItem(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// GetSnapshotURL handles GET /api/v1/intake/items/:key/snapshot, returning a
// presigned download URL for the item's raw snapshot.
func (h *IntakeHandler) GetSnapshotURL(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if item.RawContentRef == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "item has no stored snapshot"})
		return
	}

	url, err := h.snapshots.PresignGet(c.Request.Context(), item.RawContentRef)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// TransitionRequest is the transition endpoint payload. Fields beyond Action
// and Actor apply only to specific actions.
type TransitionRequest struct {
	Action           string                      `json:"action" binding:"required"`
	Actor            string                      `json:"actor"`
	Reason           string                      `json:"reason,omitempty"`
	EntityID         string                      `json:"entity_id,omitempty"`
	NewEntity        *lifecycle.NewEntityRequest `json:"new_entity,omitempty"`
	Summary          string                      `json:"summary,omitempty"`
	Tags             []string                    `json:"tags,omitempty"`
	IdempotencyToken string                      `json:"idempotency_token,omitempty"`
}

// TransitionItem handles POST /api/v1/intake/items/:key/transition.
func (h *IntakeHandler) TransitionItem(c *gin.Context) {
	key := c.Param("key")

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()

	switch req.Action {
	case domain.IntakeActionReview:
		item, err := h.service.Review(ctx, key, lifecycle.ReviewRequest{Actor: req.Actor})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)

	case domain.IntakeActionReject:
		item, err := h.service.Reject(ctx, key, lifecycle.RejectRequest{Actor: req.Actor, Reason: req.Reason})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)

	case domain.IntakeActionPromote:
		token := req.IdempotencyToken
		if token == "" {
			token = c.GetHeader(idempotencyHeader)
		}

		result, err := h.service.Promote(ctx, key, lifecycle.PromoteRequest{
			Actor:            req.Actor,
			EntityID:         req.EntityID,
			NewEntity:        req.NewEntity,
			Summary:          req.Summary,
			Tags:             req.Tags,
			IdempotencyToken: token,
		})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
	}
}

// TriggerRun handles POST /api/v1/intake/runs.
func (h *IntakeHandler) TriggerRun(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context(), h.feeds)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// writeError maps domain errors onto HTTP status codes.
func (h *IntakeHandler) writeError(c *gin.Context, err error) {
	var (
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		transition *domain.InvalidTransitionError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       err.Error(),
			"entity_id":   conflict.EntityID,
			"entity_name": conflict.EntityName,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrPromotionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/returns/internal/domain/shared"
)

// OutboxStore is the read side of the outbox used by the admin endpoints
type OutboxStore interface {
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// DeadLetterRetrier puts a dead entry back in the relay queue
type DeadLetterRetrier interface {
	RetryDead(ctx context.Context, id uuid.UUID) error
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	store   OutboxStore
	retrier DeadLetterRetrier
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(store OutboxStore, retrier DeadLetterRetrier) *OutboxHandler {
	return &OutboxHandler{store: store, retrier: retrier}
}

// OutboxPageQuery pages the dead letter list
type OutboxPageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxEntryResponse represents an outbox entry in API response
type OutboxEntryResponse struct {
	ID            string     `json:"id"`
	SellerID      string     `json:"seller_id"`
	EventID       string     `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   string     `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxStatsResponse represents outbox statistics response
type OutboxStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// GetDeadLetterEntries handles GET /system/outbox/dead
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var q OutboxPageQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = shared.DefaultPageSize
	}

	entries, total, err := h.store.FindDead(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]OutboxEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toOutboxEntryResponse(e)
	}
	h.SuccessWithMeta(c, out, total, q.Page, q.PageSize)
}

// GetEntry handles GET /system/outbox/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

// RetryDeadEntry handles POST /system/outbox/:id/retry
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.retrier.RetryDead(ctx, id); err != nil {
		h.HandleError(c, err)
		return
	}
	entry, err := h.store.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

// GetStats handles GET /system/outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	counts, err := h.store.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	stats := OutboxStatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	h.Success(c, stats)
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID.String(),
		SellerID:      e.SellerID.String(),
		EventID:       e.EventID.String(),
		EventType:     e.EventType,
		AggregateID:   e.AggregateID.String(),
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

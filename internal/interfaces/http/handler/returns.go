package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	returnsapp "github.com/erp/returns/internal/application/returns"
	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
)

// ReturnService is the application surface the returns endpoints call
type ReturnService interface {
	CreateCustomerReturn(ctx context.Context, sellerID uuid.UUID, req returnsapp.CreateCustomerReturnRequest) (*returnsapp.ReturnResponse, error)
	CreateDeliveryReturn(ctx context.Context, sellerID uuid.UUID, req returnsapp.CreateDeliveryReturnRequest) (*returnsapp.ReturnResponse, error)
	CreateSupplierReturn(ctx context.Context, sellerID uuid.UUID, req returnsapp.CreateSupplierReturnRequest) (*returnsapp.ReturnResponse, error)
	InspectItem(ctx context.Context, sellerID, returnID uuid.UUID, req returnsapp.InspectItemRequest) (*returnsapp.ReturnResponse, error)
	CompleteInspection(ctx context.Context, sellerID, returnID uuid.UUID, req returnsapp.CompleteInspectionRequest) (*returnsapp.ReturnResponse, error)
	Complete(ctx context.Context, sellerID, returnID, actorID uuid.UUID) (*returnsapp.CompletionResponse, error)
	ApproveSupplierReturn(ctx context.Context, sellerID, returnID, actorID uuid.UUID, response string) (*returnsapp.CompletionResponse, error)
	RejectSupplierReturn(ctx context.Context, sellerID, returnID, actorID uuid.UUID, response string) (*returnsapp.ReturnResponse, error)
	Cancel(ctx context.Context, sellerID, returnID uuid.UUID, reason string) (*returnsapp.ReturnResponse, error)

	GetByID(ctx context.Context, sellerID, returnID uuid.UUID) (*returnsapp.ReturnResponse, error)
	GetByDocumentNumber(ctx context.Context, sellerID uuid.UUID, number string) (*returnsapp.ReturnResponse, error)
	ListByOrder(ctx context.Context, sellerID, orderID uuid.UUID) ([]returnsapp.ReturnResponse, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) (*shared.Paginated[returnsapp.ReturnResponse], error)
	ListByLocation(ctx context.Context, sellerID uuid.UUID, locationType returns.LocationType, locationID uuid.UUID, filter returns.ReturnFilter) (*shared.Paginated[returnsapp.ReturnResponse], error)
	ListPendingInspectionItems(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returnsapp.PendingItemResponse, error)
	StatisticsByType(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.TypeStatistics, error)
	StatisticsByDecision(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.DecisionStatistics, error)
}

var _ ReturnService = (*returnsapp.Service)(nil)

// ReturnHandler handles the /returns endpoints
type ReturnHandler struct {
	BaseHandler
	service ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(service ReturnService) *ReturnHandler {
	return &ReturnHandler{service: service}
}

// CreateCustomerReturn handles POST /returns/customer
func (h *ReturnHandler) CreateCustomerReturn(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var body CreateCustomerReturnBody
	if !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.CreateCustomerReturn(c.Request.Context(), sellerID, body.toRequest(actor))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreateDeliveryReturn handles POST /returns/delivery
func (h *ReturnHandler) CreateDeliveryReturn(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var body CreateDeliveryReturnBody
	if !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.CreateDeliveryReturn(c.Request.Context(), sellerID, body.toRequest(actor))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreateSupplierReturn handles POST /returns/supplier
func (h *ReturnHandler) CreateSupplierReturn(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var body CreateSupplierReturnBody
	if !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.CreateSupplierReturn(c.Request.Context(), sellerID, body.toRequest(actor))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /returns
func (h *ReturnHandler) List(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	page, err := h.service.ListBySeller(c.Request.Context(), sellerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListByLocation handles GET /returns/locations/:location_type/:location_id
func (h *ReturnHandler) ListByLocation(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	locationType := returns.LocationType(c.Param("location_type"))
	if !locationType.IsValid() {
		h.BadRequest(c, "Invalid location_type")
		return
	}
	locationID, ok := h.uuidParam(c, "location_id")
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	page, err := h.service.ListByLocation(c.Request.Context(), sellerID, locationType, locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListPendingItems handles GET /returns/pending-items
func (h *ReturnHandler) ListPendingItems(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	items, err := h.service.ListPendingInspectionItems(c.Request.Context(), sellerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Statistics handles GET /returns/statistics
func (h *ReturnHandler) Statistics(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	var q StatisticsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.toFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	if q.GroupBy == "decision" {
		stats, err := h.service.StatisticsByDecision(ctx, sellerID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, stats)
		return
	}
	stats, err := h.service.StatisticsByType(ctx, sellerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetByNumber handles GET /returns/by-number/:number
func (h *ReturnHandler) GetByNumber(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	resp, err := h.service.GetByDocumentNumber(c.Request.Context(), sellerID, c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByOrder handles GET /returns/by-order/:order_id
func (h *ReturnHandler) ListByOrder(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "order_id")
	if !ok {
		return
	}
	list, err := h.service.ListByOrder(c.Request.Context(), sellerID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Get handles GET /returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), sellerID, returnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// InspectItem handles POST /returns/:id/items/:index/inspect
func (h *ReturnHandler) InspectItem(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		h.BadRequest(c, "Invalid item index")
		return
	}
	var body InspectItemBody
	if !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.InspectItem(c.Request.Context(), sellerID, returnID, body.toRequest(index))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteInspection handles POST /returns/:id/inspection/complete
func (h *ReturnHandler) CompleteInspection(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	inspector, ok := h.actorID(c)
	if !ok {
		return
	}
	var body CompleteInspectionBody
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.CompleteInspection(c.Request.Context(), sellerID, returnID, body.toRequest(inspector))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Complete handles POST /returns/:id/complete
func (h *ReturnHandler) Complete(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}

	resp, err := h.service.Complete(c.Request.Context(), sellerID, returnID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApproveSupplier handles POST /returns/:id/supplier/approve
func (h *ReturnHandler) ApproveSupplier(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var body SupplierResponseBody
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.ApproveSupplierReturn(c.Request.Context(), sellerID, returnID, actor, body.Response)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RejectSupplier handles POST /returns/:id/supplier/reject
func (h *ReturnHandler) RejectSupplier(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var body SupplierResponseBody
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.RejectSupplierReturn(c.Request.Context(), sellerID, returnID, actor, body.Response)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /returns/:id/cancel
func (h *ReturnHandler) Cancel(c *gin.Context) {
	sellerID, returnID, ok := h.target(c)
	if !ok {
		return
	}
	var body CancelReturnBody
	if !h.BindJSON(c, &body) {
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), sellerID, returnID, body.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// target resolves the seller and the :id path parameter
func (h *ReturnHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	returnID, ok := h.uuidParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return sellerID, returnID, true
}

func (h *ReturnHandler) listFilter(c *gin.Context) (returns.ReturnFilter, bool) {
	var q ListReturnsQuery
	if !h.BindQuery(c, &q) {
		return returns.ReturnFilter{}, false
	}
	filter, err := q.toFilter()
	if err != nil {
		h.HandleError(c, err)
		return returns.ReturnFilter{}, false
	}
	return filter, true
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecompm_backend/internal/materials/domain"
	"telecompm_backend/internal/materials/repository"
	"telecompm_backend/internal/materials/service"
	"telecompm_backend/internal/materials/transport"
	"telecompm_backend/platform/httpkit"
	"telecompm_backend/platform/validator"
)

// Handler handles HTTP requests for materials.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid material id"
)

// New creates a new materials handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers a new material.
// POST /api/v1/admin/materials
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	initial, err := domain.NewQuantity(req.InitialStock, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}
	minimum, err := domain.NewQuantity(req.MinimumStock, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}

	m, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		OfficeID:      req.OfficeID,
		InitialStock:  initial,
		MinimumStock:  minimum,
		UnitCostCents: req.UnitCostCents,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromMaterial(m))
}

// List lists materials with filters.
// GET /api/v1/materials
func (h *Handler) List(c *gin.Context) {
	var req transport.ListMaterialsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	params := repository.ListParams{
		Search:    req.Search,
		Category:  req.Category,
		LowStock:  req.LowStock,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if req.OfficeID != "" {
		officeID, err := uuid.Parse(req.OfficeID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid office id", nil)
			return
		}
		params.OfficeID = &officeID
	}

	items, total, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.MaterialListResponse{
		Items:      make([]transport.MaterialResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.FromMaterial(&items[i]))
	}
	httpkit.OK(c, resp)
}

// Get retrieves a material by id.
// GET /api/v1/materials/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	m, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromMaterial(m))
}

// Availability returns stock minus unconsumed reservations.
// GET /api/v1/materials/:id/availability
func (h *Handler) Availability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	available, err := h.svc.AvailableToReserve(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.QuantityResponse{Value: available.Value, Unit: available.Unit})
}

// Reserve places a soft hold for a visit.
// POST /api/v1/materials/:id/reserve
func (h *Handler) Reserve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	quantity, err := domain.NewQuantity(req.Quantity, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}

	res, err := h.svc.Reserve(c.Request.Context(), id, req.VisitID, quantity)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromReservation(res))
}

// Consume converts a reservation into a stock deduction and usage record.
// POST /api/v1/materials/:id/consume
func (h *Handler) Consume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	usage, err := h.svc.Consume(c.Request.Context(), id, req.VisitID, identity.Name())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromUsage(*usage))
}

// Release frees an open reservation. Idempotent.
// POST /api/v1/materials/:id/release
func (h *Handler) Release(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.Release(c.Request.Context(), id, req.VisitID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AddStock increases stock.
// POST /api/v1/materials/:id/stock/add
func (h *Handler) AddStock(c *gin.Context) {
	h.stockChange(c, h.svc.AddStock)
}

// DeductStock decreases stock outside the reservation protocol.
// POST /api/v1/materials/:id/stock/deduct
func (h *Handler) DeductStock(c *gin.Context) {
	h.stockChange(c, h.svc.DeductStock)
}

// AdjustStock overwrites the stock level with a mandatory reason.
// POST /api/v1/admin/materials/:id/stock/adjust
func (h *Handler) AdjustStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	quantity, err := domain.NewQuantity(req.NewQuantity, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}

	m, err := h.svc.AdjustStock(c.Request.Context(), id, quantity, req.Reason, identity.Name())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromMaterial(m))
}

// Deactivate retires a material from new reservations.
// DELETE /api/v1/admin/materials/:id
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// LowStock lists an office's materials at or below minimum threshold.
// GET /api/v1/materials/low-stock/:officeId
func (h *Handler) LowStock(c *gin.Context) {
	officeID, err := uuid.Parse(c.Param("officeId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid office id", nil)
		return
	}

	items, err := h.svc.FindLowStock(c.Request.Context(), officeID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.MaterialResponse, 0, len(items))
	for i := range items {
		resp = append(resp, transport.FromMaterial(&items[i]))
	}
	httpkit.OK(c, resp)
}

// VisitUsage lists the consumption line items recorded for a visit.
// GET /api/v1/materials/usage/:visitId
func (h *Handler) VisitUsage(c *gin.Context) {
	visitID, err := uuid.Parse(c.Param("visitId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid visit id", nil)
		return
	}

	usages, err := h.svc.ListUsageByVisit(c.Request.Context(), visitID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.UsageResponse, 0, len(usages))
	for _, u := range usages {
		resp = append(resp, transport.FromUsage(u))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) stockChange(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, q domain.Quantity, by string) (*domain.Material, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	quantity, err := domain.NewQuantity(req.Quantity, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}

	m, err := apply(c.Request.Context(), id, quantity, identity.Name())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromMaterial(m))
}

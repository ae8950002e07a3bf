package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecompm_backend/internal/sites/domain"
	"telecompm_backend/internal/sites/repository"
	"telecompm_backend/internal/sites/service"
	"telecompm_backend/internal/sites/transport"
	"telecompm_backend/platform/httpkit"
	"telecompm_backend/platform/validator"
)

// Handler handles HTTP requests for sites.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid site id"
)

// New creates a new sites handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers a new site.
// POST /api/v1/admin/sites
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	site, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		Code:         req.Code,
		Name:         req.Name,
		Region:       req.Region,
		OfficeID:     req.OfficeID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Power:        powerFromDTO(req.Power),
		Transmission: transmissionFromDTO(req.Transmission),
		Sharing:      req.Sharing,
		TenantCount:  req.TenantCount,
		Complexity:   domain.Complexity(req.Complexity),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromSite(site))
}

// List lists sites with filters.
// GET /api/v1/sites
func (h *Handler) List(c *gin.Context) {
	var req transport.ListSitesRequest
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
		Search:     req.Search,
		Region:     req.Region,
		Complexity: domain.Complexity(req.Complexity),
		ActiveOnly: req.ActiveOnly,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
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

	resp := transport.SiteListResponse{
		Items:      make([]transport.SiteResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.FromSite(&items[i]))
	}
	httpkit.OK(c, resp)
}

// Get retrieves a site by id.
// GET /api/v1/sites/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	site, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromSite(site))
}

// GetByCode retrieves a site by its code, the lookup behind the QR label.
// GET /api/v1/sites/code/:code
func (h *Handler) GetByCode(c *gin.Context) {
	site, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromSite(site))
}

// Signage renders the site's QR label as a PNG.
// GET /api/v1/sites/:id/signage
func (h *Handler) Signage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	png, code, err := h.svc.SignageQR(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s-signage.png", code))
	c.Data(http.StatusOK, "image/png", png)
}

// UpdateEquipment replaces the site's equipment configuration.
// PUT /api/v1/admin/sites/:id/equipment
func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	site, err := h.svc.UpdateEquipment(c.Request.Context(), id,
		powerFromDTO(req.Power), transmissionFromDTO(req.Transmission),
		req.Sharing, req.TenantCount, domain.Complexity(req.Complexity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromSite(site))
}

// Deactivate retires a site.
// DELETE /api/v1/admin/sites/:id
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

func powerFromDTO(dto transport.PowerConfigDTO) domain.PowerConfig {
	return domain.PowerConfig{
		HasRectifier: dto.HasRectifier,
		HasBatteries: dto.HasBatteries,
		HasGenerator: dto.HasGenerator,
		HasSolar:     dto.HasSolar,
	}
}

func transmissionFromDTO(dto transport.TransmissionConfigDTO) domain.TransmissionConfig {
	return domain.TransmissionConfig{
		HasMicrowave: dto.HasMicrowave,
		HasFiber:     dto.HasFiber,
	}
}

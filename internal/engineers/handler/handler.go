package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecompm_backend/internal/engineers/repository"
	"telecompm_backend/internal/engineers/service"
	"telecompm_backend/internal/engineers/transport"
	"telecompm_backend/platform/httpkit"
	"telecompm_backend/platform/validator"
)

// Handler handles HTTP requests for engineer accounts.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid engineer id"
)

// New creates a new engineers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers an engineer account.
// POST /api/v1/admin/engineers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	e, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
		OfficeID: req.OfficeID,
		MaxSites: req.MaxSites,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromEngineer(e))
}

// List lists engineer accounts.
// GET /api/v1/engineers
func (h *Handler) List(c *gin.Context) {
	var req transport.ListEngineersRequest
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
		Role:       req.Role,
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

	resp := transport.EngineerListResponse{
		Items:      make([]transport.EngineerResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.FromEngineer(&items[i]))
	}
	httpkit.OK(c, resp)
}

// Get retrieves an engineer with assignments.
// GET /api/v1/engineers/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	e, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEngineer(e))
}

// RankForSite orders eligible engineers for a site, best first.
// GET /api/v1/engineers/rank/:siteId
func (h *Handler) RankForSite(c *gin.Context) {
	siteID, err := uuid.Parse(c.Param("siteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid site id", nil)
		return
	}

	ranked, err := h.svc.RankForSite(c.Request.Context(), siteID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.RankedEngineerResponse, 0, len(ranked))
	for _, r := range ranked {
		resp = append(resp, transport.FromRanked(r))
	}
	httpkit.OK(c, resp)
}

// AssignSite assigns a site to an engineer.
// POST /api/v1/engineers/:id/sites
func (h *Handler) AssignSite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.AssignSiteRequest
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

	e, err := h.svc.AssignSite(c.Request.Context(), id, req.SiteID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEngineer(e))
}

// UnassignSite removes a site assignment.
// DELETE /api/v1/engineers/:id/sites/:siteId
func (h *Handler) UnassignSite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	siteID, err := uuid.Parse(c.Param("siteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid site id", nil)
		return
	}

	e, err := h.svc.UnassignSite(c.Request.Context(), id, siteID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEngineer(e))
}

// UpdateProfile replaces capacity and specializations.
// PUT /api/v1/engineers/:id/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	e, err := h.svc.UpdateProfile(c.Request.Context(), id, req.MaxSites, req.Specializations)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEngineer(e))
}

// SetRating records a performance review score.
// PUT /api/v1/engineers/:id/rating
func (h *Handler) SetRating(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.SetRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	e, err := h.svc.SetRating(c.Request.Context(), id, req.Rating)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEngineer(e))
}

// Deactivate disables an account.
// DELETE /api/v1/admin/engineers/:id
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

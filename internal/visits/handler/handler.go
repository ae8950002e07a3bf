package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecompm_backend/internal/adapters/storage"
	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/internal/visits/repository"
	"telecompm_backend/internal/visits/service"
	"telecompm_backend/internal/visits/transport"
	"telecompm_backend/platform/httpkit"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"
)

// Handler handles HTTP requests for visits.
type Handler struct {
	svc   *service.Service
	store storage.PhotoStore
	val   *validator.Validator
	log   *logger.Logger
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid visit id"
)

// New creates a new visits handler.
func New(svc *service.Service, store storage.PhotoStore, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, store: store, val: val, log: log}
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Actor{}, false
	}
	return service.Actor{
		ID:   identity.UserID(),
		Name: identity.Name(),
		Role: identity.Role(),
	}, true
}

func visitID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create schedules a visit.
// POST /api/v1/visits
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	v, err := h.svc.Create(c.Request.Context(), req.SiteID, req.EngineerID,
		domain.VisitType(req.Type), req.ScheduledAt)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromVisit(v))
}

// List lists visits with filters.
// GET /api/v1/visits
func (h *Handler) List(c *gin.Context) {
	var req transport.ListVisitsRequest
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
		Status:    domain.Status(req.Status),
		SortOrder: req.SortOrder,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if req.SiteID != "" {
		siteID, err := uuid.Parse(req.SiteID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid site id", nil)
			return
		}
		params.SiteID = &siteID
	}
	if req.EngineerID != "" {
		engineerID, err := uuid.Parse(req.EngineerID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid engineer id", nil)
			return
		}
		params.EngineerID = &engineerID
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from timestamp", nil)
			return
		}
		params.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to timestamp", nil)
			return
		}
		params.To = &to
	}

	items, total, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.VisitListResponse{
		Items:      make([]transport.VisitResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.FromVisit(&items[i]))
	}
	httpkit.OK(c, resp)
}

// Get retrieves the full visit aggregate.
// GET /api/v1/visits/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}

	v, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// Start begins on-site work.
// POST /api/v1/visits/:id/start
func (h *Handler) Start(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.StartVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.Start(c.Request.Context(), id, actor, req.Location)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// Complete ends on-site work.
// POST /api/v1/visits/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.Complete(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// AddPhoto attaches photo evidence metadata.
// POST /api/v1/visits/:id/photos
func (h *Handler) AddPhoto(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	photo, err := h.svc.AddPhoto(c.Request.Context(), id, actor, service.PhotoParams{
		Category:   req.Category,
		Phase:      domain.PhotoPhase(req.Phase),
		Width:      req.Width,
		Height:     req.Height,
		StorageKey: req.StorageKey,
		CapturedAt: req.CapturedAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromPhoto(photo))
}

// AddReading records a sensor measurement.
// POST /api/v1/visits/:id/readings
func (h *Handler) AddReading(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.AddReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	reading, err := h.svc.AddReading(c.Request.Context(), id, actor, req.Category, req.Value, req.Unit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromReading(reading))
}

// AddChecklistItem appends a pending task.
// POST /api/v1/visits/:id/checklist
func (h *Handler) AddChecklistItem(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.AddChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	item, err := h.svc.AddChecklistItem(c.Request.Context(), id, actor, req.Description)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromChecklistItem(item))
}

// ResolveChecklistItem moves a checklist item to a terminal status.
// PUT /api/v1/visits/:id/checklist/:itemId
func (h *Handler) ResolveChecklistItem(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid checklist item id", nil)
		return
	}
	var req transport.ResolveChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.svc.ResolveChecklistItem(c.Request.Context(), id, itemID, actor,
		domain.ChecklistStatus(req.Status), req.Notes); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AddIssue records a problem found on site.
// POST /api/v1/visits/:id/issues
func (h *Handler) AddIssue(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.AddIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	issue, err := h.svc.AddIssue(c.Request.Context(), id, actor, req.Description, req.Severity)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromIssue(issue))
}

// Validate dry-runs the completion validator.
// GET /api/v1/visits/:id/validate
func (h *Handler) Validate(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}

	result, err := h.svc.Validate(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromValidation(result))
}

// Submit validates and hands the visit to review.
// POST /api/v1/visits/:id/submit
func (h *Handler) Submit(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, result, err := h.svc.Submit(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SubmitResponse{
		Visit:      transport.FromVisit(v),
		Validation: transport.FromValidation(result),
	})
}

// StartReview claims a submitted visit for the reviewer.
// POST /api/v1/visits/:id/review/start
func (h *Handler) StartReview(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.StartReview(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// Approve accepts the visit's work.
// POST /api/v1/visits/:id/review/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.Approve(c.Request.Context(), id, actor, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// Reject declines the visit's work. A reason is mandatory.
// POST /api/v1/visits/:id/review/reject
func (h *Handler) Reject(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.Reject(c.Request.Context(), id, actor, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

// RequestCorrection sends the visit back to the engineer.
// POST /api/v1/visits/:id/review/request-correction
func (h *Handler) RequestCorrection(c *gin.Context) {
	id, ok := visitID(c)
	if !ok {
		return
	}
	var req transport.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	v, err := h.svc.RequestCorrection(c.Request.Context(), id, actor, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromVisit(v))
}

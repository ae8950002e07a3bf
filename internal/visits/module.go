// Package visits provides the visit lifecycle bounded context module:
// scheduling, evidence capture, completion validation, and review.
package visits

import (
	"telecompm_backend/internal/adapters/storage"
	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/internal/visits/handler"
	"telecompm_backend/internal/visits/repository"
	"telecompm_backend/internal/visits/service"

	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/platform/events"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the visits bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the visits module. The sites and
// materials ports are satisfied by the respective module services.
func NewModule(pool *pgxpool.Pool, locks lock.KeyedLocker, sites service.SiteDirectory,
	materials service.MaterialProtocol, store storage.PhotoStore, bus events.Bus,
	policy domain.Policy, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, service.NewPoolTxRunner(pool), locks, sites, materials, bus, policy, log)
	h := handler.New(svc, store, val, log)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "visits"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts visit routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Lifecycle and evidence endpoints for authenticated field staff
	ctx.Protected.GET("/visits", m.handler.List)
	ctx.Protected.GET("/visits/:id", m.handler.Get)
	ctx.Protected.GET("/visits/:id/validate", m.handler.Validate)
	ctx.Protected.POST("/visits/:id/start", m.handler.Start)
	ctx.Protected.POST("/visits/:id/complete", m.handler.Complete)
	ctx.Protected.POST("/visits/:id/submit", m.handler.Submit)
	ctx.Protected.POST("/visits/:id/photos", m.handler.AddPhoto)
	ctx.Protected.POST("/visits/:id/photos/upload", m.handler.UploadPhoto)
	ctx.Protected.POST("/visits/:id/photos/presign", m.handler.PresignPhotoUpload)
	ctx.Protected.GET("/visits/:id/photos/:photoId/url", m.handler.PhotoURL)
	ctx.Protected.POST("/visits/:id/readings", m.handler.AddReading)
	ctx.Protected.POST("/visits/:id/checklist", m.handler.AddChecklistItem)
	ctx.Protected.PUT("/visits/:id/checklist/:itemId", m.handler.ResolveChecklistItem)
	ctx.Protected.POST("/visits/:id/issues", m.handler.AddIssue)

	// Scheduling and review require reviewer privileges
	ctx.Reviewer.POST("/visits", m.handler.Create)
	ctx.Reviewer.POST("/visits/:id/review/start", m.handler.StartReview)
	ctx.Reviewer.POST("/visits/:id/review/approve", m.handler.Approve)
	ctx.Reviewer.POST("/visits/:id/review/reject", m.handler.Reject)
	ctx.Reviewer.POST("/visits/:id/review/request-correction", m.handler.RequestCorrection)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

// Package engineers provides the engineer account bounded context module,
// including the site assignment ranking service.
package engineers

import (
	"telecompm_backend/internal/engineers/handler"
	"telecompm_backend/internal/engineers/repository"
	"telecompm_backend/internal/engineers/service"

	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/platform/events"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the engineers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the engineers module.
func NewModule(pool *pgxpool.Pool, sites service.SiteCatalog, bus events.Bus,
	val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, sites, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "engineers"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts engineer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/engineers", m.handler.List)
	ctx.Protected.GET("/engineers/:id", m.handler.Get)

	// Assignment and review operations are reviewer territory
	ctx.Reviewer.GET("/engineers/rank/:siteId", m.handler.RankForSite)
	ctx.Reviewer.POST("/engineers/:id/sites", m.handler.AssignSite)
	ctx.Reviewer.DELETE("/engineers/:id/sites/:siteId", m.handler.UnassignSite)
	ctx.Reviewer.PUT("/engineers/:id/profile", m.handler.UpdateProfile)
	ctx.Reviewer.PUT("/engineers/:id/rating", m.handler.SetRating)

	adminGroup := ctx.Admin.Group("/engineers")
	adminGroup.POST("", m.handler.Create)
	adminGroup.DELETE("/:id", m.handler.Deactivate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

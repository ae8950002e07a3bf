// Package sites provides the site catalog bounded context module. The site's
// equipment configuration drives visit evidence requirements and engineer
// ranking traits.
package sites

import (
	"telecompm_backend/internal/sites/handler"
	"telecompm_backend/internal/sites/repository"
	"telecompm_backend/internal/sites/service"

	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the sites bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the sites module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sites"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts site routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/sites", m.handler.List)
	ctx.Protected.GET("/sites/:id", m.handler.Get)
	ctx.Protected.GET("/sites/:id/signage", m.handler.Signage)
	ctx.Protected.GET("/sites/code/:code", m.handler.GetByCode)

	adminGroup := ctx.Admin.Group("/sites")
	adminGroup.POST("", m.handler.Create)
	adminGroup.PUT("/:id/equipment", m.handler.UpdateEquipment)
	adminGroup.DELETE("/:id", m.handler.Deactivate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

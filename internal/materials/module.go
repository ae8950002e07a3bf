// Package materials provides the material stock bounded context module:
// the stock ledger and the reserve/consume/release reservation protocol.
package materials

import (
	"telecompm_backend/internal/materials/handler"
	"telecompm_backend/internal/materials/repository"
	"telecompm_backend/internal/materials/service"

	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/platform/events"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the materials bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the materials module.
func NewModule(pool *pgxpool.Pool, locks lock.KeyedLocker, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, service.NewPoolTxRunner(pool), locks, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "materials"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts material routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Read and protocol endpoints for authenticated field staff
	ctx.Protected.GET("/materials", m.handler.List)
	ctx.Protected.GET("/materials/:id", m.handler.Get)
	ctx.Protected.GET("/materials/:id/availability", m.handler.Availability)
	ctx.Protected.GET("/materials/low-stock/:officeId", m.handler.LowStock)
	ctx.Protected.GET("/materials/usage/:visitId", m.handler.VisitUsage)
	ctx.Protected.POST("/materials/:id/reserve", m.handler.Reserve)
	ctx.Protected.POST("/materials/:id/consume", m.handler.Consume)
	ctx.Protected.POST("/materials/:id/release", m.handler.Release)

	// Stock movements require reviewer privileges
	ctx.Reviewer.POST("/materials/:id/stock/add", m.handler.AddStock)
	ctx.Reviewer.POST("/materials/:id/stock/deduct", m.handler.DeductStock)

	// Admin-only catalog management
	adminGroup := ctx.Admin.Group("/materials")
	adminGroup.POST("", m.handler.Create)
	adminGroup.POST("/:id/stock/adjust", m.handler.AdjustStock)
	adminGroup.DELETE("/:id", m.handler.Deactivate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

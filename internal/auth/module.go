// Package auth provides the authentication module: login and identity
// introspection against engineer accounts.
package auth

import (
	"telecompm_backend/internal/auth/handler"
	"telecompm_backend/internal/auth/service"
	engservice "telecompm_backend/internal/engineers/service"

	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"
)

// Module is the auth module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module.
func NewModule(engineers *engservice.Service, cfg config.AuthServiceConfig,
	val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(engineers, cfg, log)
	h := handler.New(svc, engineers, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/auth/login", m.handler.Login)
	ctx.Protected.GET("/auth/me", m.handler.Me)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

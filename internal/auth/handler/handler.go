package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telecompm_backend/internal/auth/service"
	"telecompm_backend/internal/auth/transport"
	engservice "telecompm_backend/internal/engineers/service"
	engtransport "telecompm_backend/internal/engineers/transport"
	"telecompm_backend/platform/httpkit"
	"telecompm_backend/platform/validator"
)

// Handler handles authentication requests.
type Handler struct {
	svc       *service.Service
	engineers *engservice.Service
	val       *validator.Validator
}

// New creates a new auth handler.
func New(svc *service.Service, engineers *engservice.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, engineers: engineers, val: val}
}

// Login exchanges credentials for an access token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	token, engineer, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.svc.TokenTTL().Seconds()),
		User:        engtransport.FromEngineer(engineer),
	})
}

// Me returns the authenticated account.
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	engineer, err := h.engineers.Get(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, engtransport.FromEngineer(engineer))
}

package transport

import engtransport "telecompm_backend/internal/engineers/transport"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string                        `json:"accessToken"`
	ExpiresIn   int64                         `json:"expiresIn"`
	User        engtransport.EngineerResponse `json:"user"`
}

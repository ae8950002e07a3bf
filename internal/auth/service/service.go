// Package service issues access tokens for engineer accounts. Credential
// verification lives in the engineers context; this service only signs the
// claims the HTTP middleware later validates.
package service

import (
	"context"
	"fmt"
	"time"

	"telecompm_backend/internal/engineers/domain"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
)

// UserVerifier is the credential check port into the engineers context.
type UserVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (*domain.Engineer, error)
}

// Service provides login token issuing.
type Service struct {
	users UserVerifier
	cfg   config.AuthServiceConfig
	log   *logger.Logger
}

// New creates a new auth service.
func New(users UserVerifier, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{users: users, cfg: cfg, log: log}
}

// Login verifies credentials and returns a signed access token plus the
// account it belongs to.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.Engineer, error) {
	engineer, err := s.users.VerifyPassword(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  engineer.ID.String(),
		"role": engineer.Role,
		"name": engineer.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}

	s.log.Info("login", "email", engineer.Email, "role", engineer.Role)
	return signed, engineer, nil
}

// TokenTTL exposes the access token lifetime for the response payload.
func (s *Service) TokenTTL() time.Duration {
	return s.cfg.GetAccessTokenTTL()
}

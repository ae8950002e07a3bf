package adapters

import (
	"context"

	engsvc "telecompm_backend/internal/engineers/service"

	"github.com/google/uuid"
)

// EngineerDirectoryAdapter resolves engineer contact details for the
// notification module.
type EngineerDirectoryAdapter struct {
	engineers *engsvc.Service
}

func NewEngineerDirectoryAdapter(engineers *engsvc.Service) *EngineerDirectoryAdapter {
	return &EngineerDirectoryAdapter{engineers: engineers}
}

func (a *EngineerDirectoryAdapter) ContactInfo(ctx context.Context, engineerID uuid.UUID) (string, string, error) {
	engineer, err := a.engineers.Get(ctx, engineerID)
	if err != nil {
		return "", "", err
	}
	return engineer.Name, engineer.Email, nil
}

package repository

import (
	"context"

	"telecompm_backend/internal/sites/domain"

	"github.com/google/uuid"
)

// ListParams filters and paginates site listings.
type ListParams struct {
	Search     string
	Region     string
	OfficeID   *uuid.UUID
	Complexity domain.Complexity
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository is the persistence port for sites.
type Repository interface {
	Create(ctx context.Context, s *domain.Site) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Site, error)
	GetByCode(ctx context.Context, code string) (*domain.Site, error)
	List(ctx context.Context, params ListParams) ([]domain.Site, int, error)
	Save(ctx context.Context, s *domain.Site) error
}

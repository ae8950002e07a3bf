package repository

import (
	"context"

	"telecompm_backend/internal/engineers/domain"

	"github.com/google/uuid"
)

// ListParams filters and paginates engineer listings.
type ListParams struct {
	Search     string
	Role       string
	OfficeID   *uuid.UUID
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository is the persistence port for engineer accounts.
type Repository interface {
	Create(ctx context.Context, e *domain.Engineer) error

	// GetByID loads the engineer including assigned site ids.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Engineer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Engineer, error)

	List(ctx context.Context, params ListParams) ([]domain.Engineer, int, error)

	// ListCandidates returns active PMEngineers for an office with their
	// assignments loaded, the ranking service's input.
	ListCandidates(ctx context.Context, officeID uuid.UUID) ([]domain.Engineer, error)

	// Save persists the engineer's scalar fields (capacity, specializations,
	// rating, active flag).
	Save(ctx context.Context, e *domain.Engineer) error

	AssignSite(ctx context.Context, engineerID, siteID uuid.UUID) error
	UnassignSite(ctx context.Context, engineerID, siteID uuid.UUID) error
}

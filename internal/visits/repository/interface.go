package repository

import (
	"context"
	"time"

	"telecompm_backend/internal/visits/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListParams filters and paginates visit listings.
type ListParams struct {
	SiteID     *uuid.UUID
	EngineerID *uuid.UUID
	Status     domain.Status
	From       *time.Time
	To         *time.Time
	SortOrder  string
	Limit      int
	Offset     int
}

// Repository is the persistence port for the visit aggregate. Mutating
// methods take a pgx.Tx so one lifecycle operation commits atomically.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, v *domain.Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Visit, error)

	// GetForUpdate locks the visit row for the transaction and loads the full
	// aggregate including children.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Visit, error)

	List(ctx context.Context, params ListParams) ([]domain.Visit, int, error)

	// Save persists the aggregate's own mutable fields (status, times,
	// location). Children are appended through the dedicated methods.
	Save(ctx context.Context, tx pgx.Tx, v *domain.Visit) error

	AddPhoto(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, p *domain.Photo) error
	AddReading(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, r *domain.Reading) error
	AddChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error
	UpdateChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error
	AddIssue(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, issue *domain.Issue) error
	AddApproval(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, entry *domain.ApprovalEntry) error

	// NextVisitNumber returns the next number in the year-scoped sequence,
	// formatted V{year}{6-digit sequence}. Monotonic within a year.
	NextVisitNumber(ctx context.Context, tx pgx.Tx, year int) (string, error)
}

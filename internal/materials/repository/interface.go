package repository

import (
	"context"
	"time"

	"telecompm_backend/internal/materials/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListParams filters and paginates material listings.
type ListParams struct {
	Search    string
	Category  string
	OfficeID  *uuid.UUID
	LowStock  bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// UsageRecord is the immutable consumption line item written when a
// reservation is consumed. The unit cost is snapshotted at consumption time
// so later price changes never rewrite visit history.
type UsageRecord struct {
	ID             uuid.UUID
	VisitID        uuid.UUID
	MaterialID     uuid.UUID
	MaterialCode   string
	MaterialName   string
	Quantity       float64
	Unit           string
	UnitCostCents  int64
	TotalCostCents int64
	UsedAt         time.Time
}

// Repository is the persistence port for the material aggregate. Mutating
// methods take a pgx.Tx so the service can batch one operation's writes into
// a single transaction alongside the row lock.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, m *domain.Material) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error)
	GetByCode(ctx context.Context, code string) (*domain.Material, error)

	// GetForUpdate loads the material row with FOR UPDATE plus its unconsumed
	// reservations, so availability is computed from latest committed state.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Material, error)

	List(ctx context.Context, params ListParams) ([]domain.Material, int, error)
	FindLowStock(ctx context.Context, officeID uuid.UUID) ([]domain.Material, error)
	ListOfficeIDs(ctx context.Context) ([]uuid.UUID, error)

	SaveStock(ctx context.Context, tx pgx.Tx, m *domain.Material) error
	InsertReservation(ctx context.Context, tx pgx.Tx, res *domain.Reservation) error
	MarkReservationConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	DeleteReservation(ctx context.Context, tx pgx.Tx, materialID, visitID uuid.UUID) (bool, error)
	ListOpenReservationsByVisit(ctx context.Context, visitID uuid.UUID) ([]domain.Reservation, error)

	InsertUsage(ctx context.Context, tx pgx.Tx, usage UsageRecord) error
	ListUsageByVisit(ctx context.Context, visitID uuid.UUID) ([]UsageRecord, error)
}

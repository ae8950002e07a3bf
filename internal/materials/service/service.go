// Package service implements the stock ledger and reservation protocol on top
// of the material aggregate. Every mutating operation serializes per material
// id (keyed lock plus a row lock inside the transaction) so availability is
// always computed from the latest committed state.
package service

import (
	"context"
	"math"
	"strings"
	"time"

	"telecompm_backend/internal/events"
	"telecompm_backend/internal/materials/domain"
	"telecompm_backend/internal/materials/repository"
	"telecompm_backend/platform/apperr"
	"telecompm_backend/platform/db"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockKeyPrefix = "material:"

// TxRunner executes fn inside one transaction. Extracted as a function type
// so tests can run the service against fakes without a live pool.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

// NewPoolTxRunner creates a TxRunner backed by a pgx pool.
func NewPoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// Service provides material stock operations.
type Service struct {
	repo  repository.Repository
	inTx  TxRunner
	locks lock.KeyedLocker
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new materials service.
func New(repo repository.Repository, inTx TxRunner, locks lock.KeyedLocker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, inTx: inTx, locks: locks, bus: bus, log: log}
}

// CreateParams holds the fields for registering a material.
type CreateParams struct {
	Code          string
	Name          string
	Description   string
	Category      string
	OfficeID      uuid.UUID
	InitialStock  domain.Quantity
	MinimumStock  domain.Quantity
	UnitCostCents int64
}

// Create registers a new material with its initial stock level.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Material, error) {
	m, err := domain.NewMaterial(params.Code, params.Name, params.Category, params.OfficeID,
		params.InitialStock, params.MinimumStock, params.UnitCostCents)
	if err != nil {
		return nil, err
	}
	m.Description = params.Description

	if err := s.inTx(ctx, func(tx pgx.Tx) error {
		return s.repo.Create(ctx, tx, m)
	}); err != nil {
		return nil, err
	}

	s.log.Info("material created", "material_code", m.Code, "office_id", m.OfficeID)
	return m, nil
}

// Get retrieves a material by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode retrieves a material by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Material, error) {
	return s.repo.GetByCode(ctx, code)
}

// List lists materials with filters and pagination.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Material, int, error) {
	return s.repo.List(ctx, params)
}

// AvailableToReserve returns current stock minus unconsumed reservations.
// Advisory outside a lock: the authoritative check happens inside Reserve.
func (s *Service) AvailableToReserve(ctx context.Context, materialID uuid.UUID) (domain.Quantity, error) {
	var available domain.Quantity
	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		available = m.AvailableToReserve()
		return nil
	})
	return available, err
}

// Reserve places a soft hold on material quantity for a visit. Stock is not
// decremented until the reservation is consumed.
func (s *Service) Reserve(ctx context.Context, materialID, visitID uuid.UUID, quantity domain.Quantity) (*domain.Reservation, error) {
	if visitID == uuid.Nil {
		return nil, apperr.Validation("visit id is required")
	}

	var reserved domain.Reservation
	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		res, err := m.Reserve(visitID, quantity)
		if err != nil {
			return err
		}
		reserved = *res
		return s.repo.InsertReservation(ctx, tx, res)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.MaterialReserved{
		BaseEvent:  events.NewBaseEvent(),
		MaterialID: materialID,
		VisitID:    visitID,
		Quantity:   reserved.Quantity.Value,
		Unit:       reserved.Quantity.Unit,
	})
	return &reserved, nil
}

// Consume converts the visit's open reservation into a stock deduction plus
// an immutable usage record with the unit cost snapshotted at this moment.
func (s *Service) Consume(ctx context.Context, materialID, visitID uuid.UUID, performedBy string) (*repository.UsageRecord, error) {
	var usage repository.UsageRecord
	var lowStock *events.LowStockAlert

	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		res, err := m.ConsumeReservation(visitID)
		if err != nil {
			return err
		}

		if err := s.repo.MarkReservationConsumed(ctx, tx, res.ID); err != nil {
			return err
		}
		if err := s.repo.SaveStock(ctx, tx, m); err != nil {
			return err
		}

		usage = repository.UsageRecord{
			ID:             uuid.New(),
			VisitID:        visitID,
			MaterialID:     m.ID,
			MaterialCode:   m.Code,
			MaterialName:   m.Name,
			Quantity:       res.Quantity.Value,
			Unit:           res.Quantity.Unit,
			UnitCostCents:  m.UnitCostCents,
			TotalCostCents: int64(math.Round(res.Quantity.Value * float64(m.UnitCostCents))),
			UsedAt:         time.Now(),
		}
		if err := s.repo.InsertUsage(ctx, tx, usage); err != nil {
			return err
		}

		lowStock = s.lowStockAlert(m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.StockMovement("consume", usage.MaterialCode, usage.Quantity, usage.Unit, performedBy)
	s.bus.Publish(ctx, events.MaterialConsumed{
		BaseEvent:      events.NewBaseEvent(),
		MaterialID:     materialID,
		VisitID:        visitID,
		Quantity:       usage.Quantity,
		Unit:           usage.Unit,
		TotalCostCents: usage.TotalCostCents,
		PerformedBy:    performedBy,
	})
	if lowStock != nil {
		s.bus.Publish(ctx, *lowStock)
	}
	return &usage, nil
}

// Release frees the visit's open reservation. Idempotent: releasing a
// reservation that does not exist is a no-op, which supports cleanup paths
// that run more than once.
func (s *Service) Release(ctx context.Context, materialID, visitID uuid.UUID) error {
	var released bool
	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		if !m.ReleaseReservation(visitID) {
			return nil
		}
		deleted, err := s.repo.DeleteReservation(ctx, tx, materialID, visitID)
		if err != nil {
			return err
		}
		released = deleted
		return nil
	})
	if err != nil {
		return err
	}

	if released {
		s.bus.Publish(ctx, events.MaterialReservationReleased{
			BaseEvent:  events.NewBaseEvent(),
			MaterialID: materialID,
			VisitID:    visitID,
		})
	}
	return nil
}

// ConsumeAllForVisit consumes every open reservation held by the visit.
// Called when a visit is approved so each deducted unit traces to it.
func (s *Service) ConsumeAllForVisit(ctx context.Context, visitID uuid.UUID, performedBy string) ([]repository.UsageRecord, error) {
	open, err := s.repo.ListOpenReservationsByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}

	usages := make([]repository.UsageRecord, 0, len(open))
	for _, res := range open {
		usage, err := s.Consume(ctx, res.MaterialID, visitID, performedBy)
		if err != nil {
			// The listing above runs outside the material locks, so a
			// reservation released concurrently is gone by the time we get
			// here. Skip it; there is nothing left to consume.
			if apperr.Is(err, apperr.KindReservationNotFound) {
				continue
			}
			return usages, err
		}
		usages = append(usages, *usage)
	}
	return usages, nil
}

// ReleaseAllForVisit releases every open reservation held by the visit.
// Called when a visit is rejected or cancelled.
func (s *Service) ReleaseAllForVisit(ctx context.Context, visitID uuid.UUID) error {
	open, err := s.repo.ListOpenReservationsByVisit(ctx, visitID)
	if err != nil {
		return err
	}

	for _, res := range open {
		if err := s.Release(ctx, res.MaterialID, visitID); err != nil {
			return err
		}
	}
	return nil
}

// AddStock increases current stock and records the restock time.
func (s *Service) AddStock(ctx context.Context, materialID uuid.UUID, quantity domain.Quantity, performedBy string) (*domain.Material, error) {
	var updated *domain.Material
	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		if err := m.AddStock(quantity); err != nil {
			return err
		}
		updated = m
		return s.repo.SaveStock(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.log.StockMovement("add", updated.Code, quantity.Value, quantity.Unit, performedBy)
	return updated, nil
}

// DeductStock decreases stock outside the reservation protocol, for damage
// write-offs and similar corrections. Low stock is signalled, never blocks.
func (s *Service) DeductStock(ctx context.Context, materialID uuid.UUID, quantity domain.Quantity, performedBy string) (*domain.Material, error) {
	var updated *domain.Material
	var lowStock *events.LowStockAlert

	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		if err := m.DeductStock(quantity); err != nil {
			return err
		}
		updated = m
		lowStock = s.lowStockAlert(m)
		return s.repo.SaveStock(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.log.StockMovement("deduct", updated.Code, quantity.Value, quantity.Unit, performedBy)
	if lowStock != nil {
		s.bus.Publish(ctx, *lowStock)
	}
	return updated, nil
}

// AdjustStock overwrites the stock level for audits and corrections. The
// reason is mandatory and logged; no availability check is applied.
func (s *Service) AdjustStock(ctx context.Context, materialID uuid.UUID, newQuantity domain.Quantity, reason, performedBy string) (*domain.Material, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("adjustment reason is required")
	}

	var updated *domain.Material
	var oldValue float64
	var lowStock *events.LowStockAlert

	err := s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		oldValue = m.CurrentStock.Value
		if err := m.AdjustStock(newQuantity); err != nil {
			return err
		}
		updated = m
		lowStock = s.lowStockAlert(m)
		return s.repo.SaveStock(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted",
		"material_code", updated.Code,
		"old_quantity", oldValue,
		"new_quantity", newQuantity.Value,
		"reason", reason,
		"performed_by", performedBy,
	)
	s.bus.Publish(ctx, events.StockAdjusted{
		BaseEvent:   events.NewBaseEvent(),
		MaterialID:  materialID,
		OldQuantity: oldValue,
		NewQuantity: newQuantity.Value,
		Reason:      reason,
		PerformedBy: performedBy,
	})
	if lowStock != nil {
		s.bus.Publish(ctx, *lowStock)
	}
	return updated, nil
}

// Deactivate retires a material from new reservations.
func (s *Service) Deactivate(ctx context.Context, materialID uuid.UUID) error {
	return s.withMaterial(ctx, materialID, func(tx pgx.Tx, m *domain.Material) error {
		m.Deactivate()
		return s.repo.SaveStock(ctx, tx, m)
	})
}

// FindLowStock lists the office's materials at or below minimum threshold.
func (s *Service) FindLowStock(ctx context.Context, officeID uuid.UUID) ([]domain.Material, error) {
	return s.repo.FindLowStock(ctx, officeID)
}

// ListOfficeIDs returns the offices owning active materials.
func (s *Service) ListOfficeIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListOfficeIDs(ctx)
}

// ListUsageByVisit returns the consumption line items recorded for a visit.
func (s *Service) ListUsageByVisit(ctx context.Context, visitID uuid.UUID) ([]repository.UsageRecord, error) {
	return s.repo.ListUsageByVisit(ctx, visitID)
}

// withMaterial acquires the material's keyed lock, opens a transaction, and
// hands fn the row-locked aggregate. The keyed lock serializes in-process
// callers before they contend on the database row.
func (s *Service) withMaterial(ctx context.Context, materialID uuid.UUID, fn func(tx pgx.Tx, m *domain.Material) error) error {
	release, err := s.locks.Acquire(ctx, lockKeyPrefix+materialID.String())
	if err != nil {
		return err
	}
	defer release()

	return s.inTx(ctx, func(tx pgx.Tx) error {
		m, err := s.repo.GetForUpdate(ctx, tx, materialID)
		if err != nil {
			return err
		}
		return fn(tx, m)
	})
}

func (s *Service) lowStockAlert(m *domain.Material) *events.LowStockAlert {
	if !m.IsLowStock() {
		return nil
	}
	return &events.LowStockAlert{
		BaseEvent:    events.NewBaseEvent(),
		MaterialID:   m.ID,
		MaterialName: m.Name,
		OfficeID:     m.OfficeID,
		CurrentStock: m.CurrentStock.Value,
		MinimumStock: m.MinimumStock.Value,
		Unit:         m.CurrentStock.Unit,
	}
}

// Package domain holds the material aggregate and its stock ledger rules.
// The aggregate owns its reservations; all availability math goes through it
// so that no caller can oversell stock by reasoning about raw numbers.
package domain

import (
	"fmt"
	"strings"
	"time"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Reservation is a soft hold on material quantity tied to one visit. It does
// not decrement stock; only consumption does. Lifecycle: created on reserve,
// then either consumed (immutable thereafter) or released (deleted).
type Reservation struct {
	ID         uuid.UUID  `json:"id"`
	MaterialID uuid.UUID  `json:"materialId"`
	VisitID    uuid.UUID  `json:"visitId"`
	Quantity   Quantity   `json:"quantity"`
	ReservedAt time.Time  `json:"reservedAt"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
}

// Material is the stock ledger aggregate. CurrentStock's unit is fixed at
// creation; every operation must present a quantity in the same unit.
type Material struct {
	ID              uuid.UUID     `json:"id"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	OfficeID        uuid.UUID     `json:"officeId"`
	CurrentStock    Quantity      `json:"currentStock"`
	MinimumStock    Quantity      `json:"minimumStock"`
	UnitCostCents   int64         `json:"unitCostCents"`
	IsActive        bool          `json:"isActive"`
	LastRestockedAt *time.Time    `json:"lastRestockedAt,omitempty"`
	Reservations    []Reservation `json:"reservations,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// NewMaterial creates a material with an initial stock level. The code is
// uppercase-normalized so lookups are case-insensitive by construction.
func NewMaterial(code, name, category string, officeID uuid.UUID, initial, minimum Quantity, unitCostCents int64) (*Material, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validation("material code is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("material name is required")
	}
	if officeID == uuid.Nil {
		return nil, apperr.Validation("owning office is required")
	}
	if initial.Unit != minimum.Unit {
		return nil, apperr.UnitMismatch(minimum.Unit, initial.Unit)
	}
	if unitCostCents < 0 {
		return nil, apperr.Validation("unit cost cannot be negative")
	}

	now := time.Now()
	return &Material{
		ID:            uuid.New(),
		Code:          code,
		Name:          strings.TrimSpace(name),
		Category:      category,
		OfficeID:      officeID,
		CurrentStock:  initial,
		MinimumStock:  minimum,
		UnitCostCents: unitCostCents,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// AvailableToReserve returns current stock minus the sum of unconsumed
// reservations. This is the only number reserve decisions may be based on.
func (m *Material) AvailableToReserve() Quantity {
	reserved := 0.0
	for _, r := range m.Reservations {
		if !r.Consumed {
			reserved += r.Quantity.Value
		}
	}
	return Quantity{Value: m.CurrentStock.Value - reserved, Unit: m.CurrentStock.Unit}
}

// Reserve places a soft hold for a visit. Stock is not decremented; the hold
// only shrinks AvailableToReserve until it is consumed or released.
func (m *Material) Reserve(visitID uuid.UUID, quantity Quantity) (*Reservation, error) {
	if !m.IsActive {
		return nil, apperr.Validation(fmt.Sprintf("material %s is inactive", m.Code))
	}
	if err := m.checkUnit(quantity); err != nil {
		return nil, err
	}
	if quantity.Value <= 0 {
		return nil, apperr.Validation("reserved quantity must be positive")
	}
	if m.findUnconsumed(visitID) != nil {
		return nil, apperr.DuplicateReservation(
			fmt.Sprintf("material %s already has an open reservation for this visit", m.Code))
	}
	if available := m.AvailableToReserve(); quantity.Value > available.Value {
		return nil, apperr.InsufficientStock(
			fmt.Sprintf("material %s has %s available, requested %s", m.Code, available, quantity))
	}

	res := Reservation{
		ID:         uuid.New(),
		MaterialID: m.ID,
		VisitID:    visitID,
		Quantity:   quantity,
		ReservedAt: time.Now(),
	}
	m.Reservations = append(m.Reservations, res)
	m.UpdatedAt = time.Now()
	return &m.Reservations[len(m.Reservations)-1], nil
}

// ConsumeReservation converts the visit's open reservation into an actual
// stock deduction. It returns the consumed reservation so the caller can
// record the usage with the unit cost snapshot.
func (m *Material) ConsumeReservation(visitID uuid.UUID) (*Reservation, error) {
	res := m.findUnconsumed(visitID)
	if res == nil {
		return nil, apperr.ReservationNotFound(
			fmt.Sprintf("material %s has no open reservation for this visit", m.Code))
	}

	newStock, err := m.CurrentStock.Subtract(res.Quantity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res.Consumed = true
	res.ConsumedAt = &now
	m.CurrentStock = newStock
	m.UpdatedAt = now
	return res, nil
}

// ReleaseReservation deletes the visit's open reservation, freeing capacity.
// Releasing a non-existent reservation is a no-op; the bool reports whether
// anything was actually released.
func (m *Material) ReleaseReservation(visitID uuid.UUID) bool {
	for i, r := range m.Reservations {
		if r.VisitID == visitID && !r.Consumed {
			m.Reservations = append(m.Reservations[:i], m.Reservations[i+1:]...)
			m.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// AddStock increases current stock and records the restock time.
func (m *Material) AddStock(quantity Quantity) error {
	if err := m.checkUnit(quantity); err != nil {
		return err
	}
	if quantity.Value <= 0 {
		return apperr.Validation("added quantity must be positive")
	}

	now := time.Now()
	m.CurrentStock.Value += quantity.Value
	m.LastRestockedAt = &now
	m.UpdatedAt = now
	return nil
}

// DeductStock decreases current stock directly, outside the reservation
// protocol. Used for damage write-offs and similar corrections.
func (m *Material) DeductStock(quantity Quantity) error {
	if err := m.checkUnit(quantity); err != nil {
		return err
	}
	if quantity.Value <= 0 {
		return apperr.Validation("deducted quantity must be positive")
	}

	newStock, err := m.CurrentStock.Subtract(quantity)
	if err != nil {
		return err
	}
	m.CurrentStock = newStock
	m.UpdatedAt = time.Now()
	return nil
}

// AdjustStock overwrites current stock. There is no availability check: this
// is an administrative correction used for audits, and may legitimately set
// stock below the outstanding reservation total.
func (m *Material) AdjustStock(newQuantity Quantity) error {
	if err := m.checkUnit(newQuantity); err != nil {
		return err
	}
	m.CurrentStock = newQuantity
	m.UpdatedAt = time.Now()
	return nil
}

// IsLowStock reports whether current stock is at or below the minimum
// threshold. A signal, never an error.
func (m *Material) IsLowStock() bool {
	return m.CurrentStock.Value <= m.MinimumStock.Value
}

// Deactivate retires the material from new reservations while keeping its
// history intact.
func (m *Material) Deactivate() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}

func (m *Material) findUnconsumed(visitID uuid.UUID) *Reservation {
	for i := range m.Reservations {
		if m.Reservations[i].VisitID == visitID && !m.Reservations[i].Consumed {
			return &m.Reservations[i]
		}
	}
	return nil
}

func (m *Material) checkUnit(q Quantity) error {
	if q.Unit != m.CurrentStock.Unit {
		return apperr.UnitMismatch(q.Unit, m.CurrentStock.Unit)
	}
	return nil
}

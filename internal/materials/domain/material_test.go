package domain

import (
	"testing"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

func kg(v float64) Quantity { return Quantity{Value: v, Unit: UnitKg} }

func newTestMaterial(t *testing.T, stock, minimum float64) *Material {
	t.Helper()
	m, err := NewMaterial("cbl-001", "Power Cable", "Cables", uuid.New(), kg(stock), kg(minimum), 1500)
	if err != nil {
		t.Fatalf("new material: %v", err)
	}
	return m
}

func TestNewMaterialNormalizesCode(t *testing.T) {
	m := newTestMaterial(t, 10, 2)
	if m.Code != "CBL-001" {
		t.Fatalf("expected uppercase code, got %q", m.Code)
	}
	if !m.IsActive {
		t.Fatal("new material should be active")
	}
}

func TestNewMaterialRejectsMismatchedUnits(t *testing.T) {
	_, err := NewMaterial("X", "X", "", uuid.New(), kg(10), Quantity{Value: 2, Unit: UnitMeter}, 0)
	if !apperr.Is(err, apperr.KindUnitMismatch) {
		t.Fatalf("expected unit mismatch, got %v", err)
	}
}

func TestReserveReducesAvailabilityWithoutTouchingStock(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visitA := uuid.New()

	if _, err := m.Reserve(visitA, kg(50)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := m.AvailableToReserve(); got.Value != 50 {
		t.Fatalf("expected 50 available, got %s", got)
	}
	if m.CurrentStock.Value != 100 {
		t.Fatalf("reserve must not decrement stock, got %s", m.CurrentStock)
	}
}

func TestReserveFailsWhenExceedingAvailability(t *testing.T) {
	m := newTestMaterial(t, 100, 20)

	if _, err := m.Reserve(uuid.New(), kg(50)); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	_, err := m.Reserve(uuid.New(), kg(60))
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestReserveRejectsDuplicatePerVisit(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visit := uuid.New()

	if _, err := m.Reserve(visit, kg(10)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err := m.Reserve(visit, kg(5))
	if !apperr.Is(err, apperr.KindDuplicateReservation) {
		t.Fatalf("expected duplicate reservation, got %v", err)
	}
}

func TestReserveRejectsWrongUnit(t *testing.T) {
	m := newTestMaterial(t, 100, 20)

	_, err := m.Reserve(uuid.New(), Quantity{Value: 5, Unit: UnitPiece})
	if !apperr.Is(err, apperr.KindUnitMismatch) {
		t.Fatalf("expected unit mismatch, got %v", err)
	}
}

func TestReserveRejectsInactiveMaterial(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	m.Deactivate()

	if _, err := m.Reserve(uuid.New(), kg(5)); err == nil {
		t.Fatal("expected error reserving on inactive material")
	}
}

func TestConsumeDecrementsStockOnce(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visit := uuid.New()

	if _, err := m.Reserve(visit, kg(50)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	res, err := m.ConsumeReservation(visit)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !res.Consumed || res.ConsumedAt == nil {
		t.Fatal("reservation not marked consumed")
	}
	if m.CurrentStock.Value != 50 {
		t.Fatalf("expected stock 50 after consume, got %s", m.CurrentStock)
	}
	if m.IsLowStock() {
		t.Fatal("50 > 20 minimum, should not be low stock")
	}

	// Consuming again must not double-deduct.
	_, err = m.ConsumeReservation(visit)
	if !apperr.Is(err, apperr.KindReservationNotFound) {
		t.Fatalf("expected reservation not found on second consume, got %v", err)
	}
	if m.CurrentStock.Value != 50 {
		t.Fatalf("stock changed on failed consume: %s", m.CurrentStock)
	}
}

func TestConsumeFailsWhenAdjustmentDroppedStockBelowReservation(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visit := uuid.New()

	if _, err := m.Reserve(visit, kg(50)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := m.AdjustStock(kg(30)); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	if _, err := m.ConsumeReservation(visit); !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock consuming past adjusted level, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visit := uuid.New()

	if _, err := m.Reserve(visit, kg(30)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if !m.ReleaseReservation(visit) {
		t.Fatal("first release should report true")
	}
	if got := m.AvailableToReserve(); got.Value != 100 {
		t.Fatalf("expected full availability after release, got %s", got)
	}

	if m.ReleaseReservation(visit) {
		t.Fatal("second release should be a no-op")
	}
	if m.ReleaseReservation(uuid.New()) {
		t.Fatal("releasing unknown visit should be a no-op")
	}
	if m.CurrentStock.Value != 100 {
		t.Fatalf("release must never change stock, got %s", m.CurrentStock)
	}
}

func TestAvailabilityNeverNegativeThroughProtocol(t *testing.T) {
	m := newTestMaterial(t, 100, 20)

	visits := make([]uuid.UUID, 0, 8)
	for i := 0; i < 8; i++ {
		visit := uuid.New()
		if _, err := m.Reserve(visit, kg(20)); err != nil {
			break
		}
		visits = append(visits, visit)
	}

	if len(visits) != 5 {
		t.Fatalf("expected exactly 5 reservations of 20kg into 100kg, got %d", len(visits))
	}
	if got := m.AvailableToReserve(); got.Value < 0 {
		t.Fatalf("availability went negative: %s", got)
	}

	for _, v := range visits {
		if _, err := m.ConsumeReservation(v); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	if got := m.AvailableToReserve(); got.Value != 0 {
		t.Fatalf("expected 0 available after consuming all, got %s", got)
	}
}

func TestLowStockScenario(t *testing.T) {
	m := newTestMaterial(t, 100, 20)
	visitA := uuid.New()

	if _, err := m.Reserve(visitA, kg(50)); err != nil {
		t.Fatalf("reserve A: %v", err)
	}
	if _, err := m.Reserve(uuid.New(), kg(60)); !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock for 60kg, got %v", err)
	}
	if _, err := m.ConsumeReservation(visitA); err != nil {
		t.Fatalf("consume A: %v", err)
	}
	if m.IsLowStock() {
		t.Fatal("50kg > 20kg minimum, not low stock")
	}

	if err := m.AdjustStock(kg(15)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !m.IsLowStock() {
		t.Fatal("15kg <= 20kg minimum, should be low stock")
	}
}

func TestAddStockRecordsRestockTime(t *testing.T) {
	m := newTestMaterial(t, 10, 2)

	if err := m.AddStock(kg(5)); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if m.CurrentStock.Value != 15 {
		t.Fatalf("expected 15, got %s", m.CurrentStock)
	}
	if m.LastRestockedAt == nil {
		t.Fatal("restock time not recorded")
	}

	if err := m.AddStock(Quantity{Value: 5, Unit: UnitLiter}); !apperr.Is(err, apperr.KindUnitMismatch) {
		t.Fatalf("expected unit mismatch, got %v", err)
	}
}

func TestDeductStockBoundaries(t *testing.T) {
	m := newTestMaterial(t, 10, 2)

	if err := m.DeductStock(kg(4)); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if m.CurrentStock.Value != 6 {
		t.Fatalf("expected 6, got %s", m.CurrentStock)
	}

	if err := m.DeductStock(kg(7)); !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if err := m.DeductStock(kg(0)); err == nil {
		t.Fatal("expected error for zero deduction")
	}
}

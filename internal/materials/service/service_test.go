package service

import (
	"context"
	"sync"
	"testing"

	"telecompm_backend/internal/events"
	"telecompm_backend/internal/materials/domain"
	"telecompm_backend/internal/materials/repository"
	"telecompm_backend/platform/apperr"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeRepo is an in-memory Repository. The tx argument is ignored; the fake
// relies on the service's keyed lock for serialization, guarded by a mutex
// for the map itself.
type fakeRepo struct {
	mu        sync.Mutex
	materials map[uuid.UUID]*domain.Material
	usages    []repository.UsageRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{materials: make(map[uuid.UUID]*domain.Material)}
}

func (f *fakeRepo) put(m *domain.Material) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials[m.ID] = m
}

func cloneMaterial(m *domain.Material) *domain.Material {
	cp := *m
	cp.Reservations = append([]domain.Reservation(nil), m.Reservations...)
	return &cp
}

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Material) error {
	f.put(cloneMaterial(m))
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[id]
	if !ok {
		return nil, apperr.NotFound("material not found")
	}
	return cloneMaterial(m), nil
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (*domain.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.materials {
		if m.Code == code {
			return cloneMaterial(m), nil
		}
	}
	return nil, apperr.NotFound("material not found")
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Material, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Material, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Material, 0, len(f.materials))
	for _, m := range f.materials {
		out = append(out, *cloneMaterial(m))
	}
	return out, len(out), nil
}

func (f *fakeRepo) FindLowStock(ctx context.Context, officeID uuid.UUID) ([]domain.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Material, 0)
	for _, m := range f.materials {
		if m.OfficeID == officeID && m.IsActive && m.IsLowStock() {
			out = append(out, *cloneMaterial(m))
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOfficeIDs(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	out := make([]uuid.UUID, 0)
	for _, m := range f.materials {
		if !seen[m.OfficeID] {
			seen[m.OfficeID] = true
			out = append(out, m.OfficeID)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveStock(ctx context.Context, tx pgx.Tx, m *domain.Material) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.materials[m.ID]
	if !ok {
		return apperr.NotFound("material not found")
	}
	stored.CurrentStock = m.CurrentStock
	stored.MinimumStock = m.MinimumStock
	stored.UnitCostCents = m.UnitCostCents
	stored.IsActive = m.IsActive
	stored.LastRestockedAt = m.LastRestockedAt
	stored.UpdatedAt = m.UpdatedAt
	return nil
}

func (f *fakeRepo) InsertReservation(ctx context.Context, tx pgx.Tx, res *domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.materials[res.MaterialID]
	if !ok {
		return apperr.NotFound("material not found")
	}
	stored.Reservations = append(stored.Reservations, *res)
	return nil
}

func (f *fakeRepo) MarkReservationConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.materials {
		for i := range m.Reservations {
			if m.Reservations[i].ID == id && !m.Reservations[i].Consumed {
				m.Reservations[i].Consumed = true
				return nil
			}
		}
	}
	return apperr.ReservationNotFound("no open reservation to consume")
}

func (f *fakeRepo) DeleteReservation(ctx context.Context, tx pgx.Tx, materialID, visitID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.materials[materialID]
	if !ok {
		return false, apperr.NotFound("material not found")
	}
	for i, r := range stored.Reservations {
		if r.VisitID == visitID && !r.Consumed {
			stored.Reservations = append(stored.Reservations[:i], stored.Reservations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListOpenReservationsByVisit(ctx context.Context, visitID uuid.UUID) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reservation, 0)
	for _, m := range f.materials {
		for _, r := range m.Reservations {
			if r.VisitID == visitID && !r.Consumed {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertUsage(ctx context.Context, tx pgx.Tx, usage repository.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, usage)
	return nil
}

func (f *fakeRepo) ListUsageByVisit(ctx context.Context, visitID uuid.UUID) ([]repository.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.UsageRecord, 0)
	for _, u := range f.usages {
		if u.VisitID == visitID {
			out = append(out, u)
		}
	}
	return out, nil
}

var _ repository.Repository = (*fakeRepo)(nil)

// recordingBus captures published events synchronously so tests can assert
// on them without sleeping.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, h events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, 0)
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func noTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func kg(v float64) domain.Quantity { return domain.Quantity{Value: v, Unit: domain.UnitKg} }

func newTestService(t *testing.T) (*Service, *fakeRepo, *recordingBus) {
	t.Helper()
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, noTx, lock.NewLocal(), bus, logger.New("development"))
	return svc, repo, bus
}

func seedMaterial(t *testing.T, repo *fakeRepo, stock, minimum float64, unitCostCents int64) *domain.Material {
	t.Helper()
	m, err := domain.NewMaterial("FOC-12", "Fiber Optic Cable", "Cables", uuid.New(), kg(stock), kg(minimum), unitCostCents)
	if err != nil {
		t.Fatalf("new material: %v", err)
	}
	repo.put(m)
	return m
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	svc, repo, _ := newTestService(t)
	m := seedMaterial(t, repo, 100, 20, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, m.ID, uuid.New(), kg(20))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.Is(err, apperr.KindInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || insufficient != 3 {
		t.Fatalf("expected 5 successes and 3 insufficient-stock failures, got %d and %d", succeeded, insufficient)
	}

	available, err := svc.AvailableToReserve(ctx, m.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if available.Value != 0 {
		t.Fatalf("expected 0 available, got %s", available)
	}
}

func TestConsumeSnapshotsUnitCostAndSignalsLowStock(t *testing.T) {
	svc, repo, bus := newTestService(t)
	m := seedMaterial(t, repo, 25, 20, 1500)
	visit := uuid.New()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, m.ID, visit, kg(10)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	usage, err := svc.Consume(ctx, m.ID, visit, "eng-ahmed")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if usage.Quantity != 10 || usage.UnitCostCents != 1500 || usage.TotalCostCents != 15000 {
		t.Fatalf("bad usage snapshot: %+v", usage)
	}

	stored, _ := repo.GetByID(ctx, m.ID)
	if stored.CurrentStock.Value != 15 {
		t.Fatalf("expected stock 15, got %s", stored.CurrentStock)
	}

	// 15 <= 20 minimum crosses the threshold.
	if got := bus.byName(events.LowStockAlert{}.EventName()); len(got) != 1 {
		t.Fatalf("expected 1 low stock alert, got %d", len(got))
	}
	if got := bus.byName(events.MaterialConsumed{}.EventName()); len(got) != 1 {
		t.Fatalf("expected 1 consumed event, got %d", len(got))
	}
}

func TestConsumeRoundsFractionalQuantityCost(t *testing.T) {
	svc, repo, _ := newTestService(t)
	m := seedMaterial(t, repo, 100, 5, 100)
	visit := uuid.New()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, m.ID, visit, kg(4.35)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	usage, err := svc.Consume(ctx, m.ID, visit, "eng")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	// 4.35 * 100 is 434.99... in binary; truncation would drop a cent.
	if usage.TotalCostCents != 435 {
		t.Fatalf("total cost = %d cents, want 435", usage.TotalCostCents)
	}
}

func TestConsumeTwiceFailsWithoutDoubleDeduction(t *testing.T) {
	svc, repo, _ := newTestService(t)
	m := seedMaterial(t, repo, 100, 5, 1000)
	visit := uuid.New()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, m.ID, visit, kg(30)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.Consume(ctx, m.ID, visit, "eng"); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	_, err := svc.Consume(ctx, m.ID, visit, "eng")
	if !apperr.Is(err, apperr.KindReservationNotFound) {
		t.Fatalf("expected reservation not found, got %v", err)
	}

	stored, _ := repo.GetByID(ctx, m.ID)
	if stored.CurrentStock.Value != 70 {
		t.Fatalf("stock double-deducted: %s", stored.CurrentStock)
	}
}

func TestReleaseIsIdempotentAndEmitsOnce(t *testing.T) {
	svc, repo, bus := newTestService(t)
	m := seedMaterial(t, repo, 100, 5, 1000)
	visit := uuid.New()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, m.ID, visit, kg(40)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(ctx, m.ID, visit); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := svc.Release(ctx, m.ID, visit); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}

	if got := bus.byName(events.MaterialReservationReleased{}.EventName()); len(got) != 1 {
		t.Fatalf("expected exactly 1 released event, got %d", len(got))
	}

	stored, _ := repo.GetByID(ctx, m.ID)
	if stored.CurrentStock.Value != 100 {
		t.Fatalf("release changed stock: %s", stored.CurrentStock)
	}
}

func TestConsumeAllForVisitCoversEveryMaterial(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	visit := uuid.New()

	m1 := seedMaterial(t, repo, 50, 5, 1000)
	m2, err := domain.NewMaterial("BAT-48", "Battery Bank", "Power", uuid.New(),
		domain.Quantity{Value: 10, Unit: domain.UnitPiece}, domain.Quantity{Value: 2, Unit: domain.UnitPiece}, 250000)
	if err != nil {
		t.Fatalf("new material: %v", err)
	}
	repo.put(m2)

	if _, err := svc.Reserve(ctx, m1.ID, visit, kg(5)); err != nil {
		t.Fatalf("reserve m1: %v", err)
	}
	if _, err := svc.Reserve(ctx, m2.ID, visit, domain.Quantity{Value: 2, Unit: domain.UnitPiece}); err != nil {
		t.Fatalf("reserve m2: %v", err)
	}

	usages, err := svc.ConsumeAllForVisit(ctx, visit, "reviewer")
	if err != nil {
		t.Fatalf("consume all: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("expected 2 usage records, got %d", len(usages))
	}

	remaining, err := repo.ListOpenReservationsByVisit(ctx, visit)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no open reservations, got %d", len(remaining))
	}
}

// staleListRepo returns an already-released reservation alongside the real
// open ones, mimicking a release that lands between the listing and the
// per-material consume.
type staleListRepo struct {
	*fakeRepo
	stale domain.Reservation
}

func (r *staleListRepo) ListOpenReservationsByVisit(ctx context.Context, visitID uuid.UUID) ([]domain.Reservation, error) {
	open, err := r.fakeRepo.ListOpenReservationsByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Reservation{r.stale}, open...), nil
}

func TestConsumeAllForVisitSkipsConcurrentlyReleasedReservations(t *testing.T) {
	repo := newFakeRepo()
	visit := uuid.New()
	ctx := context.Background()

	released := seedMaterial(t, repo, 50, 5, 1000)
	held, err := domain.NewMaterial("BAT-48", "Battery Bank", "Power", uuid.New(),
		domain.Quantity{Value: 10, Unit: domain.UnitPiece}, domain.Quantity{Value: 2, Unit: domain.UnitPiece}, 250000)
	if err != nil {
		t.Fatalf("new material: %v", err)
	}
	repo.put(held)

	wrapped := &staleListRepo{fakeRepo: repo, stale: domain.Reservation{
		ID:         uuid.New(),
		MaterialID: released.ID,
		VisitID:    visit,
		Quantity:   kg(5),
	}}
	svc := New(wrapped, noTx, lock.NewLocal(), &recordingBus{}, logger.New("development"))

	if _, err := svc.Reserve(ctx, held.ID, visit, domain.Quantity{Value: 2, Unit: domain.UnitPiece}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	usages, err := svc.ConsumeAllForVisit(ctx, visit, "reviewer")
	if err != nil {
		t.Fatalf("consume all should tolerate the vanished reservation: %v", err)
	}
	if len(usages) != 1 || usages[0].MaterialID != held.ID {
		t.Fatalf("usages = %+v, want exactly the held material", usages)
	}

	stored, _ := repo.GetByID(ctx, released.ID)
	if stored.CurrentStock.Value != 50 {
		t.Fatalf("released material stock changed: %s", stored.CurrentStock)
	}
}

func TestAdjustStockRequiresReason(t *testing.T) {
	svc, repo, bus := newTestService(t)
	m := seedMaterial(t, repo, 100, 20, 1000)
	ctx := context.Background()

	if _, err := svc.AdjustStock(ctx, m.ID, kg(15), "  ", "admin"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}

	updated, err := svc.AdjustStock(ctx, m.ID, kg(15), "annual audit count", "admin")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.CurrentStock.Value != 15 {
		t.Fatalf("expected 15, got %s", updated.CurrentStock)
	}

	if got := bus.byName(events.StockAdjusted{}.EventName()); len(got) != 1 {
		t.Fatalf("expected 1 adjusted event, got %d", len(got))
	}
	// 15 <= 20 triggers the low stock signal as well.
	if got := bus.byName(events.LowStockAlert{}.EventName()); len(got) != 1 {
		t.Fatalf("expected 1 low stock alert, got %d", len(got))
	}
}

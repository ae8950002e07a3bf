package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"telecompm_backend/internal/events"
	matrepo "telecompm_backend/internal/materials/repository"
	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/internal/visits/repository"
	"telecompm_backend/platform/apperr"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// noTx satisfies TxRunner without a database; the fakes below are the store.
func noTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeRepo struct {
	mu       sync.Mutex
	visits   map[uuid.UUID]*domain.Visit
	counters map[int]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		visits:   make(map[uuid.UUID]*domain.Visit),
		counters: make(map[int]int),
	}
}

func cloneVisit(v *domain.Visit) *domain.Visit {
	c := *v
	c.Photos = append([]domain.Photo(nil), v.Photos...)
	c.Readings = append([]domain.Reading(nil), v.Readings...)
	c.Checklist = append([]domain.ChecklistItem(nil), v.Checklist...)
	c.Issues = append([]domain.Issue(nil), v.Issues...)
	c.ApprovalHistory = append([]domain.ApprovalEntry(nil), v.ApprovalHistory...)
	return &c
}

func (r *fakeRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[v.ID] = cloneVisit(v)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, apperr.NotFound("visit not found")
	}
	return cloneVisit(v), nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Visit, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Visit, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Visit, 0, len(r.visits))
	for _, v := range r.visits {
		out = append(out, *cloneVisit(v))
	}
	return out, len(out), nil
}

func (r *fakeRepo) Save(ctx context.Context, tx pgx.Tx, v *domain.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.visits[v.ID]
	if !ok {
		return apperr.NotFound("visit not found")
	}
	stored.Status = v.Status
	stored.StartLocation = v.StartLocation
	stored.ActualStartTime = v.ActualStartTime
	stored.ActualEndTime = v.ActualEndTime
	stored.UpdatedAt = v.UpdatedAt
	return nil
}

func (r *fakeRepo) AddPhoto(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, p *domain.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[visitID].Photos = append(r.visits[visitID].Photos, *p)
	return nil
}

func (r *fakeRepo) AddReading(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, rd *domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[visitID].Readings = append(r.visits[visitID].Readings, *rd)
	return nil
}

func (r *fakeRepo) AddChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[visitID].Checklist = append(r.visits[visitID].Checklist, *item)
	return nil
}

func (r *fakeRepo) UpdateChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.visits[visitID].Checklist
	for i := range list {
		if list[i].ID == item.ID {
			list[i] = *item
			return nil
		}
	}
	return apperr.NotFound("checklist item not found")
}

func (r *fakeRepo) AddIssue(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[visitID].Issues = append(r.visits[visitID].Issues, *issue)
	return nil
}

func (r *fakeRepo) AddApproval(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, entry *domain.ApprovalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[visitID].ApprovalHistory = append(r.visits[visitID].ApprovalHistory, *entry)
	return nil
}

func (r *fakeRepo) NextVisitNumber(ctx context.Context, tx pgx.Tx, year int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[year]++
	return fmt.Sprintf("V%d%06d", year, r.counters[year]), nil
}

// backdateStart widens the visit's recorded duration so submission is not
// rejected for a sub-second test run.
func (r *fakeRepo) backdateStart(visitID uuid.UUID, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.visits[visitID]
	if v.ActualStartTime != nil {
		earlier := v.ActualStartTime.Add(-by)
		v.ActualStartTime = &earlier
	}
}

type stubProfile struct {
	photoCategories   []string
	readingCategories []string
}

func (p stubProfile) RequiredPhotoCategories() []string     { return p.photoCategories }
func (p stubProfile) ApplicableReadingCategories() []string { return p.readingCategories }

type fakeSites struct {
	mu       sync.Mutex
	profile  stubProfile
	recorded map[uuid.UUID]time.Time
}

func (s *fakeSites) EvidenceProfile(ctx context.Context, siteID uuid.UUID) (domain.SiteEvidenceProfile, error) {
	return s.profile, nil
}

func (s *fakeSites) RecordVisit(ctx context.Context, siteID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[siteID] = at
	return nil
}

type fakeMaterials struct {
	mu       sync.Mutex
	consumed []string
	released []uuid.UUID
}

func (m *fakeMaterials) ConsumeAllForVisit(ctx context.Context, visitID uuid.UUID, performedBy string) ([]matrepo.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed = append(m.consumed, performedBy)
	return nil, nil
}

func (m *fakeMaterials) ReleaseAllForVisit(ctx context.Context, visitID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, visitID)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	sites     *fakeSites
	materials *fakeMaterials
	bus       *recordingBus
}

func newFixture(t *testing.T, profile stubProfile) *fixture {
	t.Helper()
	repo := newFakeRepo()
	sites := &fakeSites{profile: profile, recorded: make(map[uuid.UUID]time.Time)}
	materials := &fakeMaterials{}
	bus := &recordingBus{}
	svc := New(repo, noTx, lock.NewLocal(), sites, materials, bus,
		domain.DefaultPolicy(), logger.New("development"))
	return &fixture{svc: svc, repo: repo, sites: sites, materials: materials, bus: bus}
}

var (
	engineerID = uuid.New()
	managerID  = uuid.New()
)

func engineerActor() Actor {
	return Actor{ID: engineerID, Name: "Omar Haddad", Role: domain.RolePMEngineer}
}

func managerActor() Actor {
	return Actor{ID: managerID, Name: "Lina Aziz", Role: domain.RoleManager}
}

// scheduleAndWork drives a fresh visit through Create, Start, Complete and
// returns it in Completed with a plausible duration.
func scheduleAndWork(t *testing.T, f *fixture) *domain.Visit {
	t.Helper()
	ctx := context.Background()

	siteID := uuid.New()
	visit, err := f.svc.Create(ctx, siteID, engineerID, domain.VisitTypeRoutine,
		time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Start(ctx, visit.ID, engineerActor(), "31.95,35.93"); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.repo.backdateStart(visit.ID, 2*time.Hour)
	completed, err := f.svc.Complete(ctx, visit.ID, engineerActor())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return completed
}

func addFullEvidence(t *testing.T, f *fixture, visitID uuid.UUID, photoCategories, readingCategories []string) {
	t.Helper()
	ctx := context.Background()
	for _, category := range photoCategories {
		for _, phase := range []domain.PhotoPhase{domain.PhotoBefore, domain.PhotoAfter} {
			if _, err := f.svc.AddPhoto(ctx, visitID, engineerActor(), PhotoParams{
				Category: category, Phase: phase, Width: 640, Height: 480,
				StorageKey: fmt.Sprintf("visits/%s/%s-%s.jpg", visitID, category, phase),
			}); err != nil {
				t.Fatalf("add %s %s photo: %v", category, phase, err)
			}
		}
	}
	for _, category := range readingCategories {
		value := 50.0 // inside every default voltage range
		if _, err := f.svc.AddReading(ctx, visitID, engineerActor(), category, value, "V"); err != nil {
			t.Fatalf("add %s reading: %v", category, err)
		}
	}
}

func TestCreateAssignsSequentialVisitNumbers(t *testing.T) {
	f := newFixture(t, stubProfile{})
	ctx := context.Background()
	scheduledAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first, err := f.svc.Create(ctx, uuid.New(), engineerID, domain.VisitTypeRoutine, scheduledAt)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.svc.Create(ctx, uuid.New(), engineerID, domain.VisitTypeCorrective, scheduledAt)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.VisitNumber != "V2026000001" || second.VisitNumber != "V2026000002" {
		t.Fatalf("expected sequential numbers, got %s and %s", first.VisitNumber, second.VisitNumber)
	}
	if got := len(f.bus.byName("visits.visit.created")); got != 2 {
		t.Fatalf("expected 2 created events, got %d", got)
	}
}

func TestSubmitBlockedUntilEvidenceComplete(t *testing.T) {
	profile := stubProfile{
		photoCategories:   []string{"Power"},
		readingCategories: []string{"RectifierVoltage"},
	}
	f := newFixture(t, profile)
	ctx := context.Background()

	visit := scheduleAndWork(t, f)

	_, result, err := f.svc.Submit(ctx, visit.ID, engineerActor())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(result.Errors["photos.Power"]) == 0 || len(result.Errors["readings.RectifierVoltage"]) == 0 {
		t.Fatalf("expected photo and reading errors, got %+v", result.Errors)
	}

	current, err := f.svc.Get(ctx, visit.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != domain.StatusCompleted {
		t.Fatalf("failed submission must not change state, got %s", current.Status)
	}
	if len(f.bus.byName("visits.visit.submitted")) != 0 {
		t.Fatal("no submitted event expected for a blocked submission")
	}

	addFullEvidence(t, f, visit.ID, profile.photoCategories, profile.readingCategories)

	submitted, result, err := f.svc.Submit(ctx, visit.ID, engineerActor())
	if err != nil {
		t.Fatalf("submit with full evidence: %v", err)
	}
	if !result.IsValid || submitted.Status != domain.StatusSubmitted {
		t.Fatalf("expected valid submission into Submitted, got %s (%+v)", submitted.Status, result)
	}
	if len(f.bus.byName("visits.visit.submitted")) != 1 {
		t.Fatal("expected exactly one submitted event")
	}
}

func TestOnlyAssignedEngineerEditsEvidence(t *testing.T) {
	f := newFixture(t, stubProfile{})
	ctx := context.Background()
	visit := scheduleAndWork(t, f)

	intruder := Actor{ID: uuid.New(), Name: "Sami Nasser", Role: domain.RolePMEngineer}
	_, err := f.svc.AddPhoto(ctx, visit.ID, intruder, PhotoParams{
		Category: "General", Phase: domain.PhotoBefore, Width: 640, Height: 480,
		StorageKey: "visits/x/general-before.jpg",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for unassigned engineer, got %v", err)
	}

	admin := Actor{ID: uuid.New(), Name: "Root", Role: domain.RoleAdmin}
	if _, err := f.svc.AddIssue(ctx, visit.ID, admin, "corroded busbar", "High"); err != nil {
		t.Fatalf("admin edit should pass, got %v", err)
	}
}

func TestApproveConsumesReservationsAndStampsSite(t *testing.T) {
	f := newFixture(t, stubProfile{})
	ctx := context.Background()
	visit := scheduleAndWork(t, f)

	if _, _, err := f.svc.Submit(ctx, visit.ID, engineerActor()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Engineers cannot claim review.
	if _, err := f.svc.StartReview(ctx, visit.ID, engineerActor()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for engineer review, got %v", err)
	}
	if _, err := f.svc.StartReview(ctx, visit.ID, managerActor()); err != nil {
		t.Fatalf("start review: %v", err)
	}

	if _, err := f.svc.Approve(ctx, visit.ID, engineerActor(), "looks fine"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for engineer approval, got %v", err)
	}
	if len(f.materials.consumed) != 0 {
		t.Fatal("forbidden approval must not consume reservations")
	}

	approved, err := f.svc.Approve(ctx, visit.ID, managerActor(), "good work")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Fatalf("expected Approved, got %s", approved.Status)
	}
	if len(f.materials.consumed) != 1 || f.materials.consumed[0] != "Lina Aziz" {
		t.Fatalf("expected one consumption by the reviewer, got %v", f.materials.consumed)
	}

	stamped, ok := f.sites.recorded[approved.SiteID]
	if !ok {
		t.Fatal("approval must stamp the site's last visit")
	}
	if approved.ActualEndTime != nil && !stamped.Equal(*approved.ActualEndTime) {
		t.Fatalf("site stamped %s, want visit end %s", stamped, *approved.ActualEndTime)
	}

	if len(f.bus.byName("visits.visit.approved")) != 1 {
		t.Fatal("expected one approved event")
	}
	if len(approved.ApprovalHistory) != 1 || approved.ApprovalHistory[0].Action != domain.EventApprove {
		t.Fatalf("expected a single approval history entry, got %+v", approved.ApprovalHistory)
	}
}

func TestRejectRequiresReasonAndReleasesReservations(t *testing.T) {
	f := newFixture(t, stubProfile{})
	ctx := context.Background()
	visit := scheduleAndWork(t, f)

	if _, _, err := f.svc.Submit(ctx, visit.ID, engineerActor()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.StartReview(ctx, visit.ID, managerActor()); err != nil {
		t.Fatalf("start review: %v", err)
	}

	if _, err := f.svc.Reject(ctx, visit.ID, managerActor(), "  "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}
	if len(f.materials.released) != 0 {
		t.Fatal("failed rejection must not release reservations")
	}

	rejected, err := f.svc.Reject(ctx, visit.ID, managerActor(), "after photos show unfinished cabling")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.StatusRejected {
		t.Fatalf("expected Rejected, got %s", rejected.Status)
	}
	if len(f.materials.released) != 1 || f.materials.released[0] != visit.ID {
		t.Fatalf("expected reservations released for the visit, got %v", f.materials.released)
	}
	if len(f.bus.byName("visits.visit.rejected")) != 1 {
		t.Fatal("expected one rejected event")
	}
}

func TestCorrectionReopensEditingAndResubmission(t *testing.T) {
	f := newFixture(t, stubProfile{})
	ctx := context.Background()
	visit := scheduleAndWork(t, f)

	if _, _, err := f.svc.Submit(ctx, visit.ID, engineerActor()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.StartReview(ctx, visit.ID, managerActor()); err != nil {
		t.Fatalf("start review: %v", err)
	}
	corrected, err := f.svc.RequestCorrection(ctx, visit.ID, managerActor(), "retake the rectifier photos")
	if err != nil {
		t.Fatalf("request correction: %v", err)
	}
	if corrected.Status != domain.StatusNeedsCorrection {
		t.Fatalf("expected NeedsCorrection, got %s", corrected.Status)
	}

	// Evidence is editable again during correction.
	if _, err := f.svc.AddPhoto(ctx, visit.ID, engineerActor(), PhotoParams{
		Category: "General", Phase: domain.PhotoAfter, Width: 640, Height: 480,
		StorageKey: "visits/x/general-after-v2.jpg",
	}); err != nil {
		t.Fatalf("add photo during correction: %v", err)
	}

	resubmitted, _, err := f.svc.Submit(ctx, visit.ID, engineerActor())
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.Status != domain.StatusSubmitted {
		t.Fatalf("expected Submitted after correction, got %s", resubmitted.Status)
	}
	if len(f.bus.byName("visits.visit.correction_requested")) != 1 {
		t.Fatal("expected one correction event")
	}
}

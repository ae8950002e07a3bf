// Package service orchestrates the visit lifecycle: scheduling, evidence
// accumulation, completion validation, and the review workflow. Lifecycle
// operations serialize per visit id the same way material operations
// serialize per material id.
package service

import (
	"context"
	"time"

	"telecompm_backend/internal/events"
	matrepo "telecompm_backend/internal/materials/repository"
	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/internal/visits/repository"
	"telecompm_backend/platform/apperr"
	"telecompm_backend/platform/db"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockKeyPrefix = "visit:"

// TxRunner executes fn inside one transaction.
type TxRunner func(ctx context.Context, fn func(tx pgx.Tx) error) error

// NewPoolTxRunner creates a TxRunner backed by a pgx pool.
func NewPoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// Actor identifies who is performing a lifecycle operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

// SiteDirectory is the read/update port into the sites context.
type SiteDirectory interface {
	// EvidenceProfile returns the completion requirements derived from the
	// site's equipment configuration.
	EvidenceProfile(ctx context.Context, siteID uuid.UUID) (domain.SiteEvidenceProfile, error)
	// RecordVisit stamps the site's last-visited timestamp on approval.
	RecordVisit(ctx context.Context, siteID uuid.UUID, at time.Time) error
}

// MaterialProtocol is the port into the material reservation protocol.
type MaterialProtocol interface {
	ConsumeAllForVisit(ctx context.Context, visitID uuid.UUID, performedBy string) ([]matrepo.UsageRecord, error)
	ReleaseAllForVisit(ctx context.Context, visitID uuid.UUID) error
}

// Service provides visit lifecycle operations.
type Service struct {
	repo      repository.Repository
	inTx      TxRunner
	locks     lock.KeyedLocker
	sites     SiteDirectory
	materials MaterialProtocol
	bus       events.Bus
	policy    domain.Policy
	log       *logger.Logger
}

// New creates a new visits service.
func New(repo repository.Repository, inTx TxRunner, locks lock.KeyedLocker,
	sites SiteDirectory, materials MaterialProtocol, bus events.Bus,
	policy domain.Policy, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		inTx:      inTx,
		locks:     locks,
		sites:     sites,
		materials: materials,
		bus:       bus,
		policy:    policy,
		log:       log,
	}
}

// Create schedules a visit with a fresh year-scoped visit number.
func (s *Service) Create(ctx context.Context, siteID, engineerID uuid.UUID, visitType domain.VisitType, scheduledAt time.Time) (*domain.Visit, error) {
	// Site must exist before a number is burned for it.
	if _, err := s.sites.EvidenceProfile(ctx, siteID); err != nil {
		return nil, err
	}

	var visit *domain.Visit
	if err := s.inTx(ctx, func(tx pgx.Tx) error {
		number, err := s.repo.NextVisitNumber(ctx, tx, scheduledAt.Year())
		if err != nil {
			return err
		}
		v, err := domain.NewVisit(number, siteID, engineerID, visitType, scheduledAt)
		if err != nil {
			return err
		}
		visit = v
		return s.repo.Create(ctx, tx, v)
	}); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.VisitCreated{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		SiteID:      siteID,
		EngineerID:  engineerID,
		VisitType:   string(visitType),
		ScheduledAt: scheduledAt,
	})
	return visit, nil
}

// Get retrieves the full visit aggregate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists visits with filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Visit, int, error) {
	return s.repo.List(ctx, params)
}

// Start begins on-site work. Only the assigned engineer (or an admin acting
// on their behalf) may start a visit.
func (s *Service) Start(ctx context.Context, visitID uuid.UUID, actor Actor, location string) (*domain.Visit, error) {
	var visit *domain.Visit
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		if err := v.Start(location); err != nil {
			return err
		}
		visit = v
		return s.repo.Save(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	s.log.VisitTransition(visit.VisitNumber, string(domain.StatusScheduled), string(visit.Status), actor.Name)
	s.bus.Publish(ctx, events.VisitStarted{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		EngineerID:  visit.EngineerID,
		StartedAt:   *visit.ActualStartTime,
	})
	return visit, nil
}

// Complete ends on-site work.
func (s *Service) Complete(ctx context.Context, visitID uuid.UUID, actor Actor) (*domain.Visit, error) {
	var visit *domain.Visit
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		if err := v.Complete(); err != nil {
			return err
		}
		visit = v
		return s.repo.Save(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	s.log.VisitTransition(visit.VisitNumber, string(domain.StatusInProgress), string(visit.Status), actor.Name)
	s.bus.Publish(ctx, events.VisitCompleted{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		EngineerID:  visit.EngineerID,
		Duration:    visit.Duration(),
	})
	return visit, nil
}

// PhotoParams carries photo evidence metadata; the binary lives in object
// storage under StorageKey.
type PhotoParams struct {
	Category   string
	Phase      domain.PhotoPhase
	Width      int
	Height     int
	StorageKey string
	CapturedAt *time.Time
}

// AddPhoto attaches photo evidence to an editable visit.
func (s *Service) AddPhoto(ctx context.Context, visitID uuid.UUID, actor Actor, params PhotoParams) (*domain.Photo, error) {
	var photo domain.Photo
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		p, err := v.AddPhoto(params.Category, params.Phase, params.Width, params.Height, params.StorageKey, params.CapturedAt)
		if err != nil {
			return err
		}
		photo = *p
		return s.repo.AddPhoto(ctx, tx, v.ID, p)
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// AddReading records a sensor measurement on an editable visit.
func (s *Service) AddReading(ctx context.Context, visitID uuid.UUID, actor Actor, category string, value float64, unit string) (*domain.Reading, error) {
	var reading domain.Reading
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		r, err := v.AddReading(category, value, unit)
		if err != nil {
			return err
		}
		reading = *r
		return s.repo.AddReading(ctx, tx, v.ID, r)
	})
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// AddChecklistItem appends a pending task to an editable visit.
func (s *Service) AddChecklistItem(ctx context.Context, visitID uuid.UUID, actor Actor, description string) (*domain.ChecklistItem, error) {
	var item domain.ChecklistItem
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		i, err := v.AddChecklistItem(description)
		if err != nil {
			return err
		}
		item = *i
		return s.repo.AddChecklistItem(ctx, tx, v.ID, i)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ResolveChecklistItem moves a checklist item to a terminal status.
func (s *Service) ResolveChecklistItem(ctx context.Context, visitID, itemID uuid.UUID, actor Actor, status domain.ChecklistStatus, notes string) error {
	return s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		if err := v.ResolveChecklistItem(itemID, status, notes); err != nil {
			return err
		}
		for i := range v.Checklist {
			if v.Checklist[i].ID == itemID {
				return s.repo.UpdateChecklistItem(ctx, tx, v.ID, &v.Checklist[i])
			}
		}
		return apperr.NotFound("checklist item not found")
	})
}

// AddIssue records a problem found on site.
func (s *Service) AddIssue(ctx context.Context, visitID uuid.UUID, actor Actor, description, severity string) (*domain.Issue, error) {
	var issue domain.Issue
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		i, err := v.AddIssue(description, severity)
		if err != nil {
			return err
		}
		issue = *i
		return s.repo.AddIssue(ctx, tx, v.ID, i)
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Validate runs the completion validator without mutating anything, so the
// engineer can see what is missing before submitting.
func (s *Service) Validate(ctx context.Context, visitID uuid.UUID) (domain.ValidationResult, error) {
	v, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	profile, err := s.sites.EvidenceProfile(ctx, v.SiteID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.ValidateCompletion(v, profile, s.policy), nil
}

// Submit validates the visit's evidence and hands it to review. The
// validator's verdict gates the transition; warnings pass through.
func (s *Service) Submit(ctx context.Context, visitID uuid.UUID, actor Actor) (*domain.Visit, domain.ValidationResult, error) {
	var visit *domain.Visit
	var result domain.ValidationResult

	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := requireAssignedEngineer(v, actor); err != nil {
			return err
		}
		profile, err := s.sites.EvidenceProfile(ctx, v.SiteID)
		if err != nil {
			return err
		}
		result = domain.ValidateCompletion(v, profile, s.policy)
		if err := v.Submit(result); err != nil {
			return err
		}
		visit = v
		return s.repo.Save(ctx, tx, v)
	})
	if err != nil {
		return nil, result, err
	}

	for _, warning := range result.Warnings {
		s.log.Warn("visit submitted with warning", "visit_number", visit.VisitNumber, "warning", warning)
	}
	s.log.VisitTransition(visit.VisitNumber, string(domain.StatusCompleted), string(visit.Status), actor.Name)
	s.bus.Publish(ctx, events.VisitSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		SiteID:      visit.SiteID,
		EngineerID:  visit.EngineerID,
	})
	return visit, result, nil
}

// StartReview claims a submitted visit for the reviewer.
func (s *Service) StartReview(ctx context.Context, visitID uuid.UUID, actor Actor) (*domain.Visit, error) {
	var visit *domain.Visit
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		if err := v.StartReview(actor.Role); err != nil {
			return err
		}
		visit = v
		return s.repo.Save(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	s.log.VisitTransition(visit.VisitNumber, string(domain.StatusSubmitted), string(visit.Status), actor.Name)
	return visit, nil
}

// Approve accepts the visit. Reserved materials are consumed so every
// deducted unit traces to this visit, and the site's last-visited timestamp
// is stamped.
func (s *Service) Approve(ctx context.Context, visitID uuid.UUID, actor Actor, notes string) (*domain.Visit, error) {
	visit, err := s.reviewTransition(ctx, visitID, actor, notes, func(v *domain.Visit) error {
		return v.Approve(actor.ID, actor.Name, actor.Role, notes)
	})
	if err != nil {
		return nil, err
	}

	// Consumption runs after the status commit: each material serializes on
	// its own lock, and a consumption failure must not roll back the
	// approval it records.
	if _, err := s.materials.ConsumeAllForVisit(ctx, visitID, actor.Name); err != nil {
		s.log.Error("consuming reservations after approval failed",
			"visit_number", visit.VisitNumber, "error", err)
	}

	visitedAt := time.Now()
	if visit.ActualEndTime != nil {
		visitedAt = *visit.ActualEndTime
	}
	if err := s.sites.RecordVisit(ctx, visit.SiteID, visitedAt); err != nil {
		s.log.Error("recording site visit timestamp failed",
			"visit_number", visit.VisitNumber, "error", err)
	}

	s.bus.Publish(ctx, events.VisitApproved{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      visit.ID,
		VisitNumber:  visit.VisitNumber,
		SiteID:       visit.SiteID,
		EngineerID:   visit.EngineerID,
		ReviewerID:   actor.ID,
		ReviewerName: actor.Name,
	})
	return visit, nil
}

// Reject declines the visit and frees its reserved materials.
func (s *Service) Reject(ctx context.Context, visitID uuid.UUID, actor Actor, reason string) (*domain.Visit, error) {
	visit, err := s.reviewTransition(ctx, visitID, actor, reason, func(v *domain.Visit) error {
		return v.Reject(actor.ID, actor.Name, actor.Role, reason)
	})
	if err != nil {
		return nil, err
	}

	if err := s.materials.ReleaseAllForVisit(ctx, visitID); err != nil {
		s.log.Error("releasing reservations after rejection failed",
			"visit_number", visit.VisitNumber, "error", err)
	}

	s.bus.Publish(ctx, events.VisitRejected{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      visit.ID,
		VisitNumber:  visit.VisitNumber,
		EngineerID:   visit.EngineerID,
		ReviewerID:   actor.ID,
		ReviewerName: actor.Name,
		Reason:       reason,
	})
	return visit, nil
}

// RequestCorrection sends the visit back to the engineer for rework.
func (s *Service) RequestCorrection(ctx context.Context, visitID uuid.UUID, actor Actor, notes string) (*domain.Visit, error) {
	visit, err := s.reviewTransition(ctx, visitID, actor, notes, func(v *domain.Visit) error {
		return v.RequestCorrection(actor.ID, actor.Name, actor.Role, notes)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.VisitCorrectionRequested{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      visit.ID,
		VisitNumber:  visit.VisitNumber,
		EngineerID:   visit.EngineerID,
		ReviewerID:   actor.ID,
		ReviewerName: actor.Name,
		Notes:        notes,
	})
	return visit, nil
}

func (s *Service) reviewTransition(ctx context.Context, visitID uuid.UUID, actor Actor, notes string, apply func(v *domain.Visit) error) (*domain.Visit, error) {
	var visit *domain.Visit
	err := s.withVisit(ctx, visitID, func(tx pgx.Tx, v *domain.Visit) error {
		from := v.Status
		if err := apply(v); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, v); err != nil {
			return err
		}
		if len(v.ApprovalHistory) > 0 {
			entry := &v.ApprovalHistory[len(v.ApprovalHistory)-1]
			if err := s.repo.AddApproval(ctx, tx, v.ID, entry); err != nil {
				return err
			}
		}
		visit = v
		s.log.VisitTransition(v.VisitNumber, string(from), string(v.Status), actor.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) withVisit(ctx context.Context, visitID uuid.UUID, fn func(tx pgx.Tx, v *domain.Visit) error) error {
	release, err := s.locks.Acquire(ctx, lockKeyPrefix+visitID.String())
	if err != nil {
		return err
	}
	defer release()

	return s.inTx(ctx, func(tx pgx.Tx) error {
		v, err := s.repo.GetForUpdate(ctx, tx, visitID)
		if err != nil {
			return err
		}
		return fn(tx, v)
	})
}

func requireAssignedEngineer(v *domain.Visit, actor Actor) error {
	if actor.ID == v.EngineerID || actor.Role == domain.RoleAdmin {
		return nil
	}
	return apperr.Forbidden("only the assigned engineer may modify this visit")
}

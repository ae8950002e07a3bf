// Package service provides engineer account management and the site
// assignment ranking.
package service

import (
	"context"
	"fmt"

	"telecompm_backend/internal/engineers/domain"
	"telecompm_backend/internal/engineers/repository"
	"telecompm_backend/internal/events"
	"telecompm_backend/platform/apperr"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SiteCatalog is the read port into the sites context used by the ranking
// operation.
type SiteCatalog interface {
	// SiteTraits returns the site's ranking traits and its owning office.
	SiteTraits(ctx context.Context, siteID uuid.UUID) (domain.SiteTraits, uuid.UUID, error)
}

// CreateParams carries the inputs for registering an engineer account.
type CreateParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	OfficeID uuid.UUID
	MaxSites *int
}

// Service provides engineer operations.
type Service struct {
	repo  repository.Repository
	sites SiteCatalog
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new engineers service.
func New(repo repository.Repository, sites SiteCatalog, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, sites: sites, bus: bus, log: log}
}

// Create registers an account with a bcrypt-hashed password and a
// normalized phone number.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Engineer, error) {
	if len(params.Password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	e, err := domain.NewEngineer(params.Name, params.Email,
		phone.NormalizeE164(params.Phone), string(hash), params.Role, params.OfficeID, params.MaxSites)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("engineer account created", "email", e.Email, "role", e.Role)
	return e, nil
}

// Get retrieves an engineer including assignments.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Engineer, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves an engineer by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Engineer, error) {
	return s.repo.GetByEmail(ctx, email)
}

// VerifyPassword checks login credentials and returns the account on match.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (*domain.Engineer, error) {
	e, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !e.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return e, nil
}

// List lists engineer accounts.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Engineer, int, error) {
	return s.repo.List(ctx, params)
}

// RankForSite orders the site office's eligible engineers, best first.
func (s *Service) RankForSite(ctx context.Context, siteID uuid.UUID) ([]domain.RankedEngineer, error) {
	traits, officeID, err := s.sites.SiteTraits(ctx, siteID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListCandidates(ctx, officeID)
	if err != nil {
		return nil, err
	}
	return domain.Rank(traits, candidates), nil
}

// AssignSite adds a site to the engineer's assignment set, guarded by
// capacity, and announces the assignment.
func (s *Service) AssignSite(ctx context.Context, engineerID, siteID, assignedBy uuid.UUID) (*domain.Engineer, error) {
	e, err := s.repo.GetByID(ctx, engineerID)
	if err != nil {
		return nil, err
	}
	if err := e.AssignSite(siteID); err != nil {
		return nil, err
	}
	if err := s.repo.AssignSite(ctx, engineerID, siteID); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.SiteAssigned{
		BaseEvent:  events.NewBaseEvent(),
		SiteID:     siteID,
		EngineerID: engineerID,
		AssignedBy: assignedBy,
	})
	return e, nil
}

// UnassignSite removes a site assignment. Idempotent.
func (s *Service) UnassignSite(ctx context.Context, engineerID, siteID uuid.UUID) (*domain.Engineer, error) {
	e, err := s.repo.GetByID(ctx, engineerID)
	if err != nil {
		return nil, err
	}
	e.UnassignSite(siteID)
	if err := s.repo.UnassignSite(ctx, engineerID, siteID); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateProfile replaces capacity, specializations, and rating in one shot.
// Nil rating clears nothing; rating updates come through SetRating.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, maxSites *int, specializations []string) (*domain.Engineer, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.SetCapacity(maxSites); err != nil {
		return nil, err
	}
	e.SetSpecializations(specializations)
	if err := s.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRating records a performance review score.
func (s *Service) SetRating(ctx context.Context, id uuid.UUID, rating float64) (*domain.Engineer, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.SetPerformanceRating(rating); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Deactivate disables an account.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	e.Deactivate()
	return s.repo.Save(ctx, e)
}

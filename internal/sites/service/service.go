// Package service provides site catalog operations and the equipment
// profile reads consumed by the visit workflow and the ranking service.
package service

import (
	"context"
	"fmt"
	"time"

	"telecompm_backend/internal/sites/domain"
	"telecompm_backend/internal/sites/repository"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const signagePixels = 256

// CreateParams carries the inputs for registering a site.
type CreateParams struct {
	Code         string
	Name         string
	Region       string
	OfficeID     uuid.UUID
	Latitude     float64
	Longitude    float64
	Power        domain.PowerConfig
	Transmission domain.TransmissionConfig
	Sharing      bool
	TenantCount  int
	Complexity   domain.Complexity
}

// Service provides site operations.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new sites service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a new site.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Site, error) {
	site, err := domain.NewSite(params.Code, params.Name, params.Region, params.OfficeID,
		params.Latitude, params.Longitude, params.Power, params.Transmission,
		params.Sharing, params.TenantCount, params.Complexity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, site); err != nil {
		return nil, err
	}
	s.log.Info("site registered", "code", site.Code, "region", site.Region)
	return site, nil
}

// Get retrieves a site by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode retrieves a site by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Site, error) {
	return s.repo.GetByCode(ctx, code)
}

// List lists sites with filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Site, int, error) {
	return s.repo.List(ctx, params)
}

// UpdateEquipment replaces the site's equipment configuration, which changes
// the evidence profile for future visits.
func (s *Service) UpdateEquipment(ctx context.Context, id uuid.UUID, power domain.PowerConfig,
	transmission domain.TransmissionConfig, sharing bool, tenantCount int,
	complexity domain.Complexity) (*domain.Site, error) {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	site.Power = power
	site.Transmission = transmission
	site.Sharing = sharing
	site.TenantCount = tenantCount
	if complexity != "" {
		site.Complexity = complexity
	}
	site.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// Deactivate retires a site from new visit scheduling.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	site.Deactivate()
	return s.repo.Save(ctx, site)
}

// RecordVisit stamps the site's last-visited timestamp. Called on visit
// approval.
func (s *Service) RecordVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	site.RecordVisit(at)
	return s.repo.Save(ctx, site)
}

// SignageQR renders the PNG QR label engineers scan at the site gate to pull
// up the site record.
func (s *Service) SignageQR(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	png, err := qrcode.Encode(fmt.Sprintf("telecompm://sites/%s", site.Code), qrcode.Medium, signagePixels)
	if err != nil {
		return nil, "", fmt.Errorf("encode site qr: %w", err)
	}
	return png, site.Code, nil
}

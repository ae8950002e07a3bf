package adapters

import (
	"context"

	engdomain "telecompm_backend/internal/engineers/domain"
	sitesvc "telecompm_backend/internal/sites/service"

	"github.com/google/uuid"
)

// SiteCatalogAdapter exposes site ranking traits to the engineer module.
type SiteCatalogAdapter struct {
	sites *sitesvc.Service
}

func NewSiteCatalogAdapter(sites *sitesvc.Service) *SiteCatalogAdapter {
	return &SiteCatalogAdapter{sites: sites}
}

func (a *SiteCatalogAdapter) SiteTraits(ctx context.Context, siteID uuid.UUID) (engdomain.SiteTraits, uuid.UUID, error) {
	site, err := a.sites.Get(ctx, siteID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return site, site.OfficeID, nil
}

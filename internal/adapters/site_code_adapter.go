package adapters

import (
	"context"

	sitesvc "telecompm_backend/internal/sites/service"

	"github.com/google/uuid"
)

// SiteCodeAdapter resolves human-readable site codes for notification bodies.
type SiteCodeAdapter struct {
	sites *sitesvc.Service
}

func NewSiteCodeAdapter(sites *sitesvc.Service) *SiteCodeAdapter {
	return &SiteCodeAdapter{sites: sites}
}

func (a *SiteCodeAdapter) SiteCode(ctx context.Context, siteID uuid.UUID) (string, error) {
	site, err := a.sites.Get(ctx, siteID)
	if err != nil {
		return "", err
	}
	return site.Code, nil
}

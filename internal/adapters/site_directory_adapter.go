// Package adapters wires modules together without letting them import each
// other. Each adapter translates one module's outbound port onto another
// module's service, keeping the dependency arrows pointed at interfaces.
package adapters

import (
	"context"
	"time"

	sitesvc "telecompm_backend/internal/sites/service"
	visitdomain "telecompm_backend/internal/visits/domain"

	"github.com/google/uuid"
)

// SiteDirectoryAdapter adapts the site registry for the visit workflow. The
// site aggregate itself carries the evidence derivation, so the adapter only
// resolves it.
type SiteDirectoryAdapter struct {
	sites *sitesvc.Service
}

func NewSiteDirectoryAdapter(sites *sitesvc.Service) *SiteDirectoryAdapter {
	return &SiteDirectoryAdapter{sites: sites}
}

func (a *SiteDirectoryAdapter) EvidenceProfile(ctx context.Context, siteID uuid.UUID) (visitdomain.SiteEvidenceProfile, error) {
	site, err := a.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return site, nil
}

func (a *SiteDirectoryAdapter) RecordVisit(ctx context.Context, siteID uuid.UUID, at time.Time) error {
	return a.sites.RecordVisit(ctx, siteID, at)
}

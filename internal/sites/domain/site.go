// Package domain holds the telecom site read model. The site's equipment
// configuration drives which photo and reading evidence a maintenance visit
// must collect, so the profile derivation lives here next to the data.
package domain

import (
	"strings"
	"time"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Complexity tiers a site by its maintenance difficulty.
type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

// PowerConfig describes the site's power equipment.
type PowerConfig struct {
	HasRectifier bool `json:"hasRectifier"`
	HasBatteries bool `json:"hasBatteries"`
	HasGenerator bool `json:"hasGenerator"`
	HasSolar     bool `json:"hasSolar"`
}

// TransmissionConfig describes the site's transmission equipment.
type TransmissionConfig struct {
	HasMicrowave bool `json:"hasMicrowave"`
	HasFiber     bool `json:"hasFiber"`
}

// Site is a telecom site. Visits reference it; the ranking service reads its
// traits; approval stamps its last-visited timestamp.
type Site struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Region        string             `json:"region"`
	OfficeID      uuid.UUID          `json:"officeId"`
	Latitude      float64            `json:"latitude"`
	Longitude     float64            `json:"longitude"`
	Power         PowerConfig        `json:"power"`
	Transmission  TransmissionConfig `json:"transmission"`
	Sharing       bool               `json:"sharing"`
	TenantCount   int                `json:"tenantCount"`
	Complexity    Complexity         `json:"complexity"`
	IsActive      bool               `json:"isActive"`
	LastVisitedAt *time.Time         `json:"lastVisitedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NewSite creates a site. Codes are uppercase-normalized and unique per
// network.
func NewSite(code, name, region string, officeID uuid.UUID, lat, lon float64,
	power PowerConfig, transmission TransmissionConfig, sharing bool, tenantCount int,
	complexity Complexity) (*Site, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validation("site code is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("site name is required")
	}
	if officeID == uuid.Nil {
		return nil, apperr.Validation("office id is required")
	}
	switch complexity {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
	case "":
		complexity = ComplexityLow
	default:
		return nil, apperr.Validation("unknown complexity tier")
	}
	if sharing && tenantCount < 1 {
		return nil, apperr.Validation("a sharing site must have at least one tenant")
	}

	now := time.Now()
	return &Site{
		ID:           uuid.New(),
		Code:         code,
		Name:         name,
		Region:       region,
		OfficeID:     officeID,
		Latitude:     lat,
		Longitude:    lon,
		Power:        power,
		Transmission: transmission,
		Sharing:      sharing,
		TenantCount:  tenantCount,
		Complexity:   complexity,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// RequiredPhotoCategories derives the mandatory photo evidence categories
// from the equipment configuration. Order is stable.
func (s *Site) RequiredPhotoCategories() []string {
	categories := []string{"General", "Power"}
	if s.Power.HasGenerator {
		categories = append(categories, "Generator")
	}
	if s.Power.HasSolar {
		categories = append(categories, "Solar")
	}
	if s.Sharing {
		categories = append(categories, "Sharing")
	}
	if s.Transmission.HasMicrowave || s.Transmission.HasFiber {
		categories = append(categories, "Transmission")
	}
	return categories
}

// ApplicableReadingCategories derives which sensor reading categories a
// visit to this site must record.
func (s *Site) ApplicableReadingCategories() []string {
	categories := []string{"RoomTemperature"}
	if s.Power.HasRectifier {
		categories = append(categories, "RectifierVoltage")
	}
	if s.Power.HasBatteries {
		categories = append(categories, "BatteryVoltage")
	}
	if s.Power.HasGenerator {
		categories = append(categories, "GeneratorFuelLevel", "GeneratorRunHours")
	}
	if s.Power.HasSolar {
		categories = append(categories, "SolarOutputKw")
	}
	if s.Complexity == ComplexityHigh {
		categories = append(categories, "TowerTilt")
	}
	return categories
}

// RecordVisit stamps the last-visited timestamp. Earlier timestamps never
// move it backwards, so out-of-order approvals are harmless.
func (s *Site) RecordVisit(at time.Time) {
	if s.LastVisitedAt != nil && s.LastVisitedAt.After(at) {
		return
	}
	s.LastVisitedAt = &at
	s.UpdatedAt = time.Now()
}

// Deactivate retires the site from new visit scheduling.
func (s *Site) Deactivate() {
	s.IsActive = false
	s.UpdatedAt = time.Now()
}

// Trait accessors read by the engineer ranking service.

func (s *Site) HasSolar() bool         { return s.Power.HasSolar }
func (s *Site) HasGenerator() bool     { return s.Power.HasGenerator }
func (s *Site) IsSharingEnabled() bool { return s.Sharing }
func (s *Site) IsComplex() bool        { return s.Complexity == ComplexityHigh }

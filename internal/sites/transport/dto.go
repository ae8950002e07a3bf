package transport

import (
	"time"

	"telecompm_backend/internal/sites/domain"

	"github.com/google/uuid"
)

type PowerConfigDTO struct {
	HasRectifier bool `json:"hasRectifier"`
	HasBatteries bool `json:"hasBatteries"`
	HasGenerator bool `json:"hasGenerator"`
	HasSolar     bool `json:"hasSolar"`
}

type TransmissionConfigDTO struct {
	HasMicrowave bool `json:"hasMicrowave"`
	HasFiber     bool `json:"hasFiber"`
}

type CreateSiteRequest struct {
	Code         string                `json:"code" validate:"required,min=1,max=50"`
	Name         string                `json:"name" validate:"required,min=1,max=200"`
	Region       string                `json:"region" validate:"max=100"`
	OfficeID     uuid.UUID             `json:"officeId" validate:"required"`
	Latitude     float64               `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64               `json:"longitude" validate:"min=-180,max=180"`
	Power        PowerConfigDTO        `json:"power"`
	Transmission TransmissionConfigDTO `json:"transmission"`
	Sharing      bool                  `json:"sharing"`
	TenantCount  int                   `json:"tenantCount" validate:"min=0"`
	Complexity   string                `json:"complexity" validate:"omitempty,oneof=Low Medium High"`
}

type UpdateEquipmentRequest struct {
	Power        PowerConfigDTO        `json:"power"`
	Transmission TransmissionConfigDTO `json:"transmission"`
	Sharing      bool                  `json:"sharing"`
	TenantCount  int                   `json:"tenantCount" validate:"min=0"`
	Complexity   string                `json:"complexity" validate:"omitempty,oneof=Low Medium High"`
}

type ListSitesRequest struct {
	Search     string `form:"search" validate:"max=100"`
	Region     string `form:"region" validate:"max=100"`
	OfficeID   string `form:"officeId" validate:"omitempty,uuid"`
	Complexity string `form:"complexity" validate:"omitempty,oneof=Low Medium High"`
	ActiveOnly bool   `form:"activeOnly"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type SiteResponse struct {
	ID                uuid.UUID             `json:"id"`
	Code              string                `json:"code"`
	Name              string                `json:"name"`
	Region            string                `json:"region"`
	OfficeID          uuid.UUID             `json:"officeId"`
	Latitude          float64               `json:"latitude"`
	Longitude         float64               `json:"longitude"`
	Power             PowerConfigDTO        `json:"power"`
	Transmission      TransmissionConfigDTO `json:"transmission"`
	Sharing           bool                  `json:"sharing"`
	TenantCount       int                   `json:"tenantCount"`
	Complexity        string                `json:"complexity"`
	IsActive          bool                  `json:"isActive"`
	PhotoCategories   []string              `json:"photoCategories"`
	ReadingCategories []string              `json:"readingCategories"`
	LastVisitedAt     *string               `json:"lastVisitedAt,omitempty"`
	CreatedAt         string                `json:"createdAt"`
	UpdatedAt         string                `json:"updatedAt"`
}

type SiteListResponse struct {
	Items      []SiteResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// FromSite maps the site to its API representation, including the derived
// evidence profile so clients can show engineers what a visit will require.
func FromSite(s *domain.Site) SiteResponse {
	resp := SiteResponse{
		ID:       s.ID,
		Code:     s.Code,
		Name:     s.Name,
		Region:   s.Region,
		OfficeID: s.OfficeID,
		Latitude: s.Latitude, Longitude: s.Longitude,
		Power: PowerConfigDTO{
			HasRectifier: s.Power.HasRectifier,
			HasBatteries: s.Power.HasBatteries,
			HasGenerator: s.Power.HasGenerator,
			HasSolar:     s.Power.HasSolar,
		},
		Transmission: TransmissionConfigDTO{
			HasMicrowave: s.Transmission.HasMicrowave,
			HasFiber:     s.Transmission.HasFiber,
		},
		Sharing:           s.Sharing,
		TenantCount:       s.TenantCount,
		Complexity:        string(s.Complexity),
		IsActive:          s.IsActive,
		PhotoCategories:   s.RequiredPhotoCategories(),
		ReadingCategories: s.ApplicableReadingCategories(),
		CreatedAt:         s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         s.UpdatedAt.Format(time.RFC3339),
	}
	if s.LastVisitedAt != nil {
		str := s.LastVisitedAt.Format(time.RFC3339)
		resp.LastVisitedAt = &str
	}
	return resp
}

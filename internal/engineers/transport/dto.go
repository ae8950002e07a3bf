package transport

import (
	"time"

	"telecompm_backend/internal/engineers/domain"

	"github.com/google/uuid"
)

type CreateEngineerRequest struct {
	Name     string    `json:"name" validate:"required,min=1,max=200"`
	Email    string    `json:"email" validate:"required,email"`
	Phone    string    `json:"phone" validate:"max=20"`
	Password string    `json:"password" validate:"required,min=8,max=128"`
	Role     string    `json:"role" validate:"required,oneof=Admin Manager PMEngineer"`
	OfficeID uuid.UUID `json:"officeId" validate:"required"`
	MaxSites *int      `json:"maxSites,omitempty" validate:"omitempty,min=0"`
}

type UpdateProfileRequest struct {
	MaxSites        *int     `json:"maxSites,omitempty" validate:"omitempty,min=0"`
	Specializations []string `json:"specializations" validate:"dive,max=100"`
}

type SetRatingRequest struct {
	Rating float64 `json:"rating" validate:"min=0,max=5"`
}

type AssignSiteRequest struct {
	SiteID uuid.UUID `json:"siteId" validate:"required"`
}

type ListEngineersRequest struct {
	Search     string `form:"search" validate:"max=100"`
	Role       string `form:"role" validate:"omitempty,oneof=Admin Manager PMEngineer"`
	OfficeID   string `form:"officeId" validate:"omitempty,uuid"`
	ActiveOnly bool   `form:"activeOnly"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type EngineerResponse struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Phone              string      `json:"phone,omitempty"`
	Role               string      `json:"role"`
	OfficeID           uuid.UUID   `json:"officeId"`
	MaxAssignableSites *int        `json:"maxAssignableSites,omitempty"`
	Specializations    []string    `json:"specializations,omitempty"`
	PerformanceRating  *float64    `json:"performanceRating,omitempty"`
	AssignedSiteIDs    []uuid.UUID `json:"assignedSiteIds,omitempty"`
	CanTakeMoreSites   bool        `json:"canTakeMoreSites"`
	IsActive           bool        `json:"isActive"`
	CreatedAt          string      `json:"createdAt"`
	UpdatedAt          string      `json:"updatedAt"`
}

type EngineerListResponse struct {
	Items      []EngineerResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

type RankedEngineerResponse struct {
	Engineer EngineerResponse `json:"engineer"`
	Score    float64          `json:"score"`
}

// FromEngineer maps the aggregate to its API representation. The password
// hash never leaves the service layer.
func FromEngineer(e *domain.Engineer) EngineerResponse {
	return EngineerResponse{
		ID:                 e.ID,
		Name:               e.Name,
		Email:              e.Email,
		Phone:              e.Phone,
		Role:               e.Role,
		OfficeID:           e.OfficeID,
		MaxAssignableSites: e.MaxAssignableSites,
		Specializations:    e.Specializations,
		PerformanceRating:  e.PerformanceRating,
		AssignedSiteIDs:    e.AssignedSiteIDs,
		CanTakeMoreSites:   e.CanBeAssignedMoreSites(),
		IsActive:           e.IsActive,
		CreatedAt:          e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          e.UpdatedAt.Format(time.RFC3339),
	}
}

// FromRanked maps a ranked candidate to its API representation.
func FromRanked(r domain.RankedEngineer) RankedEngineerResponse {
	return RankedEngineerResponse{
		Engineer: FromEngineer(&r.Engineer),
		Score:    r.Score,
	}
}

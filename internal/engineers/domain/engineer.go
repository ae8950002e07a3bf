// Package domain holds the engineer aggregate and the site-assignment
// ranking algorithm.
package domain

import (
	"fmt"
	"strings"
	"time"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Role names mirrored from the JWT claims.
const (
	RoleAdmin      = "Admin"
	RoleManager    = "Manager"
	RolePMEngineer = "PMEngineer"
)

// Specialization tags granted weight by the ranking algorithm.
const (
	SpecSolar     = "Solar Sites"
	SpecSharing   = "Sharing Sites"
	SpecGenerator = "Generator Sites"
	SpecComplex   = "Complex Sites"
)

// Engineer is a system user. Capacity, specialization, and assignment state
// are meaningful only for the PMEngineer role.
type Engineer struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Phone              string      `json:"phone,omitempty"`
	PasswordHash       string      `json:"-"`
	Role               string      `json:"role"`
	OfficeID           uuid.UUID   `json:"officeId"`
	MaxAssignableSites *int        `json:"maxAssignableSites,omitempty"`
	Specializations    []string    `json:"specializations,omitempty"`
	PerformanceRating  *float64    `json:"performanceRating,omitempty"`
	AssignedSiteIDs    []uuid.UUID `json:"assignedSiteIds,omitempty"`
	IsActive           bool        `json:"isActive"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// NewEngineer creates a user account. The password hash is produced by the
// service layer; nil maxSites means unlimited capacity.
func NewEngineer(name, email, phone, passwordHash, role string, officeID uuid.UUID, maxSites *int) (*Engineer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	switch role {
	case RoleAdmin, RoleManager, RolePMEngineer:
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if officeID == uuid.Nil {
		return nil, apperr.Validation("office id is required")
	}
	if maxSites != nil && *maxSites < 0 {
		return nil, apperr.Validation("maximum assignable sites cannot be negative")
	}

	now := time.Now()
	return &Engineer{
		ID:                 uuid.New(),
		Name:               name,
		Email:              email,
		Phone:              phone,
		PasswordHash:       passwordHash,
		Role:               role,
		OfficeID:           officeID,
		MaxAssignableSites: maxSites,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanBeAssignedMoreSites reports whether another site fits under the
// engineer's capacity. Non-engineers carry no assignment state and always
// report false.
func (e *Engineer) CanBeAssignedMoreSites() bool {
	if e.Role != RolePMEngineer || !e.IsActive {
		return false
	}
	if e.MaxAssignableSites == nil {
		return true
	}
	return len(e.AssignedSiteIDs) < *e.MaxAssignableSites
}

// AssignSite adds a site to the engineer's assignment set, guarded by role
// and capacity. Assigning an already assigned site is a no-op.
func (e *Engineer) AssignSite(siteID uuid.UUID) error {
	if e.Role != RolePMEngineer {
		return apperr.Validation("only engineers carry site assignments")
	}
	for _, id := range e.AssignedSiteIDs {
		if id == siteID {
			return nil
		}
	}
	if !e.CanBeAssignedMoreSites() {
		return apperr.Conflict("engineer is at maximum assignable sites")
	}
	e.AssignedSiteIDs = append(e.AssignedSiteIDs, siteID)
	e.UpdatedAt = time.Now()
	return nil
}

// UnassignSite removes a site from the assignment set. Idempotent.
func (e *Engineer) UnassignSite(siteID uuid.UUID) {
	for i, id := range e.AssignedSiteIDs {
		if id == siteID {
			e.AssignedSiteIDs = append(e.AssignedSiteIDs[:i], e.AssignedSiteIDs[i+1:]...)
			e.UpdatedAt = time.Now()
			return
		}
	}
}

// SetPerformanceRating records a review score between 0 and 5.
func (e *Engineer) SetPerformanceRating(rating float64) error {
	if rating < 0 || rating > 5 {
		return apperr.Validation("performance rating must be between 0 and 5")
	}
	e.PerformanceRating = &rating
	e.UpdatedAt = time.Now()
	return nil
}

// SetSpecializations replaces the specialization tag set.
func (e *Engineer) SetSpecializations(tags []string) {
	e.Specializations = tags
	e.UpdatedAt = time.Now()
}

// SetCapacity replaces the maximum assignable sites; nil means unlimited.
// Lowering below the current assignment count is allowed, it only blocks
// further assignments.
func (e *Engineer) SetCapacity(maxSites *int) error {
	if maxSites != nil && *maxSites < 0 {
		return apperr.Validation("maximum assignable sites cannot be negative")
	}
	e.MaxAssignableSites = maxSites
	e.UpdatedAt = time.Now()
	return nil
}

// HasSpecialization reports whether the engineer carries the tag.
func (e *Engineer) HasSpecialization(tag string) bool {
	for _, t := range e.Specializations {
		if t == tag {
			return true
		}
	}
	return false
}

// Deactivate disables the account.
func (e *Engineer) Deactivate() {
	e.IsActive = false
	e.UpdatedAt = time.Now()
}

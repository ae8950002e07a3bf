package transport

import (
	"time"

	"telecompm_backend/internal/materials/domain"
	"telecompm_backend/internal/materials/repository"

	"github.com/google/uuid"
)

type CreateMaterialRequest struct {
	Code          string    `json:"code" validate:"required,min=1,max=50"`
	Name          string    `json:"name" validate:"required,min=1,max=200"`
	Description   string    `json:"description,omitempty" validate:"max=1000"`
	Category      string    `json:"category,omitempty" validate:"max=100"`
	OfficeID      uuid.UUID `json:"officeId" validate:"required"`
	InitialStock  float64   `json:"initialStock" validate:"min=0"`
	MinimumStock  float64   `json:"minimumStock" validate:"min=0"`
	Unit          string    `json:"unit" validate:"required,uom"`
	UnitCostCents int64     `json:"unitCostCents" validate:"min=0"`
}

type StockChangeRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Unit     string  `json:"unit" validate:"required,uom"`
}

type AdjustStockRequest struct {
	NewQuantity float64 `json:"newQuantity" validate:"min=0"`
	Unit        string  `json:"unit" validate:"required,uom"`
	Reason      string  `json:"reason" validate:"required,min=3,max=500"`
}

type ReserveRequest struct {
	VisitID  uuid.UUID `json:"visitId" validate:"required"`
	Quantity float64   `json:"quantity" validate:"required,gt=0"`
	Unit     string    `json:"unit" validate:"required,uom"`
}

type ConsumeRequest struct {
	VisitID uuid.UUID `json:"visitId" validate:"required"`
}

type ReleaseRequest struct {
	VisitID uuid.UUID `json:"visitId" validate:"required"`
}

type ListMaterialsRequest struct {
	Search    string `form:"search" validate:"max=100"`
	Category  string `form:"category" validate:"max=100"`
	OfficeID  string `form:"officeId" validate:"omitempty,uuid"`
	LowStock  bool   `form:"lowStock"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=name code currentStock createdAt updatedAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type QuantityResponse struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type MaterialResponse struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Category        string           `json:"category,omitempty"`
	OfficeID        uuid.UUID        `json:"officeId"`
	CurrentStock    QuantityResponse `json:"currentStock"`
	MinimumStock    QuantityResponse `json:"minimumStock"`
	UnitCostCents   int64            `json:"unitCostCents"`
	IsActive        bool             `json:"isActive"`
	IsLowStock      bool             `json:"isLowStock"`
	LastRestockedAt *string          `json:"lastRestockedAt,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

type MaterialListResponse struct {
	Items      []MaterialResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

type ReservationResponse struct {
	ID         uuid.UUID        `json:"id"`
	MaterialID uuid.UUID        `json:"materialId"`
	VisitID    uuid.UUID        `json:"visitId"`
	Quantity   QuantityResponse `json:"quantity"`
	ReservedAt string           `json:"reservedAt"`
	Consumed   bool             `json:"consumed"`
}

type UsageResponse struct {
	ID             uuid.UUID `json:"id"`
	VisitID        uuid.UUID `json:"visitId"`
	MaterialID     uuid.UUID `json:"materialId"`
	MaterialCode   string    `json:"materialCode"`
	MaterialName   string    `json:"materialName"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	UnitCostCents  int64     `json:"unitCostCents"`
	TotalCostCents int64     `json:"totalCostCents"`
	UsedAt         string    `json:"usedAt"`
}

// FromMaterial maps the aggregate to its API representation.
func FromMaterial(m *domain.Material) MaterialResponse {
	resp := MaterialResponse{
		ID:            m.ID,
		Code:          m.Code,
		Name:          m.Name,
		Description:   m.Description,
		Category:      m.Category,
		OfficeID:      m.OfficeID,
		CurrentStock:  QuantityResponse{Value: m.CurrentStock.Value, Unit: m.CurrentStock.Unit},
		MinimumStock:  QuantityResponse{Value: m.MinimumStock.Value, Unit: m.MinimumStock.Unit},
		UnitCostCents: m.UnitCostCents,
		IsActive:      m.IsActive,
		IsLowStock:    m.IsLowStock(),
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     m.UpdatedAt.Format(time.RFC3339),
	}
	if m.LastRestockedAt != nil {
		s := m.LastRestockedAt.Format(time.RFC3339)
		resp.LastRestockedAt = &s
	}
	return resp
}

// FromReservation maps a reservation to its API representation.
func FromReservation(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		MaterialID: r.MaterialID,
		VisitID:    r.VisitID,
		Quantity:   QuantityResponse{Value: r.Quantity.Value, Unit: r.Quantity.Unit},
		ReservedAt: r.ReservedAt.Format(time.RFC3339),
		Consumed:   r.Consumed,
	}
}

// FromUsage maps a usage record to its API representation.
func FromUsage(u repository.UsageRecord) UsageResponse {
	return UsageResponse{
		ID:             u.ID,
		VisitID:        u.VisitID,
		MaterialID:     u.MaterialID,
		MaterialCode:   u.MaterialCode,
		MaterialName:   u.MaterialName,
		Quantity:       u.Quantity,
		Unit:           u.Unit,
		UnitCostCents:  u.UnitCostCents,
		TotalCostCents: u.TotalCostCents,
		UsedAt:         u.UsedAt.Format(time.RFC3339),
	}
}

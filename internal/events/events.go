// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"telecompm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Material Domain Events
// =============================================================================

// LowStockAlert is published when a deduction leaves a material at or below
// its minimum stock threshold. It is a signal, never an error: the deduction
// that triggered it has already been applied.
type LowStockAlert struct {
	BaseEvent
	MaterialID   uuid.UUID `json:"materialId"`
	MaterialName string    `json:"materialName"`
	OfficeID     uuid.UUID `json:"officeId"`
	CurrentStock float64   `json:"currentStock"`
	MinimumStock float64   `json:"minimumStock"`
	Unit         string    `json:"unit"`
}

func (e LowStockAlert) EventName() string { return "materials.stock.low" }

// MaterialReserved is published when a soft hold is placed for a visit.
type MaterialReserved struct {
	BaseEvent
	MaterialID uuid.UUID `json:"materialId"`
	VisitID    uuid.UUID `json:"visitId"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
}

func (e MaterialReserved) EventName() string { return "materials.reservation.created" }

// MaterialConsumed is published when a reservation is converted into an
// actual stock deduction plus a permanent usage record.
type MaterialConsumed struct {
	BaseEvent
	MaterialID     uuid.UUID `json:"materialId"`
	VisitID        uuid.UUID `json:"visitId"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	TotalCostCents int64     `json:"totalCostCents"`
	PerformedBy    string    `json:"performedBy"`
}

func (e MaterialConsumed) EventName() string { return "materials.reservation.consumed" }

// MaterialReservationReleased is published when an unconsumed hold is freed.
type MaterialReservationReleased struct {
	BaseEvent
	MaterialID uuid.UUID `json:"materialId"`
	VisitID    uuid.UUID `json:"visitId"`
}

func (e MaterialReservationReleased) EventName() string { return "materials.reservation.released" }

// StockAdjusted is published on an administrative stock overwrite.
type StockAdjusted struct {
	BaseEvent
	MaterialID  uuid.UUID `json:"materialId"`
	OldQuantity float64   `json:"oldQuantity"`
	NewQuantity float64   `json:"newQuantity"`
	Reason      string    `json:"reason"`
	PerformedBy string    `json:"performedBy"`
}

func (e StockAdjusted) EventName() string { return "materials.stock.adjusted" }

// =============================================================================
// Visit Domain Events
// =============================================================================

// VisitCreated is published when a visit is scheduled.
type VisitCreated struct {
	BaseEvent
	VisitID     uuid.UUID `json:"visitId"`
	VisitNumber string    `json:"visitNumber"`
	SiteID      uuid.UUID `json:"siteId"`
	EngineerID  uuid.UUID `json:"engineerId"`
	VisitType   string    `json:"visitType"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (e VisitCreated) EventName() string { return "visits.visit.created" }

// VisitStarted is published when an engineer begins work on site.
type VisitStarted struct {
	BaseEvent
	VisitID     uuid.UUID `json:"visitId"`
	VisitNumber string    `json:"visitNumber"`
	EngineerID  uuid.UUID `json:"engineerId"`
	StartedAt   time.Time `json:"startedAt"`
}

func (e VisitStarted) EventName() string { return "visits.visit.started" }

// VisitCompleted is published when on-site work finishes.
type VisitCompleted struct {
	BaseEvent
	VisitID     uuid.UUID     `json:"visitId"`
	VisitNumber string        `json:"visitNumber"`
	EngineerID  uuid.UUID     `json:"engineerId"`
	Duration    time.Duration `json:"duration"`
}

func (e VisitCompleted) EventName() string { return "visits.visit.completed" }

// VisitSubmitted is published when an engineer submits a completed visit for review.
type VisitSubmitted struct {
	BaseEvent
	VisitID     uuid.UUID `json:"visitId"`
	VisitNumber string    `json:"visitNumber"`
	SiteID      uuid.UUID `json:"siteId"`
	EngineerID  uuid.UUID `json:"engineerId"`
}

func (e VisitSubmitted) EventName() string { return "visits.visit.submitted" }

// VisitApproved is published when a reviewer approves a submitted visit.
type VisitApproved struct {
	BaseEvent
	VisitID      uuid.UUID `json:"visitId"`
	VisitNumber  string    `json:"visitNumber"`
	SiteID       uuid.UUID `json:"siteId"`
	EngineerID   uuid.UUID `json:"engineerId"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
}

func (e VisitApproved) EventName() string { return "visits.visit.approved" }

// VisitRejected is published when a reviewer rejects a visit.
type VisitRejected struct {
	BaseEvent
	VisitID      uuid.UUID `json:"visitId"`
	VisitNumber  string    `json:"visitNumber"`
	EngineerID   uuid.UUID `json:"engineerId"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	Reason       string    `json:"reason"`
}

func (e VisitRejected) EventName() string { return "visits.visit.rejected" }

// VisitCorrectionRequested is published when a reviewer sends a visit back
// for correction.
type VisitCorrectionRequested struct {
	BaseEvent
	VisitID      uuid.UUID `json:"visitId"`
	VisitNumber  string    `json:"visitNumber"`
	EngineerID   uuid.UUID `json:"engineerId"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	Notes        string    `json:"notes"`
}

func (e VisitCorrectionRequested) EventName() string { return "visits.visit.correction_requested" }

// =============================================================================
// Assignment Domain Events
// =============================================================================

// SiteAssigned is published when a site is assigned to an engineer.
type SiteAssigned struct {
	BaseEvent
	SiteID     uuid.UUID `json:"siteId"`
	EngineerID uuid.UUID `json:"engineerId"`
	AssignedBy uuid.UUID `json:"assignedBy"`
}

func (e SiteAssigned) EventName() string { return "engineers.site.assigned" }

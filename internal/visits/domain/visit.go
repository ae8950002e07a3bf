// Package domain holds the visit aggregate and its lifecycle state machine.
// The aggregate exposes only legal mutators per state; evidence cannot be
// attached or altered once a visit leaves the editable states.
package domain

import (
	"fmt"
	"strings"
	"time"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Status is a visit lifecycle state.
type Status string

const (
	StatusScheduled       Status = "Scheduled"
	StatusInProgress      Status = "InProgress"
	StatusCompleted       Status = "Completed"
	StatusSubmitted       Status = "Submitted"
	StatusUnderReview     Status = "UnderReview"
	StatusApproved        Status = "Approved"
	StatusRejected        Status = "Rejected"
	StatusNeedsCorrection Status = "NeedsCorrection"
)

// AllStatuses enumerates every lifecycle state, used by exhaustiveness tests.
var AllStatuses = []Status{
	StatusScheduled, StatusInProgress, StatusCompleted, StatusSubmitted,
	StatusUnderReview, StatusApproved, StatusRejected, StatusNeedsCorrection,
}

// Event is a lifecycle transition trigger.
type Event string

const (
	EventStart             Event = "StartVisit"
	EventComplete          Event = "CompleteVisit"
	EventSubmit            Event = "Submit"
	EventStartReview       Event = "StartReview"
	EventApprove           Event = "Approve"
	EventReject            Event = "Reject"
	EventRequestCorrection Event = "RequestCorrection"
)

// AllEvents enumerates every transition trigger, used by exhaustiveness tests.
var AllEvents = []Event{
	EventStart, EventComplete, EventSubmit, EventStartReview,
	EventApprove, EventReject, EventRequestCorrection,
}

// transitions is the single source of truth for the lifecycle. A (state,
// event) pair absent from this table is an invalid transition, full stop.
var transitions = map[Status]map[Event]Status{
	StatusScheduled: {
		EventStart: StatusInProgress,
	},
	StatusInProgress: {
		EventComplete: StatusCompleted,
	},
	StatusCompleted: {
		EventSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		EventStartReview: StatusUnderReview,
	},
	StatusUnderReview: {
		EventApprove:           StatusApproved,
		EventReject:            StatusRejected,
		EventRequestCorrection: StatusNeedsCorrection,
	},
	StatusNeedsCorrection: {
		EventSubmit: StatusSubmitted,
	},
}

// NextStatus returns the target state for (from, event), or false when the
// pair is not in the transition table.
func NextStatus(from Status, event Event) (Status, bool) {
	targets, ok := transitions[from]
	if !ok {
		return "", false
	}
	to, ok := targets[event]
	return to, ok
}

// VisitType classifies a visit and drives which evidence categories are
// mandatory for completion.
type VisitType string

const (
	VisitTypeRoutine    VisitType = "Routine"
	VisitTypeCorrective VisitType = "Corrective"
	VisitTypeEmergency  VisitType = "Emergency"
)

// PhotoPhase marks whether a photo documents the state before or after work.
type PhotoPhase string

const (
	PhotoBefore PhotoPhase = "before"
	PhotoAfter  PhotoPhase = "after"
)

// Photo is a piece of visual evidence attached to a visit.
type Photo struct {
	ID         uuid.UUID  `json:"id"`
	Category   string     `json:"category"`
	Phase      PhotoPhase `json:"phase"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	StorageKey string     `json:"storageKey"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// Reading is a sensor measurement recorded on site.
type Reading struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Value    float64   `json:"value"`
	Unit     string    `json:"unit"`
	ReadAt   time.Time `json:"readAt"`
}

// ChecklistStatus is the resolution state of a checklist item. Every status
// except Pending is terminal.
type ChecklistStatus string

const (
	ChecklistPending       ChecklistStatus = "Pending"
	ChecklistCompleted     ChecklistStatus = "Completed"
	ChecklistNotApplicable ChecklistStatus = "NotApplicable"
	ChecklistFailed        ChecklistStatus = "Failed"
)

// ChecklistItem is one task on the visit's work checklist.
type ChecklistItem struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Status      ChecklistStatus `json:"status"`
	Notes       string          `json:"notes,omitempty"`
}

// Issue is a problem found during the visit.
type Issue struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	ReportedAt  time.Time `json:"reportedAt"`
}

// ApprovalEntry is one reviewer action in the visit's ordered review history.
type ApprovalEntry struct {
	ID           uuid.UUID `json:"id"`
	Action       Event     `json:"action"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	Notes        string    `json:"notes,omitempty"`
	ActedAt      time.Time `json:"actedAt"`
}

// Visit is the preventive maintenance visit aggregate. It exclusively owns
// its photos, readings, checklist, issues, and approval history.
type Visit struct {
	ID              uuid.UUID       `json:"id"`
	VisitNumber     string          `json:"visitNumber"`
	SiteID          uuid.UUID       `json:"siteId"`
	EngineerID      uuid.UUID       `json:"engineerId"`
	Type            VisitType       `json:"type"`
	Status          Status          `json:"status"`
	ScheduledAt     time.Time       `json:"scheduledAt"`
	StartLocation   string          `json:"startLocation,omitempty"`
	ActualStartTime *time.Time      `json:"actualStartTime,omitempty"`
	ActualEndTime   *time.Time      `json:"actualEndTime,omitempty"`
	Photos          []Photo         `json:"photos,omitempty"`
	Readings        []Reading       `json:"readings,omitempty"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
	Issues          []Issue         `json:"issues,omitempty"`
	ApprovalHistory []ApprovalEntry `json:"approvalHistory,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewVisit schedules a visit. The visit number comes from the store's
// year-scoped sequence and is assigned by the caller.
func NewVisit(visitNumber string, siteID, engineerID uuid.UUID, visitType VisitType, scheduledAt time.Time) (*Visit, error) {
	if visitNumber == "" {
		return nil, apperr.Validation("visit number is required")
	}
	if siteID == uuid.Nil {
		return nil, apperr.Validation("site id is required")
	}
	if engineerID == uuid.Nil {
		return nil, apperr.Validation("engineer id is required")
	}
	switch visitType {
	case VisitTypeRoutine, VisitTypeCorrective, VisitTypeEmergency:
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown visit type %q", visitType))
	}

	now := time.Now()
	return &Visit{
		ID:          uuid.New(),
		VisitNumber: visitNumber,
		SiteID:      siteID,
		EngineerID:  engineerID,
		Type:        visitType,
		Status:      StatusScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanBeEdited reports whether evidence mutators are currently legal.
// NeedsCorrection re-enters the edit phase so the engineer can fix findings.
func (v *Visit) CanBeEdited() bool {
	switch v.Status {
	case StatusInProgress, StatusCompleted, StatusNeedsCorrection:
		return true
	}
	return false
}

// CanBeSubmitted mirrors the Submit guard's state precondition.
func (v *Visit) CanBeSubmitted() bool {
	_, ok := NextStatus(v.Status, EventSubmit)
	return ok
}

// Start begins on-site work, recording the engineer's reported location.
func (v *Visit) Start(location string) error {
	if err := v.transition(EventStart); err != nil {
		return err
	}
	now := time.Now()
	v.ActualStartTime = &now
	v.StartLocation = location
	return nil
}

// Complete ends on-site work. The actual start time must have been recorded.
func (v *Visit) Complete() error {
	if _, ok := NextStatus(v.Status, EventComplete); !ok {
		return apperr.InvalidTransition(string(v.Status), string(EventComplete))
	}
	if v.ActualStartTime == nil {
		return apperr.InvalidTransition(string(v.Status), string(EventComplete)).
			WithDetails("actual start time has not been recorded")
	}
	if err := v.transition(EventComplete); err != nil {
		return err
	}
	now := time.Now()
	v.ActualEndTime = &now
	return nil
}

// Submit freezes evidence and hands the visit to review. The caller runs the
// completion validator first and passes its verdict; an invalid report blocks
// the transition without changing state.
func (v *Visit) Submit(validation ValidationResult) error {
	if _, ok := NextStatus(v.Status, EventSubmit); !ok {
		return apperr.InvalidTransition(string(v.Status), string(EventSubmit))
	}
	if !validation.IsValid {
		return apperr.Validation("visit does not meet completion requirements").
			WithDetails(validation.Errors)
	}
	return v.transition(EventSubmit)
}

// StartReview claims the submitted visit for a reviewer.
func (v *Visit) StartReview(reviewerRole string) error {
	if !Allowed(reviewerRole, ActionStartReview) {
		return apperr.Forbidden(fmt.Sprintf("role %s may not review visits", reviewerRole))
	}
	return v.transition(EventStartReview)
}

// Approve accepts the visit's work, appending to the approval history.
func (v *Visit) Approve(reviewerID uuid.UUID, reviewerName, reviewerRole, notes string) error {
	return v.review(EventApprove, ActionApprove, reviewerID, reviewerName, reviewerRole, notes, false)
}

// Reject declines the visit's work. A reason is mandatory.
func (v *Visit) Reject(reviewerID uuid.UUID, reviewerName, reviewerRole, reason string) error {
	return v.review(EventReject, ActionReject, reviewerID, reviewerName, reviewerRole, reason, true)
}

// RequestCorrection sends the visit back to the engineer for rework.
func (v *Visit) RequestCorrection(reviewerID uuid.UUID, reviewerName, reviewerRole, notes string) error {
	return v.review(EventRequestCorrection, ActionRequestCorrection, reviewerID, reviewerName, reviewerRole, notes, false)
}

func (v *Visit) review(event Event, action Action, reviewerID uuid.UUID, reviewerName, reviewerRole, notes string, notesRequired bool) error {
	if !Allowed(reviewerRole, action) {
		return apperr.Forbidden(fmt.Sprintf("role %s may not %s visits", reviewerRole, strings.ToLower(string(event))))
	}
	if notesRequired && strings.TrimSpace(notes) == "" {
		return apperr.Validation("a reason is required")
	}
	if err := v.transition(event); err != nil {
		return err
	}

	v.ApprovalHistory = append(v.ApprovalHistory, ApprovalEntry{
		ID:           uuid.New(),
		Action:       event,
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		Notes:        notes,
		ActedAt:      time.Now(),
	})
	return nil
}

// AddPhoto attaches visual evidence. Legal only in editable states.
func (v *Visit) AddPhoto(category string, phase PhotoPhase, width, height int, storageKey string, capturedAt *time.Time) (*Photo, error) {
	if err := v.requireEditable("add photo"); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, apperr.Validation("photo category is required")
	}
	if phase != PhotoBefore && phase != PhotoAfter {
		return nil, apperr.Validation("photo phase must be before or after")
	}
	if width <= 0 || height <= 0 {
		return nil, apperr.Validation("photo dimensions must be positive")
	}

	photo := Photo{
		ID:         uuid.New(),
		Category:   category,
		Phase:      phase,
		Width:      width,
		Height:     height,
		StorageKey: storageKey,
		CapturedAt: capturedAt,
		UploadedAt: time.Now(),
	}
	v.Photos = append(v.Photos, photo)
	v.UpdatedAt = time.Now()
	return &v.Photos[len(v.Photos)-1], nil
}

// AddReading records a sensor measurement. Legal only in editable states.
func (v *Visit) AddReading(category string, value float64, unit string) (*Reading, error) {
	if err := v.requireEditable("add reading"); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, apperr.Validation("reading category is required")
	}

	reading := Reading{
		ID:       uuid.New(),
		Category: category,
		Value:    value,
		Unit:     unit,
		ReadAt:   time.Now(),
	}
	v.Readings = append(v.Readings, reading)
	v.UpdatedAt = time.Now()
	return &v.Readings[len(v.Readings)-1], nil
}

// AddChecklistItem appends a pending task. Legal only in editable states.
func (v *Visit) AddChecklistItem(description string) (*ChecklistItem, error) {
	if err := v.requireEditable("add checklist item"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperr.Validation("checklist description is required")
	}

	item := ChecklistItem{
		ID:          uuid.New(),
		Description: description,
		Status:      ChecklistPending,
	}
	v.Checklist = append(v.Checklist, item)
	v.UpdatedAt = time.Now()
	return &v.Checklist[len(v.Checklist)-1], nil
}

// ResolveChecklistItem moves an item to a terminal status.
func (v *Visit) ResolveChecklistItem(itemID uuid.UUID, status ChecklistStatus, notes string) error {
	if err := v.requireEditable("resolve checklist item"); err != nil {
		return err
	}
	if status == ChecklistPending {
		return apperr.Validation("checklist resolution must be a terminal status")
	}

	for i := range v.Checklist {
		if v.Checklist[i].ID == itemID {
			v.Checklist[i].Status = status
			v.Checklist[i].Notes = notes
			v.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperr.NotFound("checklist item not found")
}

// AddIssue records a problem found on site. Legal only in editable states.
func (v *Visit) AddIssue(description, severity string) (*Issue, error) {
	if err := v.requireEditable("add issue"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperr.Validation("issue description is required")
	}

	issue := Issue{
		ID:          uuid.New(),
		Description: description,
		Severity:    severity,
		ReportedAt:  time.Now(),
	}
	v.Issues = append(v.Issues, issue)
	v.UpdatedAt = time.Now()
	return &v.Issues[len(v.Issues)-1], nil
}

// Duration returns actual end minus actual start, or zero when either is
// missing.
func (v *Visit) Duration() time.Duration {
	if v.ActualStartTime == nil || v.ActualEndTime == nil {
		return 0
	}
	return v.ActualEndTime.Sub(*v.ActualStartTime)
}

func (v *Visit) transition(event Event) error {
	to, ok := NextStatus(v.Status, event)
	if !ok {
		return apperr.InvalidTransition(string(v.Status), string(event))
	}
	v.Status = to
	v.UpdatedAt = time.Now()
	return nil
}

func (v *Visit) requireEditable(action string) error {
	if !v.CanBeEdited() {
		return apperr.InvalidTransition(string(v.Status), action)
	}
	return nil
}

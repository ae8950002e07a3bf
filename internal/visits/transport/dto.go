package transport

import (
	"time"

	"telecompm_backend/internal/visits/domain"

	"github.com/google/uuid"
)

type CreateVisitRequest struct {
	SiteID      uuid.UUID `json:"siteId" validate:"required"`
	EngineerID  uuid.UUID `json:"engineerId" validate:"required"`
	Type        string    `json:"type" validate:"required,oneof=Routine Corrective Emergency"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

type StartVisitRequest struct {
	Location string `json:"location" validate:"max=200"`
}

type AddPhotoRequest struct {
	Category   string     `json:"category" validate:"required,max=100"`
	Phase      string     `json:"phase" validate:"required,oneof=before after"`
	Width      int        `json:"width" validate:"required,gt=0"`
	Height     int        `json:"height" validate:"required,gt=0"`
	StorageKey string     `json:"storageKey" validate:"required,max=500"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
}

type AddReadingRequest struct {
	Category string  `json:"category" validate:"required,max=100"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit" validate:"max=20"`
}

type AddChecklistItemRequest struct {
	Description string `json:"description" validate:"required,min=3,max=500"`
}

type ResolveChecklistItemRequest struct {
	Status string `json:"status" validate:"required,oneof=Completed NotApplicable Failed"`
	Notes  string `json:"notes" validate:"max=500"`
}

type AddIssueRequest struct {
	Description string `json:"description" validate:"required,min=3,max=1000"`
	Severity    string `json:"severity" validate:"required,oneof=Low Medium High Critical"`
}

type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

type PresignPhotoRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

type PresignPhotoResponse struct {
	URL        string    `json:"url"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type ListVisitsRequest struct {
	SiteID     string `form:"siteId" validate:"omitempty,uuid"`
	EngineerID string `form:"engineerId" validate:"omitempty,uuid"`
	Status     string `form:"status" validate:"omitempty,oneof=Scheduled InProgress Completed Submitted UnderReview Approved Rejected NeedsCorrection"`
	From       string `form:"from" validate:"omitempty"`
	To         string `form:"to" validate:"omitempty"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type PhotoResponse struct {
	ID         uuid.UUID `json:"id"`
	Category   string    `json:"category"`
	Phase      string    `json:"phase"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	StorageKey string    `json:"storageKey"`
	CapturedAt *string   `json:"capturedAt,omitempty"`
	UploadedAt string    `json:"uploadedAt"`
}

type ReadingResponse struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Value    float64   `json:"value"`
	Unit     string    `json:"unit"`
	ReadAt   string    `json:"readAt"`
}

type ChecklistItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

type IssueResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	ReportedAt  string    `json:"reportedAt"`
}

type ApprovalEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	Action       string    `json:"action"`
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	Notes        string    `json:"notes,omitempty"`
	ActedAt      string    `json:"actedAt"`
}

type VisitResponse struct {
	ID              uuid.UUID               `json:"id"`
	VisitNumber     string                  `json:"visitNumber"`
	SiteID          uuid.UUID               `json:"siteId"`
	EngineerID      uuid.UUID               `json:"engineerId"`
	Type            string                  `json:"type"`
	Status          string                  `json:"status"`
	ScheduledAt     string                  `json:"scheduledAt"`
	StartLocation   string                  `json:"startLocation,omitempty"`
	ActualStartTime *string                 `json:"actualStartTime,omitempty"`
	ActualEndTime   *string                 `json:"actualEndTime,omitempty"`
	DurationMinutes float64                 `json:"durationMinutes"`
	CanBeEdited     bool                    `json:"canBeEdited"`
	CanBeSubmitted  bool                    `json:"canBeSubmitted"`
	Photos          []PhotoResponse         `json:"photos,omitempty"`
	Readings        []ReadingResponse       `json:"readings,omitempty"`
	Checklist       []ChecklistItemResponse `json:"checklist,omitempty"`
	Issues          []IssueResponse         `json:"issues,omitempty"`
	ApprovalHistory []ApprovalEntryResponse `json:"approvalHistory,omitempty"`
	CreatedAt       string                  `json:"createdAt"`
	UpdatedAt       string                  `json:"updatedAt"`
}

type VisitListResponse struct {
	Items      []VisitResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

type ValidationResponse struct {
	IsValid  bool                `json:"isValid"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

type SubmitResponse struct {
	Visit      VisitResponse      `json:"visit"`
	Validation ValidationResponse `json:"validation"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// FromVisit maps the aggregate to its API representation.
func FromVisit(v *domain.Visit) VisitResponse {
	resp := VisitResponse{
		ID:              v.ID,
		VisitNumber:     v.VisitNumber,
		SiteID:          v.SiteID,
		EngineerID:      v.EngineerID,
		Type:            string(v.Type),
		Status:          string(v.Status),
		ScheduledAt:     v.ScheduledAt.Format(time.RFC3339),
		StartLocation:   v.StartLocation,
		ActualStartTime: formatTimePtr(v.ActualStartTime),
		ActualEndTime:   formatTimePtr(v.ActualEndTime),
		DurationMinutes: v.Duration().Minutes(),
		CanBeEdited:     v.CanBeEdited(),
		CanBeSubmitted:  v.CanBeSubmitted(),
		CreatedAt:       v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       v.UpdatedAt.Format(time.RFC3339),
	}
	for i := range v.Photos {
		resp.Photos = append(resp.Photos, FromPhoto(&v.Photos[i]))
	}
	for i := range v.Readings {
		resp.Readings = append(resp.Readings, FromReading(&v.Readings[i]))
	}
	for i := range v.Checklist {
		resp.Checklist = append(resp.Checklist, FromChecklistItem(&v.Checklist[i]))
	}
	for i := range v.Issues {
		resp.Issues = append(resp.Issues, FromIssue(&v.Issues[i]))
	}
	for i := range v.ApprovalHistory {
		entry := v.ApprovalHistory[i]
		resp.ApprovalHistory = append(resp.ApprovalHistory, ApprovalEntryResponse{
			ID:           entry.ID,
			Action:       string(entry.Action),
			ReviewerID:   entry.ReviewerID,
			ReviewerName: entry.ReviewerName,
			Notes:        entry.Notes,
			ActedAt:      entry.ActedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// FromPhoto maps photo evidence to its API representation.
func FromPhoto(p *domain.Photo) PhotoResponse {
	return PhotoResponse{
		ID:         p.ID,
		Category:   p.Category,
		Phase:      string(p.Phase),
		Width:      p.Width,
		Height:     p.Height,
		StorageKey: p.StorageKey,
		CapturedAt: formatTimePtr(p.CapturedAt),
		UploadedAt: p.UploadedAt.Format(time.RFC3339),
	}
}

// FromReading maps a reading to its API representation.
func FromReading(r *domain.Reading) ReadingResponse {
	return ReadingResponse{
		ID:       r.ID,
		Category: r.Category,
		Value:    r.Value,
		Unit:     r.Unit,
		ReadAt:   r.ReadAt.Format(time.RFC3339),
	}
}

// FromChecklistItem maps a checklist item to its API representation.
func FromChecklistItem(item *domain.ChecklistItem) ChecklistItemResponse {
	return ChecklistItemResponse{
		ID:          item.ID,
		Description: item.Description,
		Status:      string(item.Status),
		Notes:       item.Notes,
	}
}

// FromIssue maps an issue to its API representation.
func FromIssue(i *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:          i.ID,
		Description: i.Description,
		Severity:    i.Severity,
		ReportedAt:  i.ReportedAt.Format(time.RFC3339),
	}
}

// FromValidation maps the completion validator's report.
func FromValidation(r domain.ValidationResult) ValidationResponse {
	return ValidationResponse{
		IsValid:  r.IsValid,
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
}

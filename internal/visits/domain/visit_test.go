package domain

import (
	"testing"
	"time"

	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
)

func newScheduledVisit(t *testing.T) *Visit {
	t.Helper()
	v, err := NewVisit("V2026000001", uuid.New(), uuid.New(), VisitTypeRoutine, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("new visit: %v", err)
	}
	return v
}

// visitInState force-constructs a visit in the given lifecycle state with the
// timestamps that state implies, for transition enumeration.
func visitInState(t *testing.T, status Status) *Visit {
	t.Helper()
	v := newScheduledVisit(t)
	v.Status = status

	if status != StatusScheduled {
		start := time.Now().Add(-2 * time.Hour)
		v.ActualStartTime = &start
	}
	if status != StatusScheduled && status != StatusInProgress {
		end := time.Now().Add(-time.Hour)
		v.ActualEndTime = &end
	}
	return v
}

// applyEvent drives the aggregate with permissive inputs so only the state
// machine itself decides the outcome.
func applyEvent(v *Visit, event Event) error {
	reviewer := uuid.New()
	switch event {
	case EventStart:
		return v.Start("30.0444,31.2357")
	case EventComplete:
		return v.Complete()
	case EventSubmit:
		return v.Submit(ValidationResult{IsValid: true})
	case EventStartReview:
		return v.StartReview(RoleManager)
	case EventApprove:
		return v.Approve(reviewer, "Mona", RoleManager, "looks good")
	case EventReject:
		return v.Reject(reviewer, "Mona", RoleManager, "incomplete work")
	case EventRequestCorrection:
		return v.RequestCorrection(reviewer, "Mona", RoleManager, "re-shoot generator photos")
	}
	return nil
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	for _, from := range AllStatuses {
		for _, event := range AllEvents {
			v := visitInState(t, from)
			err := applyEvent(v, event)

			expected, legal := NextStatus(from, event)
			if legal {
				if err != nil {
					t.Errorf("(%s, %s): expected transition to succeed, got %v", from, event, err)
					continue
				}
				if v.Status != expected {
					t.Errorf("(%s, %s): expected status %s, got %s", from, event, expected, v.Status)
				}
			} else {
				if !apperr.Is(err, apperr.KindInvalidTransition) {
					t.Errorf("(%s, %s): expected invalid transition, got %v", from, event, err)
				}
				if v.Status != from {
					t.Errorf("(%s, %s): status changed on failed transition to %s", from, event, v.Status)
				}
			}
		}
	}
}

func TestCompleteRequiresRecordedStartTime(t *testing.T) {
	v := newScheduledVisit(t)
	v.Status = StatusInProgress // started without a recorded start time

	if err := v.Complete(); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition without start time, got %v", err)
	}
	if v.Status != StatusInProgress {
		t.Fatalf("status changed on failed complete: %s", v.Status)
	}
}

func TestSubmitBlockedByFailedValidation(t *testing.T) {
	v := visitInState(t, StatusCompleted)

	result := ValidationResult{IsValid: false}
	result.addError("photos.General", "missing mandatory before photo")

	err := v.Submit(result)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if v.Status != StatusCompleted {
		t.Fatalf("status changed on failed submit: %s", v.Status)
	}
}

func TestEngineerCannotReview(t *testing.T) {
	reviewer := uuid.New()

	v := visitInState(t, StatusSubmitted)
	if err := v.StartReview(RolePMEngineer); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden starting review as engineer, got %v", err)
	}
	if v.Status != StatusSubmitted {
		t.Fatalf("status changed: %s", v.Status)
	}

	v = visitInState(t, StatusUnderReview)
	if err := v.Approve(reviewer, "Omar", RolePMEngineer, ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden approving as engineer, got %v", err)
	}
	if v.Status != StatusUnderReview {
		t.Fatalf("status changed: %s", v.Status)
	}
	if len(v.ApprovalHistory) != 0 {
		t.Fatal("approval history written on forbidden action")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	v := visitInState(t, StatusUnderReview)

	if err := v.Reject(uuid.New(), "Mona", RoleManager, "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}
	if v.Status != StatusUnderReview {
		t.Fatalf("status changed: %s", v.Status)
	}
}

func TestReviewActionsAppendHistoryInOrder(t *testing.T) {
	v := visitInState(t, StatusUnderReview)
	reviewer := uuid.New()

	if err := v.RequestCorrection(reviewer, "Mona", RoleAdmin, "fix battery readings"); err != nil {
		t.Fatalf("request correction: %v", err)
	}
	if v.Status != StatusNeedsCorrection {
		t.Fatalf("expected NeedsCorrection, got %s", v.Status)
	}

	if err := v.Submit(ValidationResult{IsValid: true}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if err := v.StartReview(RoleAdmin); err != nil {
		t.Fatalf("start review: %v", err)
	}
	if err := v.Approve(reviewer, "Mona", RoleAdmin, "all good now"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if len(v.ApprovalHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(v.ApprovalHistory))
	}
	if v.ApprovalHistory[0].Action != EventRequestCorrection || v.ApprovalHistory[1].Action != EventApprove {
		t.Fatalf("history out of order: %+v", v.ApprovalHistory)
	}
}

func TestEvidenceFrozenOnceSubmitted(t *testing.T) {
	v := visitInState(t, StatusSubmitted)

	if _, err := v.AddPhoto("General", PhotoBefore, 640, 480, "k", nil); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected frozen photo mutation, got %v", err)
	}
	if _, err := v.AddReading("BatteryVoltage", 50, "V"); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected frozen reading mutation, got %v", err)
	}
	if _, err := v.AddChecklistItem("inspect tower"); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected frozen checklist mutation, got %v", err)
	}
}

func TestEvidenceEditableAgainInNeedsCorrection(t *testing.T) {
	v := visitInState(t, StatusNeedsCorrection)

	if _, err := v.AddPhoto("General", PhotoAfter, 640, 480, "k", nil); err != nil {
		t.Fatalf("add photo during correction: %v", err)
	}
	item, err := v.AddChecklistItem("recheck rectifier")
	if err != nil {
		t.Fatalf("add checklist during correction: %v", err)
	}
	if err := v.ResolveChecklistItem(item.ID, ChecklistCompleted, ""); err != nil {
		t.Fatalf("resolve checklist: %v", err)
	}
}

func TestCanBeEditedAndSubmitted(t *testing.T) {
	editable := map[Status]bool{
		StatusInProgress:      true,
		StatusCompleted:       true,
		StatusNeedsCorrection: true,
	}
	submittable := map[Status]bool{
		StatusCompleted:       true,
		StatusNeedsCorrection: true,
	}

	for _, status := range AllStatuses {
		v := visitInState(t, status)
		if got := v.CanBeEdited(); got != editable[status] {
			t.Errorf("CanBeEdited in %s: expected %v, got %v", status, editable[status], got)
		}
		if got := v.CanBeSubmitted(); got != submittable[status] {
			t.Errorf("CanBeSubmitted in %s: expected %v, got %v", status, submittable[status], got)
		}
	}
}

func TestResolveChecklistRejectsPendingStatus(t *testing.T) {
	v := visitInState(t, StatusInProgress)
	item, err := v.AddChecklistItem("clean air filters")
	if err != nil {
		t.Fatalf("add checklist: %v", err)
	}

	if err := v.ResolveChecklistItem(item.ID, ChecklistPending, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error resolving to Pending, got %v", err)
	}
	if err := v.ResolveChecklistItem(uuid.New(), ChecklistCompleted, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
}

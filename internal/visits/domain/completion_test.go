package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubSite struct {
	photoCategories   []string
	readingCategories []string
}

func (s stubSite) RequiredPhotoCategories() []string     { return s.photoCategories }
func (s stubSite) ApplicableReadingCategories() []string { return s.readingCategories }

func completedVisit(t *testing.T, duration time.Duration) *Visit {
	t.Helper()
	v, err := NewVisit("V2026000042", uuid.New(), uuid.New(), VisitTypeRoutine, time.Now())
	if err != nil {
		t.Fatalf("new visit: %v", err)
	}
	v.Status = StatusCompleted
	start := time.Now().Add(-duration)
	end := time.Now()
	v.ActualStartTime = &start
	v.ActualEndTime = &end
	return v
}

func addCoverage(t *testing.T, v *Visit, category string, width, height int) {
	t.Helper()
	if _, err := v.AddPhoto(category, PhotoBefore, width, height, "before-key", nil); err != nil {
		t.Fatalf("add before photo: %v", err)
	}
	if _, err := v.AddPhoto(category, PhotoAfter, width, height, "after-key", nil); err != nil {
		t.Fatalf("add after photo: %v", err)
	}
}

func TestValidateCompletionHappyPath(t *testing.T) {
	site := stubSite{
		photoCategories:   []string{"General", "Power", "Generator"},
		readingCategories: []string{"RectifierVoltage", "GeneratorFuelLevel"},
	}
	v := completedVisit(t, 3*time.Hour)

	for _, category := range site.photoCategories {
		addCoverage(t, v, category, 320, 240)
	}
	if _, err := v.AddReading("RectifierVoltage", 53.5, "V"); err != nil {
		t.Fatalf("add reading: %v", err)
	}
	if _, err := v.AddReading("GeneratorFuelLevel", 80, "%"); err != nil {
		t.Fatalf("add reading: %v", err)
	}
	item, err := v.AddChecklistItem("inspect rectifier modules")
	if err != nil {
		t.Fatalf("add checklist: %v", err)
	}
	if err := v.ResolveChecklistItem(item.ID, ChecklistCompleted, ""); err != nil {
		t.Fatalf("resolve checklist: %v", err)
	}

	result := ValidateCompletion(v, site, DefaultPolicy())
	if !result.IsValid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}

	if err := v.Submit(result); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if v.Status != StatusSubmitted {
		t.Fatalf("expected Submitted, got %s", v.Status)
	}
}

func TestValidateCompletionZeroPhotosFails(t *testing.T) {
	site := stubSite{photoCategories: []string{"General"}}
	v := completedVisit(t, time.Hour)

	result := ValidateCompletion(v, site, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid with zero photos")
	}
	if len(result.Errors["photos.General"]) != 2 {
		t.Fatalf("expected missing before and after errors, got %v", result.Errors["photos.General"])
	}

	if err := v.Submit(result); err == nil {
		t.Fatal("submit must fail when validation fails")
	}
}

func TestValidateCompletionRejectsLowResolutionPhotos(t *testing.T) {
	site := stubSite{photoCategories: []string{"General"}}
	v := completedVisit(t, time.Hour)

	// Below the minimum on height: does not count as coverage.
	addCoverage(t, v, "General", 320, 200)

	result := ValidateCompletion(v, site, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid with undersized photos")
	}
	found := false
	for _, msg := range result.Errors["photos.General"] {
		if strings.Contains(msg, "below the minimum resolution") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected resolution error, got %v", result.Errors)
	}
}

func TestPhotoMeetsResolution(t *testing.T) {
	tests := []struct {
		width, height int
		want          bool
	}{
		{320, 240, true},
		{320, 238, true},
		{178, 238, true},
		{177, 238, false},
		{320, 237, false},
		{640, 480, true},
	}
	for _, tt := range tests {
		if got := PhotoMeetsResolution(tt.width, tt.height); got != tt.want {
			t.Errorf("PhotoMeetsResolution(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
		}
	}
}

func TestValidateCompletionReadingOutOfRange(t *testing.T) {
	site := stubSite{readingCategories: []string{"RectifierVoltage"}}
	v := completedVisit(t, time.Hour)

	// 70V is outside the 48-58 window, so the category stays uncovered.
	if _, err := v.AddReading("RectifierVoltage", 70, "V"); err != nil {
		t.Fatalf("add reading: %v", err)
	}

	result := ValidateCompletion(v, site, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid with out-of-range reading")
	}
	if len(result.Errors["readings.RectifierVoltage"]) == 0 {
		t.Fatalf("expected reading error, got %v", result.Errors)
	}
}

func TestValidateCompletionPendingChecklistFails(t *testing.T) {
	v := completedVisit(t, time.Hour)
	if _, err := v.AddChecklistItem("replace fan"); err != nil {
		t.Fatalf("add checklist: %v", err)
	}

	result := ValidateCompletion(v, stubSite{}, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid with pending checklist item")
	}
	if len(result.Errors["checklist"]) != 1 {
		t.Fatalf("expected 1 checklist error, got %v", result.Errors["checklist"])
	}
}

func TestValidateCompletionDurationRules(t *testing.T) {
	// Negative duration is a hard failure.
	v := completedVisit(t, time.Hour)
	end := v.ActualStartTime.Add(-time.Minute)
	v.ActualEndTime = &end

	result := ValidateCompletion(v, stubSite{}, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid with negative duration")
	}
	if len(result.Errors["duration"]) == 0 {
		t.Fatalf("expected duration error, got %v", result.Errors)
	}

	// Over-long duration is a warning, not a failure.
	v = completedVisit(t, 20*time.Hour)
	result = ValidateCompletion(v, stubSite{}, DefaultPolicy())
	if !result.IsValid {
		t.Fatalf("over-long duration must not hard-fail: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
}

func TestValidateCompletionMissingTimesIsHardFailure(t *testing.T) {
	v := completedVisit(t, time.Hour)
	v.ActualEndTime = nil

	result := ValidateCompletion(v, stubSite{}, DefaultPolicy())
	if result.IsValid {
		t.Fatal("expected invalid without end time")
	}
}

func TestCorrectiveVisitOnlyNeedsGeneralPhotos(t *testing.T) {
	site := stubSite{photoCategories: []string{"General", "Power", "Solar"}}
	v := completedVisit(t, time.Hour)
	v.Type = VisitTypeCorrective

	addCoverage(t, v, "General", 640, 480)

	result := ValidateCompletion(v, site, DefaultPolicy())
	if !result.IsValid {
		t.Fatalf("corrective visit should only need General coverage, got %v", result.Errors)
	}
}

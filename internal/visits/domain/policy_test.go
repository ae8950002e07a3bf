package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPolicyMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte(`
readingRanges:
  RectifierVoltage:
    min: 50
    max: 56
  AmbientHumidity:
    min: 0
    max: 90
maxDuration: 8h
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	policy, err := LoadPolicy(path, 0)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}

	rng, ok := policy.ReadingRange("RectifierVoltage")
	if !ok || rng.Min != 50 || rng.Max != 56 {
		t.Fatalf("override not applied: %+v", rng)
	}
	if _, ok := policy.ReadingRange("AmbientHumidity"); !ok {
		t.Fatal("new category not merged")
	}
	if _, ok := policy.ReadingRange("BatteryVoltage"); !ok {
		t.Fatal("default category lost in merge")
	}
	if policy.MaxDuration != 8*time.Hour {
		t.Fatalf("expected 8h max duration, got %s", policy.MaxDuration)
	}
}

func TestLoadPolicyEmptyPathUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy("", 10*time.Hour)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if policy.MaxDuration != 10*time.Hour {
		t.Fatalf("expected configured max duration, got %s", policy.MaxDuration)
	}
	if len(policy.ReadingRanges) == 0 {
		t.Fatal("defaults missing")
	}
}

func TestRequiredPhotoCategoriesPerVisitType(t *testing.T) {
	policy := DefaultPolicy()
	siteCategories := []string{"General", "Power", "Generator"}

	routine := policy.RequiredPhotoCategories(VisitTypeRoutine, siteCategories)
	if len(routine) != 3 {
		t.Fatalf("routine visits require the full site profile, got %v", routine)
	}

	emergency := policy.RequiredPhotoCategories(VisitTypeEmergency, siteCategories)
	if len(emergency) != 1 || emergency[0] != "General" {
		t.Fatalf("emergency visits require General only, got %v", emergency)
	}
}

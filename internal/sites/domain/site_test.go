package domain

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func baseSite(t *testing.T, power PowerConfig, transmission TransmissionConfig, sharing bool, complexity Complexity) *Site {
	t.Helper()
	tenants := 0
	if sharing {
		tenants = 2
	}
	s, err := NewSite("amm-014", "Abdoun Rooftop", "Amman", uuid.New(), 31.95, 35.91,
		power, transmission, sharing, tenants, complexity)
	if err != nil {
		t.Fatalf("new site: %v", err)
	}
	return s
}

func TestCodeIsUppercaseNormalized(t *testing.T) {
	s := baseSite(t, PowerConfig{}, TransmissionConfig{}, false, ComplexityLow)
	if s.Code != "AMM-014" {
		t.Fatalf("expected normalized code AMM-014, got %s", s.Code)
	}
}

func TestRequiredPhotoCategoriesFollowEquipment(t *testing.T) {
	tests := []struct {
		name         string
		power        PowerConfig
		transmission TransmissionConfig
		sharing      bool
		want         []string
	}{
		{
			name: "bare site",
			want: []string{"General", "Power"},
		},
		{
			name:  "generator and solar",
			power: PowerConfig{HasGenerator: true, HasSolar: true},
			want:  []string{"General", "Power", "Generator", "Solar"},
		},
		{
			name:         "shared site with microwave",
			transmission: TransmissionConfig{HasMicrowave: true},
			sharing:      true,
			want:         []string{"General", "Power", "Sharing", "Transmission"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseSite(t, tt.power, tt.transmission, tt.sharing, ComplexityLow)
			if got := s.RequiredPhotoCategories(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplicableReadingCategoriesFollowEquipment(t *testing.T) {
	s := baseSite(t, PowerConfig{HasRectifier: true, HasBatteries: true, HasGenerator: true},
		TransmissionConfig{}, false, ComplexityHigh)

	want := []string{"RoomTemperature", "RectifierVoltage", "BatteryVoltage",
		"GeneratorFuelLevel", "GeneratorRunHours", "TowerTilt"}
	if got := s.ApplicableReadingCategories(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRecordVisitNeverMovesBackwards(t *testing.T) {
	s := baseSite(t, PowerConfig{}, TransmissionConfig{}, false, ComplexityLow)

	later := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-48 * time.Hour)

	s.RecordVisit(later)
	s.RecordVisit(earlier)

	if s.LastVisitedAt == nil || !s.LastVisitedAt.Equal(later) {
		t.Fatalf("expected last visit to stay at %s, got %v", later, s.LastVisitedAt)
	}
}

func TestSharingSiteRequiresTenants(t *testing.T) {
	_, err := NewSite("AMM-020", "Shared Tower", "Amman", uuid.New(), 0, 0,
		PowerConfig{}, TransmissionConfig{}, true, 0, ComplexityLow)
	if err == nil {
		t.Fatal("expected validation error for sharing site without tenants")
	}
}

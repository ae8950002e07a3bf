package email

import (
	"strings"
	"testing"
)

func TestRenderVisitReviewedTemplate(t *testing.T) {
	content, err := renderEmailTemplate("visit_reviewed.html", visitReviewedEmailData{
		baseEmailData: baseEmailData{Title: "Visit rejected", Heading: "Visit rejected"},
		EngineerName:  "Lina Aziz",
		VisitNumber:   "V2026000042",
		ReviewerName:  "Omar Haddad",
		Outcome:       "rejected",
		Detail:        "Power photos are blurry, please retake.",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Lina Aziz", "V2026000042", "rejected", "Omar Haddad", "blurry"} {
		if !strings.Contains(content, want) {
			t.Errorf("rendered email missing %q", want)
		}
	}
}

func TestRenderLowStockTemplate(t *testing.T) {
	content, err := renderEmailTemplate("low_stock.html", lowStockEmailData{
		baseEmailData: baseEmailData{Title: "Low stock alert", Heading: "Low stock alert"},
		MaterialName:  "Fiber patch cable",
		CurrentStock:  formatQuantity(3),
		MinimumStock:  formatQuantity(10),
		Unit:          "pcs",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "Fiber patch cable") {
		t.Error("rendered email missing material name")
	}
	if !strings.Contains(content, "3 pcs") {
		t.Error("rendered email missing current stock")
	}
}

func TestFormatQuantity(t *testing.T) {
	cases := map[float64]string{
		3:     "3",
		2.5:   "2.5",
		10.25: "10.25",
	}
	for in, want := range cases {
		if got := formatQuantity(in); got != want {
			t.Errorf("formatQuantity(%v) = %q, want %q", in, got, want)
		}
	}
}

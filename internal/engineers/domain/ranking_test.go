package domain

import (
	"testing"

	"github.com/google/uuid"
)

type stubSite struct {
	solar     bool
	generator bool
	sharing   bool
	complex_  bool
}

func (s stubSite) HasSolar() bool         { return s.solar }
func (s stubSite) HasGenerator() bool     { return s.generator }
func (s stubSite) IsSharingEnabled() bool { return s.sharing }
func (s stubSite) IsComplex() bool        { return s.complex_ }

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func engineer(t *testing.T, name string, maxSites *int, assigned int) Engineer {
	t.Helper()
	e, err := NewEngineer(name, name+"@telecompm.example", "", "hash", RolePMEngineer, uuid.New(), maxSites)
	if err != nil {
		t.Fatalf("new engineer: %v", err)
	}
	for i := 0; i < assigned; i++ {
		if err := e.AssignSite(uuid.New()); err != nil {
			t.Fatalf("assign site: %v", err)
		}
	}
	return *e
}

func TestFullCapacityExcludedDespitePerfectMatch(t *testing.T) {
	site := stubSite{solar: true, generator: true, sharing: true, complex_: true}

	full := engineer(t, "maxed", intPtr(3), 3)
	full.SetSpecializations([]string{SpecSolar, SpecGenerator, SpecSharing, SpecComplex})

	free := engineer(t, "available", intPtr(3), 0)

	ranked := Rank(site, []Engineer{full, free})
	if len(ranked) != 1 {
		t.Fatalf("expected only the free engineer, got %d candidates", len(ranked))
	}
	if ranked[0].Engineer.ID != free.ID {
		t.Fatal("full-capacity engineer must be excluded regardless of specialization")
	}
}

func TestSolarSpecialistOutranksHigherRatedGeneralist(t *testing.T) {
	site := stubSite{solar: true}

	specialist := engineer(t, "specialist", intPtr(10), 2)
	specialist.SetSpecializations([]string{SpecSolar})
	// No rating history; falls back to the neutral default.

	generalist := engineer(t, "generalist", intPtr(10), 2)
	if err := generalist.SetPerformanceRating(5.0); err != nil {
		t.Fatalf("set rating: %v", err)
	}

	ranked := Rank(site, []Engineer{generalist, specialist})
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].Engineer.ID != specialist.ID {
		t.Fatalf("specialist must outrank the higher-rated generalist, got %s first", ranked[0].Engineer.Name)
	}
}

func TestNonEngineersAndInactiveExcluded(t *testing.T) {
	site := stubSite{}

	manager, err := NewEngineer("boss", "boss@telecompm.example", "", "hash", RoleManager, uuid.New(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	inactive := engineer(t, "gone", nil, 0)
	inactive.Deactivate()

	if ranked := Rank(site, []Engineer{*manager, inactive}); len(ranked) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(ranked))
	}
}

func TestTieBreaksAreDeterministic(t *testing.T) {
	site := stubSite{}

	// Same score and rating; fewer assigned sites wins.
	lessLoaded := engineer(t, "light", nil, 1)
	moreLoaded := engineer(t, "heavy", nil, 4)
	lessLoaded.PerformanceRating = floatPtr(4.0)
	moreLoaded.PerformanceRating = floatPtr(4.0)

	ranked := Rank(site, []Engineer{moreLoaded, lessLoaded})
	if ranked[0].Engineer.ID != lessLoaded.ID {
		t.Fatal("engineer with fewer assigned sites must rank first on equal score")
	}

	// Identical everything; engineer id decides, so repeated runs agree.
	a := engineer(t, "same-a", nil, 0)
	b := engineer(t, "same-b", nil, 0)
	first := Rank(site, []Engineer{a, b})
	second := Rank(site, []Engineer{b, a})
	if first[0].Engineer.ID != second[0].Engineer.ID {
		t.Fatal("ranking order must not depend on input order")
	}
}

func TestCapacityHeadroomLoadBalances(t *testing.T) {
	site := stubSite{}

	spacious := engineer(t, "spacious", intPtr(10), 1)
	crowded := engineer(t, "crowded", intPtr(10), 9)
	spacious.PerformanceRating = floatPtr(3.0)
	crowded.PerformanceRating = floatPtr(3.0)

	ranked := Rank(site, []Engineer{crowded, spacious})
	if ranked[0].Engineer.ID != spacious.ID {
		t.Fatal("more headroom must score higher at equal rating")
	}
}

func TestAssignSiteGuards(t *testing.T) {
	e := engineer(t, "tight", intPtr(1), 1)
	if err := e.AssignSite(uuid.New()); err == nil {
		t.Fatal("expected capacity conflict")
	}

	// Re-assigning an already assigned site is a no-op, not a capacity error.
	existing := e.AssignedSiteIDs[0]
	if err := e.AssignSite(existing); err != nil {
		t.Fatalf("re-assign should be a no-op, got %v", err)
	}
	if len(e.AssignedSiteIDs) != 1 {
		t.Fatalf("expected 1 assigned site, got %d", len(e.AssignedSiteIDs))
	}
}

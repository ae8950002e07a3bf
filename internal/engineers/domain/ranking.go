package domain

import "sort"

// Scoring weights. A specialization match must outweigh the largest possible
// raw-rating advantage (5.0 over the neutral 2.5), so a specialist with no
// rating history still beats a top-rated generalist for a matching site.
const (
	specializationMatchWeight = 3.0
	capacityHeadroomWeight    = 1.0
	neutralRating             = 2.5
)

// SiteTraits exposes the site characteristics the ranking algorithm inspects.
type SiteTraits interface {
	HasSolar() bool
	HasGenerator() bool
	IsSharingEnabled() bool
	IsComplex() bool
}

// RankedEngineer pairs a candidate with its computed score.
type RankedEngineer struct {
	Engineer Engineer `json:"engineer"`
	Score    float64  `json:"score"`
}

// Rank orders candidate engineers for a site, best first. Candidates that are
// not active PMEngineers with free capacity are excluded; an empty result is
// not an error.
func Rank(site SiteTraits, candidates []Engineer) []RankedEngineer {
	ranked := make([]RankedEngineer, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.CanBeAssignedMoreSites() {
			continue
		}
		ranked = append(ranked, RankedEngineer{
			Engineer: candidate,
			Score:    score(site, &candidate),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ar, br := effectiveRating(&a.Engineer), effectiveRating(&b.Engineer)
		if ar != br {
			return ar > br
		}
		if len(a.Engineer.AssignedSiteIDs) != len(b.Engineer.AssignedSiteIDs) {
			return len(a.Engineer.AssignedSiteIDs) < len(b.Engineer.AssignedSiteIDs)
		}
		return a.Engineer.ID.String() < b.Engineer.ID.String()
	})
	return ranked
}

func score(site SiteTraits, e *Engineer) float64 {
	return specializationMatch(site, e) + capacityHeadroom(e) + effectiveRating(e)
}

func specializationMatch(site SiteTraits, e *Engineer) float64 {
	matches := 0.0
	if site.HasSolar() && e.HasSpecialization(SpecSolar) {
		matches++
	}
	if site.IsSharingEnabled() && e.HasSpecialization(SpecSharing) {
		matches++
	}
	if site.HasGenerator() && e.HasSpecialization(SpecGenerator) {
		matches++
	}
	if site.IsComplex() && e.HasSpecialization(SpecComplex) {
		matches++
	}
	return matches * specializationMatchWeight
}

// capacityHeadroom rewards free slots relative to the maximum so the
// scheduler load-balances. Unlimited capacity counts as full headroom.
func capacityHeadroom(e *Engineer) float64 {
	if e.MaxAssignableSites == nil {
		return capacityHeadroomWeight
	}
	max := *e.MaxAssignableSites
	if max == 0 {
		return 0
	}
	free := max - len(e.AssignedSiteIDs)
	if free < 0 {
		free = 0
	}
	return capacityHeadroomWeight * float64(free) / float64(max)
}

func effectiveRating(e *Engineer) float64 {
	if e.PerformanceRating == nil {
		return neutralRating
	}
	return *e.PerformanceRating
}

package domain

import (
	"fmt"
)

// SiteEvidenceProfile exposes the site configuration the completion
// validator needs. Derived from the site's power, transmission, and radio
// equipment; the validator only reads it.
type SiteEvidenceProfile interface {
	RequiredPhotoCategories() []string
	ApplicableReadingCategories() []string
}

// ValidationResult is the completion validator's structured report. Errors
// accumulate per field; the validator never aborts early and never errors
// out itself.
type ValidationResult struct {
	IsValid  bool                `json:"isValid"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

func (r *ValidationResult) addError(field, message string) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[field] = append(r.Errors[field], message)
	r.IsValid = false
}

func (r *ValidationResult) addWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// PhotoMeetsResolution applies the minimum-resolution policy for evidence
// photos (landscape or portrait capture).
func PhotoMeetsResolution(width, height int) bool {
	return (width >= 320 && height >= 238) || (width >= 178 && height >= 238)
}

// ValidateCompletion is the gatekeeper a visit must pass before leaving
// Completed. It checks photo coverage, reading coverage, checklist
// completeness, and duration sanity, and reports every failure at once.
func ValidateCompletion(v *Visit, site SiteEvidenceProfile, policy Policy) ValidationResult {
	result := ValidationResult{IsValid: true}

	validatePhotoCoverage(&result, v, policy.RequiredPhotoCategories(v.Type, site.RequiredPhotoCategories()))
	validateReadingCoverage(&result, v, site.ApplicableReadingCategories(), policy)
	validateChecklist(&result, v)
	validateDuration(&result, v, policy)

	return result
}

func validatePhotoCoverage(result *ValidationResult, v *Visit, requiredCategories []string) {
	type coverage struct {
		before bool
		after  bool
	}
	covered := make(map[string]*coverage, len(requiredCategories))
	for _, category := range requiredCategories {
		covered[category] = &coverage{}
	}

	for _, photo := range v.Photos {
		c, required := covered[photo.Category]
		if !required {
			continue
		}
		if !PhotoMeetsResolution(photo.Width, photo.Height) {
			result.addError("photos."+photo.Category,
				fmt.Sprintf("photo %dx%d is below the minimum resolution", photo.Width, photo.Height))
			continue
		}
		switch photo.Phase {
		case PhotoBefore:
			c.before = true
		case PhotoAfter:
			c.after = true
		}
	}

	for _, category := range requiredCategories {
		c := covered[category]
		if !c.before {
			result.addError("photos."+category, "missing mandatory before photo")
		}
		if !c.after {
			result.addError("photos."+category, "missing mandatory after photo")
		}
	}
}

func validateReadingCoverage(result *ValidationResult, v *Visit, applicableCategories []string, policy Policy) {
	for _, category := range applicableCategories {
		rng, hasRange := policy.ReadingRange(category)

		found := false
		for _, reading := range v.Readings {
			if reading.Category != category {
				continue
			}
			if !hasRange || rng.Contains(reading.Value) {
				found = true
				break
			}
		}
		if !found {
			if hasRange {
				result.addError("readings."+category,
					fmt.Sprintf("no reading within the valid range %.2f to %.2f", rng.Min, rng.Max))
			} else {
				result.addError("readings."+category, "no reading recorded")
			}
		}
	}
}

func validateChecklist(result *ValidationResult, v *Visit) {
	for _, item := range v.Checklist {
		if item.Status == ChecklistPending {
			result.addError("checklist", fmt.Sprintf("item %q is still pending", item.Description))
		}
	}
}

func validateDuration(result *ValidationResult, v *Visit, policy Policy) {
	if v.ActualStartTime == nil || v.ActualEndTime == nil {
		result.addError("duration", "actual start and end times must be recorded")
		return
	}

	duration := v.Duration()
	if duration <= 0 {
		result.addError("duration", "actual end time must be after the start time")
		return
	}
	if policy.MaxDuration > 0 && duration > policy.MaxDuration {
		result.addWarning(fmt.Sprintf("visit duration %s exceeds the expected maximum %s", duration, policy.MaxDuration))
	}
}

package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Range is the valid numeric window for a reading category.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether the value falls inside the range, inclusive.
func (r Range) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// VisitTypeRule declares the photo evidence a visit type demands. When
// AllSiteCategories is set, the site's full equipment profile drives the
// required categories; otherwise the listed categories apply as-is.
type VisitTypeRule struct {
	AllSiteCategories bool     `yaml:"allSiteCategories"`
	PhotoCategories   []string `yaml:"photoCategories"`
}

// Policy is the completion evidence policy. Operations teams override the
// defaults with a YAML file when thresholds change per contract.
type Policy struct {
	ReadingRanges map[string]Range
	VisitTypes    map[string]VisitTypeRule
	MaxDuration   time.Duration
}

// policyFile is the on-disk YAML shape; the duration is a Go duration string.
type policyFile struct {
	ReadingRanges map[string]Range         `yaml:"readingRanges"`
	VisitTypes    map[string]VisitTypeRule `yaml:"visitTypes"`
	MaxDuration   string                   `yaml:"maxDuration"`
}

// DefaultPolicy returns the built-in evidence policy.
func DefaultPolicy() Policy {
	return Policy{
		ReadingRanges: map[string]Range{
			"RectifierVoltage":   {Min: 48, Max: 58},
			"BatteryVoltage":     {Min: 44, Max: 56},
			"GeneratorFuelLevel": {Min: 0, Max: 100},
			"GeneratorRunHours":  {Min: 0, Max: 100000},
			"SolarOutputKw":      {Min: 0, Max: 50},
			"TowerTilt":          {Min: -2, Max: 2},
			"RoomTemperature":    {Min: -10, Max: 55},
		},
		VisitTypes: map[string]VisitTypeRule{
			string(VisitTypeRoutine):    {AllSiteCategories: true},
			string(VisitTypeCorrective): {PhotoCategories: []string{"General"}},
			string(VisitTypeEmergency):  {PhotoCategories: []string{"General"}},
		},
		MaxDuration: 12 * time.Hour,
	}
}

// LoadPolicy reads a YAML policy file and merges it over the defaults.
// An empty path returns the defaults unchanged.
func LoadPolicy(path string, maxDuration time.Duration) (Policy, error) {
	policy := DefaultPolicy()
	if maxDuration > 0 {
		policy.MaxDuration = maxDuration
	}
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var override policyFile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	for category, rng := range override.ReadingRanges {
		policy.ReadingRanges[category] = rng
	}
	for visitType, rule := range override.VisitTypes {
		policy.VisitTypes[visitType] = rule
	}
	if override.MaxDuration != "" {
		d, err := time.ParseDuration(override.MaxDuration)
		if err != nil {
			return Policy{}, fmt.Errorf("parse policy max duration: %w", err)
		}
		policy.MaxDuration = d
	}
	return policy, nil
}

// RequiredPhotoCategories resolves which photo categories the visit type
// demands given the site's equipment-derived categories.
func (p Policy) RequiredPhotoCategories(visitType VisitType, siteCategories []string) []string {
	rule, ok := p.VisitTypes[string(visitType)]
	if !ok {
		rule = VisitTypeRule{AllSiteCategories: true}
	}
	if rule.AllSiteCategories {
		return siteCategories
	}
	return rule.PhotoCategories
}

// ReadingRange returns the declared valid range for a category, if any.
func (p Policy) ReadingRange(category string) (Range, bool) {
	rng, ok := p.ReadingRanges[category]
	return rng, ok
}

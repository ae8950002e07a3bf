package domain

import (
	"fmt"

	"telecompm_backend/platform/apperr"
)

// Units of measure accepted for material stock. A material's unit is fixed at
// creation; every later operation must use the same unit.
const (
	UnitPiece = "piece"
	UnitMeter = "meter"
	UnitKg    = "kg"
	UnitLiter = "liter"
	UnitRoll  = "roll"
	UnitSet   = "set"
)

// ValidUnits lists the accepted units of measure.
var ValidUnits = []string{UnitPiece, UnitMeter, UnitKg, UnitLiter, UnitRoll, UnitSet}

// IsValidUnit reports whether u is an accepted unit of measure.
func IsValidUnit(u string) bool {
	for _, v := range ValidUnits {
		if u == v {
			return true
		}
	}
	return false
}

// Quantity is an amount of material in a specific unit of measure.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// NewQuantity validates and creates a quantity. Negative values are rejected;
// zero is allowed because adjustments may legitimately zero out stock.
func NewQuantity(value float64, unit string) (Quantity, error) {
	if value < 0 {
		return Quantity{}, apperr.Validation("quantity cannot be negative")
	}
	if !IsValidUnit(unit) {
		return Quantity{}, apperr.Validation(fmt.Sprintf("unknown unit of measure %q", unit))
	}
	return Quantity{Value: value, Unit: unit}, nil
}

// Add returns the sum of two quantities of the same unit.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if err := q.sameUnit(other); err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value + other.Value, Unit: q.Unit}, nil
}

// Subtract returns the difference of two quantities of the same unit.
// The result may not go below zero.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if err := q.sameUnit(other); err != nil {
		return Quantity{}, err
	}
	if other.Value > q.Value {
		return Quantity{}, apperr.InsufficientStock(
			fmt.Sprintf("cannot subtract %.3f %s from %.3f %s", other.Value, other.Unit, q.Value, q.Unit))
	}
	return Quantity{Value: q.Value - other.Value, Unit: q.Unit}, nil
}

// GreaterThan reports whether q exceeds other. Units must match.
func (q Quantity) GreaterThan(other Quantity) bool {
	return q.Unit == other.Unit && q.Value > other.Value
}

// IsZero reports whether the quantity's value is zero.
func (q Quantity) IsZero() bool {
	return q.Value == 0
}

// String renders the quantity for logs and error messages.
func (q Quantity) String() string {
	return fmt.Sprintf("%.3f %s", q.Value, q.Unit)
}

func (q Quantity) sameUnit(other Quantity) error {
	if q.Unit != other.Unit {
		return apperr.UnitMismatch(other.Unit, q.Unit)
	}
	return nil
}

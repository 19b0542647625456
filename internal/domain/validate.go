package domain

import "github.com/shinmj/reservecheck/internal/pkg/errors"

// ValidateForSave applies the per-category required-field rules before a
// reservation is accepted. Each category has an explicit rule function;
// unknown categories require both quantity and period.
func (r *Reservation) ValidateForSave() error {
	rule, ok := categoryRules[r.CategoryID]
	if !ok {
		rule = requireAll
	}
	return rule(r)
}

type categoryRule func(*Reservation) error

var categoryRules = map[string]categoryRule{
	CategoryEducation: requireQuantity,
	CategoryEquipment: requireAll,
	CategoryPlace:     requirePeriod,
	CategorySpace:     requirePeriod,
}

func requireQuantity(r *Reservation) error {
	if r.Quantity < 1 {
		return errors.Validation("reservation quantity is required")
	}
	return nil
}

func requirePeriod(r *Reservation) error {
	if r.StartDate.IsZero() {
		return errors.Validation("reservation start date is required")
	}
	if r.EndDate.IsZero() {
		return errors.Validation("reservation end date is required")
	}
	if r.StartDate.After(r.EndDate) {
		return errors.Validation("reservation start date is after end date")
	}
	return nil
}

func requireAll(r *Reservation) error {
	if err := requirePeriod(r); err != nil {
		return err
	}
	return requireQuantity(r)
}

// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"

	"fuelops/internal/core/apperror"
)

// Liters is a fuel volume with full decimal precision (NUMERIC in Postgres).
type Liters = decimal.Decimal

// MustLiters creates a Liters value from a string, panics on error.
// Use only for constants and tests.
func MustLiters(s string) Liters {
	return decimal.RequireFromString(s)
}

// ZeroLiters returns a zero volume.
func ZeroLiters() Liters {
	return decimal.Zero
}

// ParseLiters parses s and requires a strictly positive value.
func ParseLiters(field, s string) (Liters, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewValidation(field+" must be a number").
			WithDetail("field", field).WithDetail("value", s)
	}
	if err := RequirePositive(field, v); err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

// RequirePositive fails with a validation error unless v > 0.
func RequirePositive(field string, v Liters) error {
	if !v.IsPositive() {
		return apperror.NewValidation(field+" must be greater than zero").
			WithDetail("field", field).WithDetail("value", v.String())
	}
	return nil
}

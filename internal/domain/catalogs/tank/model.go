// Package tank provides the Tank catalog: fuel storage with a capacity and a
// current level. The level is only ever changed through IncrementLevel.
package tank

import (
	"context"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
)

// Tank is a fuel storage entity owned by one scope.
type Tank struct {
	entity.Catalog
	entity.Ownership

	Capacity     types.Liters `db:"capacity" json:"capacity"`
	CurrentLevel types.Liters `db:"current_level" json:"currentLevel"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// NewTank creates an active tank filled to capacity.
func NewTank(code, name string, capacity types.Liters) *Tank {
	return &Tank{
		Catalog:      entity.NewCatalog(code, name),
		Capacity:     capacity,
		CurrentLevel: capacity,
		CreatedAt:    time.Now().UTC(),
	}
}

// Validate implements entity.Validatable interface.
func (t *Tank) Validate(ctx context.Context) error {
	if err := t.Catalog.Validate(ctx); err != nil {
		return err
	}
	if t.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	return types.RequirePositive("capacity", t.Capacity)
}

// Level is the tank state after an atomic increment.
type Level struct {
	TankID   id.ID        `db:"id"`
	Code     string       `db:"code"`
	Current  types.Liters `db:"current_level"`
	Capacity types.Liters `db:"capacity"`
}

// Overdrawn reports a negative level.
func (l Level) Overdrawn() bool { return l.Current.IsNegative() }

// Overfilled reports a level above capacity.
func (l Level) Overfilled() bool { return l.Current.GreaterThan(l.Capacity) }

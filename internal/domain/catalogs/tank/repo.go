package tank

import (
	"context"

	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain"
	"fuelops/internal/domain/resolve"
)

// Repository defines the interface for Tank persistence.
type Repository interface {
	domain.CatalogRepository[*Tank]
	resolve.Store[*Tank]

	// IncrementLevel adds delta to current_level in a single UPDATE statement.
	// It never reads the level first. Returns NotFound for missing or inactive tanks.
	IncrementLevel(ctx context.Context, tankID id.ID, delta types.Liters) (Level, error)
}

package machine

import (
	"context"

	"fuelops/internal/core/security"
	"fuelops/internal/domain"
	"fuelops/internal/domain/resolve"
)

// Repository defines the interface for Machine persistence.
type Repository interface {
	domain.CatalogRepository[*Machine]
	resolve.Store[*Machine]

	// ListByDefaultTank returns active machines whose default tank is tankCode.
	// A nil scope lists across owners.
	ListByDefaultTank(ctx context.Context, tankCode string, scope *security.Scope) ([]*Machine, error)
}

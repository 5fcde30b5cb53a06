package consumption

import (
	"context"

	"fuelops/internal/core/id"
	"fuelops/internal/domain"
)

// Repository defines persistence for consumption records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error

	// GetByID returns NotFound for missing and deleted records.
	GetByID(ctx context.Context, recordID id.ID) (*Record, error)

	// Update writes the mutable columns when the stored version matches
	// rec.Version, then bumps rec.Version.
	Update(ctx context.Context, rec *Record) error

	// MarkDeleted soft-deletes a record that is still live at version.
	// A second delete of the same record fails, so its delta is returned once.
	MarkDeleted(ctx context.Context, recordID id.ID, version int) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error)
}

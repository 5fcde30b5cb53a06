// Package machine provides the machine directory. Machines are referenced by
// consumption records and supply ownership for anonymous kiosk requests.
package machine

import (
	"context"

	"fuelops/internal/core/entity"
)

// Machine is a piece of equipment that receives fuel.
type Machine struct {
	entity.Catalog
	entity.Ownership

	// DefaultTankCode is the tank a kiosk offers when this machine is scanned.
	DefaultTankCode string `db:"default_tank_code" json:"defaultTankCode,omitempty"`

	Description string `db:"description" json:"description,omitempty"`
}

// NewMachine creates an active machine.
func NewMachine(code, name string) *Machine {
	return &Machine{Catalog: entity.NewCatalog(code, name)}
}

// Validate implements entity.Validatable interface.
func (m *Machine) Validate(ctx context.Context) error {
	return m.Catalog.Validate(ctx)
}

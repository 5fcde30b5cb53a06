package memory

import (
	"context"

	"fuelops/internal/core/entity"
	"fuelops/internal/core/security"
	"fuelops/internal/domain/catalogs/machine"
)

// Machines implements machine.Repository.
type Machines struct {
	*Catalogs[*machine.Machine]
}

var _ machine.Repository = (*Machines)(nil)

// NewMachines creates an empty machine store.
func NewMachines() *Machines {
	return &Machines{Catalogs: newCatalogs("machine",
		func(m *machine.Machine) (*entity.Catalog, entity.Ownership) { return &m.Catalog, m.Ownership },
		func(m *machine.Machine) *machine.Machine { c := *m; return &c },
	)}
}

func (s *Machines) ListByDefaultTank(_ context.Context, tankCode string, scope *security.Scope) ([]*machine.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	var out []*machine.Machine
	s.scan(func(m *machine.Machine, c *entity.Catalog, own entity.Ownership) bool {
		if c.Active && m.DefaultTankCode == tankCode && scopeMatches(own, scope) {
			out = append(out, s.clone(m))
		}
		return true
	})
	return out, nil
}

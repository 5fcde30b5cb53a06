package memory

import (
	"context"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/tank"
)

// Tanks implements tank.Repository.
type Tanks struct {
	*Catalogs[*tank.Tank]
}

var _ tank.Repository = (*Tanks)(nil)

// NewTanks creates an empty tank store.
func NewTanks() *Tanks {
	s := &Tanks{Catalogs: newCatalogs("tank",
		func(t *tank.Tank) (*entity.Catalog, entity.Ownership) { return &t.Catalog, t.Ownership },
		func(t *tank.Tank) *tank.Tank { c := *t; return &c },
	)}
	// the level only moves through IncrementLevel
	s.keep = func(stored, next *tank.Tank) { next.CurrentLevel = stored.CurrentLevel }
	return s
}

// IncrementLevel adds delta under the store lock.
func (s *Tanks) IncrementLevel(_ context.Context, tankID id.ID, delta types.Liters) (tank.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return tank.Level{}, s.FailWith
	}

	i := s.indexLocked(tankID)
	if i < 0 || !s.rows[i].Active {
		return tank.Level{}, apperror.NewNotFound("tank", tankID.String())
	}
	t := s.rows[i]
	t.CurrentLevel = t.CurrentLevel.Add(delta)
	return tank.Level{TankID: t.ID, Code: t.Code, Current: t.CurrentLevel, Capacity: t.Capacity}, nil
}

// Remove drops a row entirely, simulating a tank purged by another process.
func (s *Tanks) Remove(tankID id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(tankID); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
}

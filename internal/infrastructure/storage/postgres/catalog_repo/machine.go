package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"fuelops/internal/core/security"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/infrastructure/storage/postgres"
)

// MachineRepo implements machine.Repository.
type MachineRepo struct {
	*BaseCatalogRepo[*machine.Machine]
}

var _ machine.Repository = (*MachineRepo)(nil)

// NewMachineRepo creates a new machine repository.
func NewMachineRepo(txm *postgres.TxManager) *MachineRepo {
	return &MachineRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			"machines",
			postgres.ExtractDBColumns[machine.Machine](),
			[]string{"owner_user_id", "credential_group_id", "organization_name", "active"},
			func() *machine.Machine { return &machine.Machine{} },
		),
	}
}

// ListByDefaultTank returns active machines whose default tank is tankCode.
func (r *MachineRepo) ListByDefaultTank(ctx context.Context, tankCode string, scope *security.Scope) ([]*machine.Machine, error) {
	return r.FindAll(ctx, r.byDefaultTankQuery(tankCode, scope))
}

func (r *MachineRepo) byDefaultTankQuery(tankCode string, scope *security.Scope) squirrel.SelectBuilder {
	q := r.baseSelect().Where(squirrel.Eq{"default_tank_code": tankCode, "active": true})
	if scope != nil {
		q = q.Where(postgres.OwnershipCondition(*scope))
	}
	return q.OrderBy("code ASC")
}

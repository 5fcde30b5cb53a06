package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/infrastructure/storage/postgres"
)

const tanksTable = "tanks"

// TankRepo implements tank.Repository.
type TankRepo struct {
	*BaseCatalogRepo[*tank.Tank]
}

var _ tank.Repository = (*TankRepo)(nil)

// NewTankRepo creates a new tank repository.
func NewTankRepo(txm *postgres.TxManager) *TankRepo {
	return &TankRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			tanksTable,
			postgres.ExtractDBColumns[tank.Tank](),
			// the level moves only through IncrementLevel; ownership is fixed at creation
			[]string{"current_level", "owner_user_id", "credential_group_id", "organization_name", "created_at", "active"},
			func() *tank.Tank { return &tank.Tank{} },
		),
	}
}

// IncrementLevel applies delta in one UPDATE so concurrent writers never lose updates.
func (r *TankRepo) IncrementLevel(ctx context.Context, tankID id.ID, delta types.Liters) (tank.Level, error) {
	sql, args, err := incrementLevelQuery(r.Builder(), tankID, delta).ToSql()
	if err != nil {
		return tank.Level{}, fmt.Errorf("build increment: %w", err)
	}

	var level tank.Level
	if err := pgxscan.Get(ctx, r.querier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return tank.Level{}, apperror.NewNotFound("tank", tankID.String())
		}
		return tank.Level{}, fmt.Errorf("increment tank level: %w", err)
	}
	return level, nil
}

func incrementLevelQuery(b squirrel.StatementBuilderType, tankID id.ID, delta types.Liters) squirrel.UpdateBuilder {
	return b.Update(tanksTable).
		Set("current_level", squirrel.Expr("current_level + ?", delta)).
		Where(squirrel.Eq{"id": tankID, "active": true}).
		Suffix("RETURNING id, code, current_level, capacity")
}

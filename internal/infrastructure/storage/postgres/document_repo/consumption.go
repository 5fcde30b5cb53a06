// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/domain"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/infrastructure/storage/postgres"
)

const consumptionTable = "consumption_records"

var consumptionSelectCols = []string{
	"id", "version", "deletion_mark", "created_at", "updated_at", "created_by",
	"tank_id", "tank_code", "machine_id", "machine_code",
	"liters", "operator", "work_description", "recorded_at",
	"scope_kind", "scope_value", "is_public",
}

// ConsumptionRepo implements consumption.Repository.
type ConsumptionRepo struct {
	txm *postgres.TxManager
}

var _ consumption.Repository = (*ConsumptionRepo)(nil)

// NewConsumptionRepo creates a new consumption record repository.
func NewConsumptionRepo(txm *postgres.TxManager) *ConsumptionRepo {
	return &ConsumptionRepo{txm: txm}
}

// Builder returns a new squirrel builder.
func (r *ConsumptionRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ConsumptionRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts a new record.
func (r *ConsumptionRepo) Create(ctx context.Context, rec *consumption.Record) error {
	sql, args, err := r.insertQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return apperror.NewDuplicate(consumptionTable, "id", rec.ID.String()).WithCause(err)
		case postgres.IsForeignKeyViolation(err):
			return apperror.NewValidation("referenced tank or machine does not exist").WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", consumptionTable, err)
	}
	return nil
}

func (r *ConsumptionRepo) insertQuery(rec *consumption.Record) squirrel.InsertBuilder {
	data := postgres.StructToMap(rec)
	filtered := make(map[string]any, len(consumptionSelectCols))
	for _, col := range consumptionSelectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return r.Builder().Insert(consumptionTable).SetMap(filtered)
}

func (r *ConsumptionRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(consumptionSelectCols...).
		From(consumptionTable).
		Where(squirrel.Eq{"deletion_mark": false})
}

// GetByID retrieves a live record by ID.
func (r *ConsumptionRepo) GetByID(ctx context.Context, recordID id.ID) (*consumption.Record, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"id": recordID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &consumption.Record{}
	if err := pgxscan.Get(ctx, r.querier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(consumptionTable, recordID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return rec, nil
}

// Update writes the mutable columns with optimistic locking.
func (r *ConsumptionRepo) Update(ctx context.Context, rec *consumption.Record) error {
	sql, args, err := r.updateQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", consumptionTable, err)
	}
	if result.RowsAffected() == 0 {
		return r.missOrConflict(ctx, rec.ID)
	}
	rec.Version++
	return nil
}

func (r *ConsumptionRepo) updateQuery(rec *consumption.Record) squirrel.UpdateBuilder {
	return r.Builder().
		Update(consumptionTable).
		Set("liters", rec.Liters).
		Set("operator", rec.Operator).
		Set("work_description", rec.WorkDescription).
		Set("updated_at", rec.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"version": rec.Version}).
		Where(squirrel.Eq{"deletion_mark": false})
}

// MarkDeleted soft-deletes a record still live at version.
func (r *ConsumptionRepo) MarkDeleted(ctx context.Context, recordID id.ID, version int) error {
	sql, args, err := r.markDeletedQuery(recordID, version).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", consumptionTable, err)
	}
	if result.RowsAffected() == 0 {
		return r.missOrConflict(ctx, recordID)
	}
	return nil
}

func (r *ConsumptionRepo) markDeletedQuery(recordID id.ID, version int) squirrel.UpdateBuilder {
	return r.Builder().
		Update(consumptionTable).
		Set("deletion_mark", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": recordID}).
		Where(squirrel.Eq{"version": version}).
		Where(squirrel.Eq{"deletion_mark": false})
}

// missOrConflict tells a vanished record from a stale version after a guarded write touched nothing.
func (r *ConsumptionRepo) missOrConflict(ctx context.Context, recordID id.ID) error {
	var live bool
	err := r.querier(ctx).QueryRow(ctx,
		`SELECT NOT deletion_mark FROM consumption_records WHERE id = $1`, recordID,
	).Scan(&live)
	if err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(consumptionTable, recordID.String())
		}
		return fmt.Errorf("check record: %w", err)
	}
	if !live {
		return apperror.NewNotFound(consumptionTable, recordID.String())
	}
	return apperror.NewConcurrentModification(consumptionTable, recordID.String())
}

// List retrieves records newest first.
func (r *ConsumptionRepo) List(ctx context.Context, filter consumption.ListFilter) (domain.ListResult[*consumption.Record], error) {
	result := domain.ListResult[*consumption.Record]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("recorded_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

func (r *ConsumptionRepo) listQuery(filter consumption.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.Scope != nil {
		q = q.Where(postgres.StampedScopeCondition(*filter.Scope))
	}
	if filter.MachineID != nil {
		q = q.Where(squirrel.Eq{"machine_id": *filter.MachineID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"recorded_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"recorded_at": *filter.DateTo})
	}
	return q
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/domain/ledger"
)

const gapsTable = "sys_reconciliation_gaps"

var gapColumns = ExtractDBColumns[ledger.Gap]()

// GapStore persists reconciliation gaps in sys_reconciliation_gaps.
type GapStore struct {
	txManager *TxManager
	// backoff is multiplied by the retry count to schedule the next attempt.
	backoff time.Duration
}

var _ ledger.GapStore = (*GapStore)(nil)

// NewGapStore creates a gap store with a one minute linear backoff.
func NewGapStore(txManager *TxManager) *GapStore {
	return &GapStore{txManager: txManager, backoff: time.Minute}
}

func (s *GapStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Record inserts a pending gap.
func (s *GapStore) Record(ctx context.Context, gap ledger.Gap) error {
	sql, args, err := s.builder().Insert(gapsTable).SetMap(StructToMap(&gap)).ToSql()
	if err != nil {
		return fmt.Errorf("build gap insert: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert gap: %w", err)
	}
	return nil
}

// ClaimPending locks due gaps for the surrounding transaction.
func (s *GapStore) ClaimPending(ctx context.Context, limit int) ([]ledger.Gap, error) {
	if s.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("claiming gaps requires transaction context")
	}

	sql, args, err := s.claimQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim: %w", err)
	}

	var gaps []ledger.Gap
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &gaps, sql, args...); err != nil {
		return nil, fmt.Errorf("claim gaps: %w", err)
	}
	return gaps, nil
}

func (s *GapStore) claimQuery(limit int) squirrel.SelectBuilder {
	return s.builder().
		Select(gapColumns...).
		From(gapsTable).
		Where(squirrel.Eq{"status": ledger.GapPending}).
		Where("(next_retry_at IS NULL OR next_retry_at <= NOW())").
		OrderBy("created_at").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
}

// MarkResolved closes a gap.
func (s *GapStore) MarkResolved(ctx context.Context, gapID id.ID) error {
	return s.exec(ctx, gapID, s.builder().
		Update(gapsTable).
		Set("status", ledger.GapResolved).
		Set("resolved_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": gapID}))
}

// MarkRetry records a failed attempt and schedules the next one.
func (s *GapStore) MarkRetry(ctx context.Context, gapID id.ID, lastErr string, maxRetries int) error {
	return s.exec(ctx, gapID, s.retryQuery(gapID, lastErr, maxRetries))
}

func (s *GapStore) retryQuery(gapID id.ID, lastErr string, maxRetries int) squirrel.UpdateBuilder {
	return s.builder().
		Update(gapsTable).
		Set("retry_count", squirrel.Expr("retry_count + 1")).
		Set("last_error", lastErr).
		Set("next_retry_at", squirrel.Expr("NOW() + make_interval(secs => (retry_count + 1) * ?)", s.backoff.Seconds())).
		Set("status", squirrel.Expr("CASE WHEN retry_count + 1 >= ? THEN ? ELSE status END", maxRetries, ledger.GapFailed)).
		Where(squirrel.Eq{"id": gapID})
}

// List returns gaps newest first.
func (s *GapStore) List(ctx context.Context, filter ledger.GapFilter) ([]ledger.Gap, error) {
	q := s.builder().Select(gapColumns...).From(gapsTable).OrderBy("created_at DESC")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build gap list: %w", err)
	}
	var gaps []ledger.Gap
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &gaps, sql, args...); err != nil {
		return nil, fmt.Errorf("list gaps: %w", err)
	}
	return gaps, nil
}

func (s *GapStore) exec(ctx context.Context, gapID id.ID, q squirrel.UpdateBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build gap update: %w", err)
	}
	res, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update gap: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound("reconciliation_gap", gapID.String())
	}
	return nil
}

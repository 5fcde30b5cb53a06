package ledger

import (
	"context"
	"fmt"

	"fuelops/internal/core/tx"
	"fuelops/pkg/logger"
)

// Replayer retries pending gaps. Claiming, applying and resolving a gap all
// happen in one transaction, so a gap's delta lands at most once.
type Replayer struct {
	txm        tx.Manager
	gaps       GapStore
	reconciler *Reconciler
	batchSize  int
	maxRetries int
}

// NewReplayer creates a gap replayer.
func NewReplayer(txm tx.Manager, gaps GapStore, reconciler *Reconciler, batchSize, maxRetries int) *Replayer {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Replayer{
		txm:        txm,
		gaps:       gaps,
		reconciler: reconciler,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}
}

// ReplayBatch processes one batch and returns how many gaps were resolved.
func (p *Replayer) ReplayBatch(ctx context.Context) (int, error) {
	resolved := 0
	err := p.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		gaps, err := p.gaps.ClaimPending(ctx, p.batchSize)
		if err != nil {
			return fmt.Errorf("claim gaps: %w", err)
		}

		for _, g := range gaps {
			outcome, err := p.reconciler.ApplyToTank(ctx, g.TankID, g.Delta)
			if err != nil {
				// a failed statement aborts the transaction; the whole batch retries next tick
				return fmt.Errorf("replay gap %s: %w", g.ID, err)
			}

			if outcome != Applied {
				if err := p.gaps.MarkRetry(ctx, g.ID, "tank not found", p.maxRetries); err != nil {
					return err
				}
				p.reconciler.observer.GapReplayed("retry")
				continue
			}

			if err := p.gaps.MarkResolved(ctx, g.ID); err != nil {
				return err
			}
			p.reconciler.observer.GapReplayed("resolved")
			logger.Info(ctx, "reconciliation gap resolved",
				"gap_id", g.ID,
				"record_id", g.RecordID,
				"tank_id", g.TankID,
				"delta", g.Delta.String(),
			)
			resolved++
		}
		return nil
	})
	if err != nil {
		p.reconciler.observer.GapReplayed("error")
		return 0, err
	}
	return resolved, nil
}

// List returns gaps for operators.
func (p *Replayer) List(ctx context.Context, filter GapFilter) ([]Gap, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return p.gaps.List(ctx, filter)
}

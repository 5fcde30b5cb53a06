package ledger

import (
	"context"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/resolve"
	"fuelops/pkg/logger"
)

// TankResolver finds the tank a delta applies to.
type TankResolver interface {
	Resolve(ctx context.Context, identifier string, opts ...resolve.Option) (*tank.Tank, error)
}

// LevelStore applies atomic increments.
type LevelStore interface {
	IncrementLevel(ctx context.Context, tankID id.ID, delta types.Liters) (tank.Level, error)
}

// Reconciler applies tank deltas for consumption record transitions.
type Reconciler struct {
	tanks    TankResolver
	levels   LevelStore
	gaps     GapStore
	observer Observer
}

// NewReconciler creates a reconciler. observer may be nil.
func NewReconciler(tanks TankResolver, levels LevelStore, gaps GapStore, observer Observer) *Reconciler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Reconciler{tanks: tanks, levels: levels, gaps: gaps, observer: observer}
}

// ApplyDelta adds delta (negative for consumption) to the tank identified by
// tankIdentifier. A tank that cannot be found, or that disappears between
// resolution and the increment, yields TankNotFound with a nil error.
//
// Overdraft and overfill are allowed; they are logged as warnings.
func (r *Reconciler) ApplyDelta(ctx context.Context, tankIdentifier string, delta types.Liters) (Outcome, error) {
	if delta.IsZero() {
		return Applied, nil
	}

	t, err := r.tanks.Resolve(ctx, tankIdentifier)
	if err != nil {
		if apperror.IsNotFound(err) {
			r.observer.DeltaApplied(TankNotFound)
			return TankNotFound, nil
		}
		return "", err
	}
	return r.ApplyToTank(ctx, t.ID, delta)
}

// ApplyToTank adds delta to the tank with the given key. Record transitions
// use it with the tank key stamped on the record, so a delta never follows
// a code or name that another tank may share.
func (r *Reconciler) ApplyToTank(ctx context.Context, tankID id.ID, delta types.Liters) (Outcome, error) {
	if delta.IsZero() {
		return Applied, nil
	}

	level, err := r.levels.IncrementLevel(ctx, tankID, delta)
	if err != nil {
		if apperror.IsNotFound(err) {
			r.observer.DeltaApplied(TankNotFound)
			return TankNotFound, nil
		}
		return "", err
	}

	if level.Overdrawn() || level.Overfilled() {
		logger.Warn(ctx, "tank level out of range",
			"tank_id", level.TankID,
			"tank_code", level.Code,
			"level", level.Current.String(),
			"capacity", level.Capacity.String(),
			"delta", delta.String(),
		)
	}

	r.observer.DeltaApplied(Applied)
	return Applied, nil
}

// Reconcile applies delta on behalf of a record transition and never fails:
// anything short of Applied is logged and stored as a gap.
func (r *Reconciler) Reconcile(ctx context.Context, ref RecordRef, tankID id.ID, delta types.Liters) Outcome {
	outcome, err := r.ApplyToTank(ctx, tankID, delta)
	if err == nil && outcome == Applied {
		return Applied
	}

	reason := ReasonTankNotFound
	var lastErr *string
	if err != nil {
		reason = ReasonStoreError
		msg := err.Error()
		lastErr = &msg
		outcome = TankNotFound
	}

	logger.Warn(ctx, "reconciliation gap",
		"record_id", ref.RecordID,
		"transition", ref.Transition,
		"tank_id", tankID,
		"delta", delta.String(),
		"reason", reason,
		"error", err,
	)
	r.observer.GapRecorded(reason)

	gap := Gap{
		ID:             id.New(),
		RecordID:       ref.RecordID,
		Transition:     ref.Transition,
		TankID:         tankID,
		Delta:          delta,
		Reason:         reason,
		Status:         GapPending,
		LastError:      lastErr,
		CreatedAt:      time.Now().UTC(),
	}
	// the caller's request may already be cancelled; the gap must still land
	if recErr := r.gaps.Record(context.WithoutCancel(ctx), gap); recErr != nil {
		logger.Error(ctx, "failed to persist reconciliation gap",
			"record_id", ref.RecordID,
			"tank_id", tankID,
			"delta", delta.String(),
			"error", recErr,
		)
	}
	return outcome
}

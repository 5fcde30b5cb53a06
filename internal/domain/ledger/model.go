// Package ledger keeps tank levels in step with consumption records.
//
// Every record transition produces one signed delta that is added to the
// tank with an atomic increment. The record write is the system of record:
// when the delta cannot be applied the record still stands and the missed
// delta is kept as a reconciliation gap for replay.
package ledger

import (
	"context"
	"time"

	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
)

// Outcome of applying a delta.
type Outcome string

const (
	Applied      Outcome = "applied"
	TankNotFound Outcome = "tank_not_found"
)

// Transition is the record lifecycle step a delta belongs to.
type Transition string

const (
	TransitionCreate Transition = "create"
	TransitionUpdate Transition = "update"
	TransitionDelete Transition = "delete"
)

// GapStatus tracks replay progress.
type GapStatus string

const (
	GapPending  GapStatus = "pending"
	GapResolved GapStatus = "resolved"
	GapFailed   GapStatus = "failed"
)

// Gap reasons.
const (
	ReasonTankNotFound = "tank_not_found"
	ReasonStoreError   = "store_error"
)

// RecordRef identifies the record mutation a delta belongs to.
type RecordRef struct {
	RecordID   id.ID
	Transition Transition
}

// Gap is a delta that was not reflected in its tank.
type Gap struct {
	ID             id.ID        `db:"id" json:"id"`
	RecordID       id.ID        `db:"record_id" json:"recordId"`
	Transition     Transition   `db:"transition" json:"transition"`
	TankID         id.ID        `db:"tank_id" json:"tankId"`
	Delta          types.Liters `db:"delta" json:"delta"`
	Reason         string       `db:"reason" json:"reason"`
	Status         GapStatus    `db:"status" json:"status"`
	RetryCount     int          `db:"retry_count" json:"retryCount"`
	LastError      *string      `db:"last_error" json:"lastError,omitempty"`
	NextRetryAt    *time.Time   `db:"next_retry_at" json:"nextRetryAt,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	ResolvedAt     *time.Time   `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// GapFilter selects gaps for listing.
type GapFilter struct {
	Status GapStatus
	Limit  int
	Offset int
}

// GapStore persists gaps and hands them out for replay.
type GapStore interface {
	Record(ctx context.Context, gap Gap) error

	// ClaimPending locks up to limit due gaps. Must run inside a transaction;
	// concurrent workers skip rows already claimed.
	ClaimPending(ctx context.Context, limit int) ([]Gap, error)

	MarkResolved(ctx context.Context, gapID id.ID) error

	// MarkRetry bumps retry_count and schedules the next attempt; the gap
	// becomes failed once retry_count reaches maxRetries.
	MarkRetry(ctx context.Context, gapID id.ID, lastErr string, maxRetries int) error

	List(ctx context.Context, filter GapFilter) ([]Gap, error)
}

// Observer receives ledger events, typically to update metrics.
type Observer interface {
	DeltaApplied(outcome Outcome)
	GapRecorded(reason string)
	GapReplayed(result string)
}

type nopObserver struct{}

func (nopObserver) DeltaApplied(Outcome) {}
func (nopObserver) GapRecorded(string)   {}
func (nopObserver) GapReplayed(string)   {}

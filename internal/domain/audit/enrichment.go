// Package audit defines the audit trail written alongside record mutations.
package audit

import (
	"context"

	appctx "fuelops/internal/core/context"
	"fuelops/internal/core/id"
)

// Action is the mutation being audited.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one audit row. Changes is stored as JSON, compressed when large.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Scope      string
	Changes    any
}

// Recorder writes audit entries in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

// EnrichCreatedBy sets createdBy from the user in ctx.
// Anonymous requests leave it empty.
func EnrichCreatedBy(ctx context.Context, createdBy *string) {
	if createdBy == nil {
		return
	}
	if userID := appctx.GetUserID(ctx); userID != "" {
		*createdBy = userID
	}
}

// Package consumption records fuel dispensed from a tank into a machine and
// keeps the tank's level in step through the ledger.
package consumption

import (
	"context"
	"strings"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/ledger"
)

// Record is one dispensing event. Tank, machine and scope are fixed at
// creation; liters, operator and work description may change.
type Record struct {
	entity.BaseDocument

	TankID      id.ID  `db:"tank_id" json:"tankId"`
	TankCode    string `db:"tank_code" json:"tankCode"`
	MachineID   id.ID  `db:"machine_id" json:"machineId"`
	MachineCode string `db:"machine_code" json:"machineCode"`

	Liters          types.Liters `db:"liters" json:"liters"`
	Operator        string       `db:"operator" json:"operator"`
	WorkDescription string       `db:"work_description" json:"workDescription,omitempty"`
	RecordedAt      time.Time    `db:"recorded_at" json:"recordedAt"`

	ScopeKind  security.ScopeKind `db:"scope_kind" json:"scopeKind"`
	ScopeValue string             `db:"scope_value" json:"scopeValue,omitempty"`
	IsPublic   bool               `db:"is_public" json:"isPublic"`
}

// Scope returns the owning scope stamped at creation.
func (r *Record) Scope() security.Scope {
	return security.Scope{Kind: r.ScopeKind, Value: r.ScopeValue}
}

func (r *Record) stampScope(s security.Scope) {
	r.ScopeKind = s.Kind
	r.ScopeValue = s.Value
}

// Validate implements entity.Validatable interface.
func (r *Record) Validate(ctx context.Context) error {
	if id.IsNil(r.TankID) {
		return apperror.NewValidation("tank is required").WithDetail("field", "tankIdentifier")
	}
	if id.IsNil(r.MachineID) {
		return apperror.NewValidation("machine is required").WithDetail("field", "machineIdentifier")
	}
	if err := types.RequirePositive("liters", r.Liters); err != nil {
		return err
	}
	if strings.TrimSpace(r.Operator) == "" {
		return apperror.NewValidation("operator is required").WithDetail("field", "operator")
	}
	if r.ScopeKind == "" {
		return apperror.NewValidation("scope is required").WithDetail("field", "scope")
	}
	return nil
}

// CreateInput is what a caller supplies to record a dispensing event.
// Liters arrives as text so non-numeric input is rejected the same way as
// non-positive input.
type CreateInput struct {
	TankIdentifier    string
	MachineIdentifier string
	Liters            string
	Operator          string
	WorkDescription   string
	RecordedAt        *time.Time
	IsPublic          bool
}

func (in CreateInput) validate() (types.Liters, error) {
	if strings.TrimSpace(in.TankIdentifier) == "" {
		return types.ZeroLiters(), apperror.NewValidation("tank identifier is required").
			WithDetail("field", "tankIdentifier")
	}
	if strings.TrimSpace(in.MachineIdentifier) == "" {
		return types.ZeroLiters(), apperror.NewValidation("machine identifier is required").
			WithDetail("field", "machineIdentifier")
	}
	liters, err := types.ParseLiters("liters", in.Liters)
	if err != nil {
		return types.ZeroLiters(), err
	}
	if strings.TrimSpace(in.Operator) == "" {
		return types.ZeroLiters(), apperror.NewValidation("operator is required").
			WithDetail("field", "operator")
	}
	return liters, nil
}

// Patch changes a record. Nil fields are left alone. The immutable fields
// exist so that callers sending them get a clear rejection.
type Patch struct {
	Liters          *string
	Operator        *string
	WorkDescription *string

	// Version, when non-zero, must equal the stored version.
	Version int

	TankIdentifier    *string
	MachineIdentifier *string
	Scope             *string
	CreatedAt         *time.Time
	RecordedAt        *time.Time
}

// immutableField returns the first immutable field present in p.
func (p Patch) immutableField() string {
	switch {
	case p.TankIdentifier != nil:
		return "tankIdentifier"
	case p.MachineIdentifier != nil:
		return "machineIdentifier"
	case p.Scope != nil:
		return "scope"
	case p.CreatedAt != nil:
		return "createdAt"
	case p.RecordedAt != nil:
		return "recordedAt"
	}
	return ""
}

// Resolution reports what a create resolved to.
type Resolution struct {
	Tank    *tank.Tank
	Machine *machine.Machine
	Scope   security.Scope
	Ledger  ledger.Outcome
}

// ListFilter narrows a record listing. Scope is set by the service.
type ListFilter struct {
	Scope     *security.Scope
	MachineID *id.ID
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// Normalize clamps paging values.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

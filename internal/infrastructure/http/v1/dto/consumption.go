package dto

import (
	"encoding/json"
	"time"

	"fuelops/internal/core/types"
	"fuelops/internal/domain/documents/consumption"
)

// CreateConsumptionRequest records fuel dispensed into a machine.
type CreateConsumptionRequest struct {
	TankIdentifier    string     `json:"tankIdentifier"`
	MachineIdentifier string     `json:"machineIdentifier"`
	Liters            Number     `json:"liters"`
	Operator          string     `json:"operator"`
	WorkDescription   string     `json:"workDescription"`
	RecordedAt        *time.Time `json:"recordedAt"`
	IsPublic          bool       `json:"isPublic"`
}

// ToInput maps the request to the service input.
func (r CreateConsumptionRequest) ToInput() consumption.CreateInput {
	return consumption.CreateInput{
		TankIdentifier:    r.TankIdentifier,
		MachineIdentifier: r.MachineIdentifier,
		Liters:            r.Liters.String(),
		Operator:          r.Operator,
		WorkDescription:   r.WorkDescription,
		RecordedAt:        r.RecordedAt,
		IsPublic:          r.IsPublic,
	}
}

// UpdateConsumptionRequest changes a record. The immutable fields are
// accepted only so that sending them yields IMMUTABLE_FIELD instead of being
// ignored.
type UpdateConsumptionRequest struct {
	Liters          *Number `json:"liters"`
	Operator        *string `json:"operator"`
	WorkDescription *string `json:"workDescription"`
	Version         int     `json:"version"`

	TankIdentifier    *string         `json:"tankIdentifier"`
	MachineIdentifier *string         `json:"machineIdentifier"`
	Scope             *string         `json:"scope"`
	CreatedAt         json.RawMessage `json:"createdAt"`
	RecordedAt        json.RawMessage `json:"recordedAt"`
}

// ToPatch maps the request to a patch.
func (r UpdateConsumptionRequest) ToPatch() consumption.Patch {
	return consumption.Patch{
		Liters:            r.Liters.StringPtr(),
		Operator:          r.Operator,
		WorkDescription:   r.WorkDescription,
		Version:           r.Version,
		TankIdentifier:    r.TankIdentifier,
		MachineIdentifier: r.MachineIdentifier,
		Scope:             r.Scope,
		CreatedAt:         presentTime(r.CreatedAt),
		RecordedAt:        presentTime(r.RecordedAt),
	}
}

// presentTime only signals that the field was sent; its value is never used.
func presentTime(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var t time.Time
	_ = json.Unmarshal(raw, &t)
	return &t
}

// ResolvedRef names the catalog row an identifier resolved to.
type ResolvedRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateConsumptionResponse reports what a create resolved to.
type CreateConsumptionResponse struct {
	RecordID        string      `json:"recordId"`
	ResolvedTank    ResolvedRef `json:"resolvedTank"`
	ResolvedMachine ResolvedRef `json:"resolvedMachine"`
	Scope           string      `json:"scope"`
	Ledger          string      `json:"ledger"`
}

// FromResolution builds the create response.
func FromResolution(rec *consumption.Record, res consumption.Resolution) CreateConsumptionResponse {
	return CreateConsumptionResponse{
		RecordID:        rec.ID.String(),
		ResolvedTank:    ResolvedRef{ID: res.Tank.ID.String(), Code: res.Tank.Code, Name: res.Tank.Name},
		ResolvedMachine: ResolvedRef{ID: res.Machine.ID.String(), Code: res.Machine.Code, Name: res.Machine.Name},
		Scope:           res.Scope.String(),
		Ledger:          string(res.Ledger),
	}
}

// ConsumptionResponse is the record view.
type ConsumptionResponse struct {
	ID              string       `json:"id"`
	Version         int          `json:"version"`
	TankID          string       `json:"tankId"`
	TankCode        string       `json:"tankCode"`
	MachineID       string       `json:"machineId"`
	MachineCode     string       `json:"machineCode"`
	Liters          types.Liters `json:"liters"`
	Operator        string       `json:"operator"`
	WorkDescription string       `json:"workDescription,omitempty"`
	RecordedAt      time.Time    `json:"recordedAt"`
	Scope           string       `json:"scope"`
	IsPublic        bool         `json:"isPublic"`
	CreatedBy       string       `json:"createdBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// FromRecord maps a record to its response.
func FromRecord(r *consumption.Record) ConsumptionResponse {
	return ConsumptionResponse{
		ID:              r.ID.String(),
		Version:         r.Version,
		TankID:          r.TankID.String(),
		TankCode:        r.TankCode,
		MachineID:       r.MachineID.String(),
		MachineCode:     r.MachineCode,
		Liters:          r.Liters,
		Operator:        r.Operator,
		WorkDescription: r.WorkDescription,
		RecordedAt:      r.RecordedAt,
		Scope:           r.Scope().String(),
		IsPublic:        r.IsPublic,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// FromRecords maps a slice.
func FromRecords(rs []*consumption.Record) []ConsumptionResponse {
	out := make([]ConsumptionResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromRecord(r))
	}
	return out
}

// ListConsumptionQuery is bound from the query string. Dates accept RFC 3339
// or YYYY-MM-DD; the range is [dateFrom, dateTo).
type ListConsumptionQuery struct {
	MachineID string `form:"machineId"`
	DateFrom  string `form:"dateFrom"`
	DateTo    string `form:"dateTo"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

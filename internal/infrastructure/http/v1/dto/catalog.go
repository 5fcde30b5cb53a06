package dto

import (
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
)

// CreateTankRequest for creating tanks. An empty code is generated.
type CreateTankRequest struct {
	Code          string  `json:"code"`
	Name          string  `json:"name" binding:"required"`
	Capacity      Number  `json:"capacity" binding:"required"`
	InitialLevel  *Number `json:"initialLevel"`
	LegacyCodeKey *string `json:"legacyCodeKey"`
}

// UpdateTankRequest changes tank metadata. The level cannot be set here.
type UpdateTankRequest struct {
	Code          *string `json:"code"`
	Name          *string `json:"name"`
	Capacity      *Number `json:"capacity"`
	LegacyCodeKey *string `json:"legacyCodeKey"`
	CurrentLevel  *Number `json:"currentLevel"`
	Version       int     `json:"version"`
}

// TankResponse is the full tank view for authenticated callers.
type TankResponse struct {
	ID                string       `json:"id"`
	Version           int          `json:"version"`
	Code              string       `json:"code"`
	Name              string       `json:"name"`
	LegacyCodeKey     *string      `json:"legacyCodeKey,omitempty"`
	Active            bool         `json:"active"`
	Capacity          types.Liters `json:"capacity"`
	CurrentLevel      types.Liters `json:"currentLevel"`
	OwnerUserID       string       `json:"ownerUserId,omitempty"`
	CredentialGroupID string       `json:"credentialGroupId,omitempty"`
	OrganizationName  string       `json:"organizationName,omitempty"`
	Scope             string       `json:"scope"`
}

// FromTank maps a tank to its response.
func FromTank(t *tank.Tank) TankResponse {
	resp := TankResponse{
		ID:                t.ID.String(),
		Version:           t.Version,
		Code:              t.Code,
		Name:              t.Name,
		Active:            t.Active,
		Capacity:          t.Capacity,
		CurrentLevel:      t.CurrentLevel,
		OwnerUserID:       t.OwnerUserID,
		CredentialGroupID: t.CredentialGroupID,
		OrganizationName:  t.OrganizationName,
		Scope:             t.Ownership.Scope().String(),
	}
	if t.LegacyCodeKey != nil {
		s := t.LegacyCodeKey.String()
		resp.LegacyCodeKey = &s
	}
	return resp
}

// KioskTankResponse is the public tank view. Ownership is left out.
type KioskTankResponse struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Capacity     types.Liters `json:"capacity"`
	CurrentLevel types.Liters `json:"currentLevel"`
}

// FromTankPublic maps a tank to its kiosk view.
func FromTankPublic(t *tank.Tank) KioskTankResponse {
	return KioskTankResponse{
		ID:           t.ID.String(),
		Code:         t.Code,
		Name:         t.Name,
		Capacity:     t.Capacity,
		CurrentLevel: t.CurrentLevel,
	}
}

// CreateMachineRequest for creating machines.
type CreateMachineRequest struct {
	Code            string  `json:"code"`
	Name            string  `json:"name" binding:"required"`
	DefaultTankCode string  `json:"defaultTankCode"`
	Description     string  `json:"description"`
	LegacyCodeKey   *string `json:"legacyCodeKey"`
}

// UpdateMachineRequest changes machine fields that are present.
type UpdateMachineRequest struct {
	Code            *string `json:"code"`
	Name            *string `json:"name"`
	DefaultTankCode *string `json:"defaultTankCode"`
	Description     *string `json:"description"`
	LegacyCodeKey   *string `json:"legacyCodeKey"`
}

// MachineResponse is the machine view.
type MachineResponse struct {
	ID                string  `json:"id"`
	Version           int     `json:"version"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	LegacyCodeKey     *string `json:"legacyCodeKey,omitempty"`
	Active            bool    `json:"active"`
	DefaultTankCode   string  `json:"defaultTankCode,omitempty"`
	Description       string  `json:"description,omitempty"`
	OwnerUserID       string  `json:"ownerUserId,omitempty"`
	CredentialGroupID string  `json:"credentialGroupId,omitempty"`
	OrganizationName  string  `json:"organizationName,omitempty"`
}

// FromMachine maps a machine to its response.
func FromMachine(m *machine.Machine) MachineResponse {
	resp := MachineResponse{
		ID:                m.ID.String(),
		Version:           m.Version,
		Code:              m.Code,
		Name:              m.Name,
		Active:            m.Active,
		DefaultTankCode:   m.DefaultTankCode,
		Description:       m.Description,
		OwnerUserID:       m.OwnerUserID,
		CredentialGroupID: m.CredentialGroupID,
		OrganizationName:  m.OrganizationName,
	}
	if m.LegacyCodeKey != nil {
		s := m.LegacyCodeKey.String()
		resp.LegacyCodeKey = &s
	}
	return resp
}

// FromMachines maps a slice.
func FromMachines(ms []*machine.Machine) []MachineResponse {
	out := make([]MachineResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromMachine(m))
	}
	return out
}

// KioskMachineTankResponse pairs a scanned machine with its default tank.
type KioskMachineTankResponse struct {
	MachineID   string            `json:"machineId"`
	MachineCode string            `json:"machineCode"`
	MachineName string            `json:"machineName"`
	Tank        KioskTankResponse `json:"tank"`
}

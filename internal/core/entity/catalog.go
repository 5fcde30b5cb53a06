package entity

import (
	"context"
	"strings"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
)

// Catalog is the base type for reference data addressed by free-form identifiers.
// A catalog row can be found by ID, Code, LegacyCodeKey or Name.
type Catalog struct {
	BaseEntity

	// Code is the user-assigned identifier (unique within the owning scope)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// LegacyCodeKey holds codes that older clients stored as key-typed values.
	LegacyCodeKey *id.ID `db:"legacy_code_key" json:"legacyCodeKey,omitempty"`

	// Active is cleared instead of deleting the row.
	Active bool `db:"active" json:"active"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       code,
		Name:       name,
		Active:     true,
	}
}

// Validate implements Validatable interface.
// Code can be auto-generated, so it's optional here.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Ownership holds the three owner references an entity may carry.
// Empty strings mean "not set".
type Ownership struct {
	OwnerUserID       string `db:"owner_user_id" json:"ownerUserId,omitempty"`
	CredentialGroupID string `db:"credential_group_id" json:"credentialGroupId,omitempty"`
	OrganizationName  string `db:"organization_name" json:"organizationName,omitempty"`
}

// OwnershipFromSession stamps only the session's authoritative reference,
// so the stored row and Scope never disagree about who owns it.
func OwnershipFromSession(s security.Session) Ownership {
	switch {
	case s.CredentialGroupID != "":
		return Ownership{CredentialGroupID: s.CredentialGroupID}
	case s.OrganizationName != "":
		return Ownership{OrganizationName: s.OrganizationName}
	default:
		return Ownership{OwnerUserID: s.UserID}
	}
}

// Scope returns the authoritative owner: credential group, else organization, else user.
func (o Ownership) Scope() security.Scope {
	switch {
	case o.CredentialGroupID != "":
		return security.CredentialGroup(o.CredentialGroupID)
	case o.OrganizationName != "":
		return security.Organization(o.OrganizationName)
	case o.OwnerUserID != "":
		return security.User(o.OwnerUserID)
	default:
		return security.Scope{}
	}
}

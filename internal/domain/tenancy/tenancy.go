// Package tenancy decides which scope owns an action.
//
// The same rules serve write attribution (stamping new records) and read
// filtering, so list endpoints and create endpoints can never disagree on
// who owns what.
package tenancy

import (
	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/security"
)

// Resolved carries the ownership of whatever the request resolved.
// Either field may be nil.
type Resolved struct {
	Tank    *entity.Ownership
	Machine *entity.Ownership
}

// SessionScope applies the authenticated fallback chain:
// credential group, then organization, then the user.
func SessionScope(s security.Session) security.Scope {
	switch {
	case s.CredentialGroupID != "":
		return security.CredentialGroup(s.CredentialGroupID)
	case s.OrganizationName != "":
		return security.Organization(s.OrganizationName)
	default:
		return security.User(s.UserID)
	}
}

// ResolveScope returns the scope new data is attributed to.
//
// Authenticated actors are scoped by their session. Anonymous actors are
// scoped by what they resolved: the tank's credential group or owner first,
// then the machine's credential group, organization or owner, and finally
// the sentinel anonymous scope.
func ResolveScope(actor security.Actor, r Resolved) security.Scope {
	switch a := actor.(type) {
	case security.Authenticated:
		return SessionScope(a.Session)
	default:
		return derivedScope(r)
	}
}

func derivedScope(r Resolved) security.Scope {
	// Ownership.Scope is the same fallback the read filter matches on
	if t := r.Tank; t != nil {
		if scope := t.Scope(); !scope.IsZero() {
			return scope
		}
	}
	if m := r.Machine; m != nil {
		if scope := m.Scope(); !scope.IsZero() {
			return scope
		}
	}
	return security.AnonymousScope()
}

// Filter restricts reads. Unrestricted is set for super-admins only.
type Filter struct {
	Scope        security.Scope
	Unrestricted bool
}

// ScopePtr returns nil for unrestricted filters, in the form list filters expect.
func (f Filter) ScopePtr() *security.Scope {
	if f.Unrestricted {
		return nil
	}
	s := f.Scope
	return &s
}

// ReadFilter builds the list filter for actor. Anonymous actors cannot list.
func ReadFilter(actor security.Actor) (Filter, error) {
	a, ok := actor.(security.Authenticated)
	if !ok {
		return Filter{}, apperror.NewUnauthorized("authentication required")
	}
	if a.Session.IsSuperAdmin() {
		return Filter{Unrestricted: true}, nil
	}
	return Filter{Scope: SessionScope(a.Session)}, nil
}

// Authorize checks that actor may modify something owned by owner.
// The error does not say whether the target exists under another scope.
func Authorize(actor security.Actor, owner security.Scope) error {
	f, err := ReadFilter(actor)
	if err != nil {
		return err
	}
	if f.Unrestricted || f.Scope == owner {
		return nil
	}
	return apperror.NewForbidden("access denied")
}

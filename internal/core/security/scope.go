// Package security provides the authorization scope and actor model.
package security

import (
	"fmt"
	"strings"
)

// ScopeKind tags which attribute of an actor or entity owns it.
type ScopeKind string

const (
	ScopeCredentialGroup ScopeKind = "credential_group"
	ScopeOrganization    ScopeKind = "organization"
	ScopeUser            ScopeKind = "user"
	ScopeAnonymous       ScopeKind = "anonymous"
)

// Scope is the authorization and attribution boundary: exactly one of
// credential group, organization or user. ScopeAnonymous is the sentinel
// used when a public request cannot be attributed to any owner.
type Scope struct {
	Kind  ScopeKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

func CredentialGroup(id string) Scope { return Scope{Kind: ScopeCredentialGroup, Value: id} }
func Organization(name string) Scope  { return Scope{Kind: ScopeOrganization, Value: name} }
func User(id string) Scope            { return Scope{Kind: ScopeUser, Value: id} }

// AnonymousScope returns the sentinel scope for unattributed public writes.
func AnonymousScope() Scope { return Scope{Kind: ScopeAnonymous} }

// IsZero reports whether the scope was never set.
func (s Scope) IsZero() bool { return s.Kind == "" }

// IsAnonymous reports whether s is the sentinel anonymous scope.
func (s Scope) IsAnonymous() bool { return s.Kind == ScopeAnonymous }

// String renders "kind:value", the form used in logs and audit entries.
func (s Scope) String() string {
	if s.Kind == ScopeAnonymous {
		return string(ScopeAnonymous)
	}
	return string(s.Kind) + ":" + s.Value
}

// ParseScope is the inverse of String.
func ParseScope(raw string) (Scope, error) {
	if raw == string(ScopeAnonymous) {
		return AnonymousScope(), nil
	}
	kind, value, ok := strings.Cut(raw, ":")
	if !ok || value == "" {
		return Scope{}, fmt.Errorf("invalid scope %q", raw)
	}
	switch ScopeKind(kind) {
	case ScopeCredentialGroup, ScopeOrganization, ScopeUser:
		return Scope{Kind: ScopeKind(kind), Value: value}, nil
	default:
		return Scope{}, fmt.Errorf("unknown scope kind %q", kind)
	}
}

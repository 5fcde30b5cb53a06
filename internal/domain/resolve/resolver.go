// Package resolve turns a caller-supplied identifier into one catalog row.
//
// An identifier may be the row's key, its user-assigned code, a legacy code
// that older clients stored as a key-typed value, or its display name.
// All applicable representations are tried in one disjunctive lookup and the
// first row the store returns wins. Duplicates across representations (a name
// equal to another row's code, say) are a known ambiguity that this package
// does not try to rank.
package resolve

import (
	"context"
	"strings"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
)

// Kind names the catalog being searched.
type Kind string

const (
	KindTank    Kind = "tank"
	KindMachine Kind = "machine"
)

// Field is a column that can identify a catalog row.
type Field string

const (
	FieldID            Field = "id"
	FieldCode          Field = "code"
	FieldLegacyCodeKey Field = "legacy_code_key"
	FieldName          Field = "name"
)

// Predicate is one "column = value" candidate.
type Predicate struct {
	Field Field
	Value any
}

// Candidates returns the predicates applicable to identifier, in a fixed order.
// Key-typed predicates are only included when identifier parses as a key.
func Candidates(identifier string) []Predicate {
	if strings.TrimSpace(identifier) == "" {
		return nil
	}

	preds := make([]Predicate, 0, 4)
	key, err := id.Parse(identifier)
	isKey := err == nil && id.IsKey(identifier)

	if isKey {
		preds = append(preds, Predicate{Field: FieldID, Value: key})
	}
	preds = append(preds, Predicate{Field: FieldCode, Value: identifier})
	if isKey {
		preds = append(preds, Predicate{Field: FieldLegacyCodeKey, Value: key})
	}
	preds = append(preds, Predicate{Field: FieldName, Value: identifier})
	return preds
}

// Query is what a Store receives.
type Query struct {
	Predicates []Predicate
	// Scope narrows the match to rows owned by this scope. Nil means any owner.
	Scope *security.Scope
}

// Store runs the disjunctive lookup against active rows.
// It returns an apperror NotFound when nothing matches.
type Store[T any] interface {
	FindFirst(ctx context.Context, q Query) (T, error)
}

// Option adjusts a single resolution.
type Option func(*Query)

// WithinScope restricts matches to rows owned by scope.
func WithinScope(scope security.Scope) Option {
	return func(q *Query) { q.Scope = &scope }
}

// ForActor restricts matches to the actor's own scope unless the actor is a
// super-admin or anonymous. Anonymous callers resolve across owners because
// their attribution is derived from what they resolve.
func ForActor(actor security.Actor, scope security.Scope) Option {
	return func(q *Query) {
		if _, ok := actor.(security.Authenticated); !ok || security.IsSuperAdmin(actor) {
			return
		}
		q.Scope = &scope
	}
}

// Resolver resolves identifiers for one catalog kind.
type Resolver[T any] struct {
	kind  Kind
	store Store[T]
}

// New creates a resolver for kind backed by store.
func New[T any](kind Kind, store Store[T]) *Resolver[T] {
	return &Resolver[T]{kind: kind, store: store}
}

// Kind returns the catalog this resolver searches.
func (r *Resolver[T]) Kind() Kind { return r.kind }

// Resolve returns the first active row matching any representation of identifier.
func (r *Resolver[T]) Resolve(ctx context.Context, identifier string, opts ...Option) (T, error) {
	var zero T

	q := Query{Predicates: Candidates(identifier)}
	if len(q.Predicates) == 0 {
		return zero, apperror.NewNotFound(string(r.kind), identifier)
	}
	for _, opt := range opts {
		opt(&q)
	}

	found, err := r.store.FindFirst(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return zero, apperror.NewNotFound(string(r.kind), identifier)
		}
		return zero, apperror.EnsureStore("resolve "+string(r.kind), err)
	}
	return found, nil
}

// Package memory provides in-memory stores for development and tests.
// Rows are kept in insertion order, which is the "storage order" that
// first-match resolution sees.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
	"fuelops/internal/domain"
	"fuelops/internal/domain/resolve"
)

// TxManager runs fn directly. Memory stores apply each call atomically.
type TxManager struct{}

func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Catalogs is a generic catalog store.
type Catalogs[T any] struct {
	mu    sync.RWMutex
	kind  string
	rows  []T
	view  func(T) (*entity.Catalog, entity.Ownership)
	clone func(T) T
	// keep copies columns that Update must not overwrite from stored into next.
	keep func(stored, next T)

	// FailWith, when set, is returned by every call. Tests use it to simulate store outages.
	FailWith error
}

func newCatalogs[T any](kind string, view func(T) (*entity.Catalog, entity.Ownership), clone func(T) T) *Catalogs[T] {
	return &Catalogs[T]{kind: kind, view: view, clone: clone}
}

func (s *Catalogs[T]) Create(_ context.Context, e T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	c, own := s.view(e)
	for _, row := range s.rows {
		rc, rown := s.view(row)
		if rc.Code == c.Code && rown == own {
			return apperror.NewDuplicate(s.kind, "code", c.Code)
		}
	}
	s.rows = append(s.rows, s.clone(e))
	return nil
}

func (s *Catalogs[T]) GetByID(_ context.Context, entityID id.ID) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	if s.FailWith != nil {
		return zero, s.FailWith
	}
	if i := s.indexLocked(entityID); i >= 0 {
		return s.clone(s.rows[i]), nil
	}
	return zero, apperror.NewNotFound(s.kind, entityID.String())
}

// Update replaces the row when versions match and bumps the stored version.
func (s *Catalogs[T]) Update(_ context.Context, e T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	c, _ := s.view(e)
	i := s.indexLocked(c.ID)
	if i < 0 {
		return apperror.NewNotFound(s.kind, c.ID.String())
	}
	stored, _ := s.view(s.rows[i])
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification(s.kind, c.ID.String())
	}
	next := s.clone(e)
	if s.keep != nil {
		s.keep(s.rows[i], next)
	}
	nc, _ := s.view(next)
	nc.Version++
	s.rows[i] = next
	return nil
}

func (s *Catalogs[T]) SetActive(_ context.Context, entityID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	i := s.indexLocked(entityID)
	if i < 0 {
		return apperror.NewNotFound(s.kind, entityID.String())
	}
	c, _ := s.view(s.rows[i])
	c.Active = active
	c.Version++
	return nil
}

func (s *Catalogs[T]) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return domain.ListResult[T]{}, s.FailWith
	}

	search := strings.ToLower(filter.Search)
	var items []T
	for _, row := range s.rows {
		c, own := s.view(row)
		if !c.Active && !filter.IncludeInactive {
			continue
		}
		if !scopeMatches(own, filter.Scope) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Code), search) &&
			!strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		items = append(items, s.clone(row))
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, _ := s.view(items[i])
		b, _ := s.view(items[j])
		return a.Name < b.Name
	})

	total := int64(len(items))
	items = page(items, filter.Limit, filter.Offset)
	return domain.ListResult[T]{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// FindFirst returns the first active row, in insertion order, matching any predicate.
func (s *Catalogs[T]) FindFirst(_ context.Context, q resolve.Query) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	if s.FailWith != nil {
		return zero, s.FailWith
	}

	for _, row := range s.rows {
		c, own := s.view(row)
		if !c.Active {
			continue
		}
		if !scopeMatches(own, q.Scope) {
			continue
		}
		for _, p := range q.Predicates {
			if matches(c, p) {
				return s.clone(row), nil
			}
		}
	}
	return zero, apperror.NewNotFound(s.kind, "")
}

func (s *Catalogs[T]) indexLocked(entityID id.ID) int {
	for i, row := range s.rows {
		if c, _ := s.view(row); c.ID == entityID {
			return i
		}
	}
	return -1
}

func (s *Catalogs[T]) scan(fn func(T, *entity.Catalog, entity.Ownership) bool) {
	for _, row := range s.rows {
		c, own := s.view(row)
		if !fn(row, c, own) {
			return
		}
	}
}

func matches(c *entity.Catalog, p resolve.Predicate) bool {
	switch p.Field {
	case resolve.FieldID:
		return c.ID == p.Value
	case resolve.FieldCode:
		return c.Code == p.Value
	case resolve.FieldLegacyCodeKey:
		return c.LegacyCodeKey != nil && *c.LegacyCodeKey == p.Value
	case resolve.FieldName:
		return c.Name == p.Value
	}
	return false
}

func scopeMatches(own entity.Ownership, scope *security.Scope) bool {
	return scope == nil || own.Scope() == *scope
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

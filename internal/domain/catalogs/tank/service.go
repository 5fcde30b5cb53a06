package tank

import (
	"context"
	"fmt"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/numerator"
	"fuelops/internal/core/security"
	"fuelops/internal/core/tx"
	"fuelops/internal/domain"
	"fuelops/internal/domain/resolve"
	"fuelops/internal/domain/tenancy"
)

const codePrefix = "TNK"

// Service provides business logic for the Tank catalog.
type Service struct {
	*domain.CatalogService[*Tank]
	repo      Repository
	resolver  *resolve.Resolver[*Tank]
	numerator numerator.Generator
}

// NewService creates a new Tank service.
func NewService(repo Repository, txm tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Tank]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "tank",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		resolver:       resolve.New[*Tank](resolve.KindTank, repo),
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// Resolver exposes identifier resolution for tanks.
func (s *Service) Resolver() *resolve.Resolver[*Tank] {
	return s.resolver
}

func (s *Service) prepareForCreate(ctx context.Context, t *Tank) error {
	if t.Code != "" {
		return nil
	}
	code, err := s.numerator.Next(ctx, numerator.DefaultConfig(codePrefix), time.Now())
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	t.Code = code
	return nil
}

// CreateFor stamps the actor's ownership on t and stores it.
// Only authenticated actors may create tanks.
func (s *Service) CreateFor(ctx context.Context, actor security.Actor, t *Tank) error {
	a, ok := actor.(security.Authenticated)
	if !ok {
		return apperror.NewUnauthorized("authentication required")
	}
	t.Ownership = entity.OwnershipFromSession(a.Session)
	t.Active = true
	return s.Create(ctx, t)
}

// Get resolves identifier. Authenticated actors only see tanks in their own scope.
func (s *Service) Get(ctx context.Context, actor security.Actor, identifier string) (*Tank, error) {
	return s.resolver.Resolve(ctx, identifier, resolve.ForActor(actor, tenancy.ResolveScope(actor, tenancy.Resolved{})))
}

// UpdateFor resolves the tank, authorizes the actor and applies mutate.
// The level is never written here.
func (s *Service) UpdateFor(ctx context.Context, actor security.Actor, identifier string, version int, mutate func(*Tank)) (*Tank, error) {
	t, err := s.Get(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	if err := tenancy.Authorize(actor, t.Ownership.Scope()); err != nil {
		return nil, err
	}
	if version != 0 && version != t.Version {
		return nil, apperror.NewConcurrentModification("tank", t.ID.String())
	}

	mutate(t)
	if err := s.Update(ctx, t); err != nil {
		return nil, err
	}
	t.Version++
	return t, nil
}

// DeactivateFor soft-deletes the tank. Records pointing at it keep their
// history; later deltas against it become reconciliation gaps.
func (s *Service) DeactivateFor(ctx context.Context, actor security.Actor, identifier string) (*Tank, error) {
	t, err := s.Get(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	if err := tenancy.Authorize(actor, t.Ownership.Scope()); err != nil {
		return nil, err
	}
	if err := s.Deactivate(ctx, t, t.ID); err != nil {
		return nil, err
	}
	t.Active = false
	return t, nil
}

// ListFor lists tanks visible to actor.
func (s *Service) ListFor(ctx context.Context, actor security.Actor, filter domain.ListFilter) (domain.ListResult[*Tank], error) {
	f, err := tenancy.ReadFilter(actor)
	if err != nil {
		return domain.ListResult[*Tank]{}, err
	}
	filter.Scope = f.ScopePtr()
	return s.List(ctx, filter)
}

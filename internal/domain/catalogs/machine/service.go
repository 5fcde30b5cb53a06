package machine

import (
	"context"
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

// Service provides business logic for the machine directory.
type Service struct {
	*domain.CatalogService[*Machine]
	repo     Repository
	resolver *resolve.Resolver[*Machine]
}

// NewService creates a new Machine service.
func NewService(repo Repository, txm tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Machine]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "machine",
	})

	base.Hooks().OnBeforeCreate(func(ctx context.Context, m *Machine) error {
		if m.Code != "" {
			return nil
		}
		code, err := gen.Next(ctx, numerator.DefaultConfig("MCH"), time.Now())
		m.Code = code
		return err
	})

	return &Service{
		CatalogService: base,
		repo:           repo,
		resolver:       resolve.New[*Machine](resolve.KindMachine, repo),
	}
}

// Resolver exposes identifier resolution for machines.
func (s *Service) Resolver() *resolve.Resolver[*Machine] {
	return s.resolver
}

// CreateFor stamps the actor's ownership and stores m.
func (s *Service) CreateFor(ctx context.Context, actor security.Actor, m *Machine) error {
	a, ok := actor.(security.Authenticated)
	if !ok {
		return apperror.NewUnauthorized("authentication required")
	}
	m.Ownership = entity.OwnershipFromSession(a.Session)
	m.Active = true
	return s.Create(ctx, m)
}

// Get resolves identifier within the actor's scope (any scope for anonymous kiosks).
func (s *Service) Get(ctx context.Context, actor security.Actor, identifier string) (*Machine, error) {
	return s.resolver.Resolve(ctx, identifier, resolve.ForActor(actor, tenancy.ResolveScope(actor, tenancy.Resolved{})))
}

// UpdateFor resolves, authorizes and applies mutate.
func (s *Service) UpdateFor(ctx context.Context, actor security.Actor, identifier string, mutate func(*Machine)) (*Machine, error) {
	m, err := s.Get(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	if err := tenancy.Authorize(actor, m.Ownership.Scope()); err != nil {
		return nil, err
	}
	mutate(m)
	if err := s.Update(ctx, m); err != nil {
		return nil, err
	}
	m.Version++
	return m, nil
}

// DeactivateFor soft-deletes the machine.
func (s *Service) DeactivateFor(ctx context.Context, actor security.Actor, identifier string) (*Machine, error) {
	m, err := s.Get(ctx, actor, identifier)
	if err != nil {
		return nil, err
	}
	if err := tenancy.Authorize(actor, m.Ownership.Scope()); err != nil {
		return nil, err
	}
	if err := s.Deactivate(ctx, m, m.ID); err != nil {
		return nil, err
	}
	m.Active = false
	return m, nil
}

// ListFor lists machines visible to actor.
func (s *Service) ListFor(ctx context.Context, actor security.Actor, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	f, err := tenancy.ReadFilter(actor)
	if err != nil {
		return domain.ListResult[*Machine]{}, err
	}
	filter.Scope = f.ScopePtr()
	return s.List(ctx, filter)
}

// ListForTank lists machines that use tankCode as their default tank.
func (s *Service) ListForTank(ctx context.Context, actor security.Actor, tankCode string) ([]*Machine, error) {
	f, err := tenancy.ReadFilter(actor)
	if err != nil {
		return nil, err
	}
	machines, err := s.repo.ListByDefaultTank(ctx, tankCode, f.ScopePtr())
	if err != nil {
		return nil, apperror.EnsureStore("list machines for tank", err)
	}
	return machines, nil
}

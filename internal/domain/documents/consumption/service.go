package consumption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
	"fuelops/internal/core/tx"
	"fuelops/internal/core/types"
	"fuelops/internal/domain"
	"fuelops/internal/domain/audit"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/ledger"
	"fuelops/internal/domain/resolve"
	"fuelops/internal/domain/tenancy"
	"fuelops/pkg/logger"
)

// TankResolver resolves free-form tank identifiers.
type TankResolver interface {
	Resolve(ctx context.Context, identifier string, opts ...resolve.Option) (*tank.Tank, error)
}

// MachineResolver resolves free-form machine identifiers.
type MachineResolver interface {
	Resolve(ctx context.Context, identifier string, opts ...resolve.Option) (*machine.Machine, error)
}

// Ledger applies tank deltas after the record write.
type Ledger interface {
	Reconcile(ctx context.Context, ref ledger.RecordRef, tankID id.ID, delta types.Liters) ledger.Outcome
}

// Config wires the service. Events, Audit and Clock are optional.
type Config struct {
	Repo      Repository
	TxManager tx.Manager
	Tanks     TankResolver
	Machines  MachineResolver
	Ledger    Ledger
	Events    domain.EventPublisher
	Audit     audit.Recorder
	Clock     func() time.Time
}

// Service orchestrates identifier resolution, tenancy and the ledger
// around each record mutation.
type Service struct {
	repo      Repository
	txManager tx.Manager
	tanks     TankResolver
	machines  MachineResolver
	ledger    Ledger
	events    domain.EventPublisher
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new consumption record service.
func NewService(cfg Config) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		tanks:     cfg.Tanks,
		machines:  cfg.Machines,
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		audit:     cfg.Audit,
		now:       cfg.Clock,
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = audit.NopRecorder{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Create validates input, resolves the tank and machine, stamps the owning
// scope, stores the record and then subtracts its liters from the tank.
// A failed tank adjustment does not fail the create.
func (s *Service) Create(ctx context.Context, actor security.Actor, in CreateInput) (*Record, Resolution, error) {
	liters, err := in.validate()
	if err != nil {
		return nil, Resolution{}, err
	}

	within := resolve.ForActor(actor, tenancy.ResolveScope(actor, tenancy.Resolved{}))
	t, err := s.tanks.Resolve(ctx, strings.TrimSpace(in.TankIdentifier), within)
	if err != nil {
		return nil, Resolution{}, err
	}
	m, err := s.machines.Resolve(ctx, strings.TrimSpace(in.MachineIdentifier), within)
	if err != nil {
		return nil, Resolution{}, err
	}

	scope := tenancy.ResolveScope(actor, tenancy.Resolved{Tank: &t.Ownership, Machine: &m.Ownership})

	now := s.now()
	rec := &Record{
		BaseDocument:    entity.NewBaseDocument(),
		TankID:          t.ID,
		TankCode:        t.Code,
		MachineID:       m.ID,
		MachineCode:     m.Code,
		Liters:          liters,
		Operator:        strings.TrimSpace(in.Operator),
		WorkDescription: strings.TrimSpace(in.WorkDescription),
		RecordedAt:      now,
		IsPublic:        in.IsPublic,
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	if in.RecordedAt != nil {
		rec.RecordedAt = in.RecordedAt.UTC()
	}
	if _, anon := actor.(security.Anonymous); anon {
		rec.IsPublic = true
	}
	rec.stampScope(scope)
	audit.EnrichCreatedBy(ctx, &rec.CreatedBy)

	if err := rec.Validate(ctx); err != nil {
		return nil, Resolution{}, err
	}

	delta := liters.Neg()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		if err := s.events.Publish(ctx, newEvent(EventRecorded, rec, delta.String())); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: AggregateType,
			EntityID:   rec.ID,
			Action:     audit.ActionCreate,
			Scope:      scope.String(),
			Changes:    rec,
		})
	})
	if err != nil {
		return nil, Resolution{}, apperror.EnsureStore("create consumption record", err)
	}

	outcome := s.ledger.Reconcile(ctx, ledger.RecordRef{RecordID: rec.ID, Transition: ledger.TransitionCreate},
		rec.TankID, delta)

	logger.Info(ctx, "consumption recorded",
		"record_id", rec.ID,
		"tank", rec.TankCode,
		"machine", rec.MachineCode,
		"liters", rec.Liters.String(),
		"scope", scope.String(),
		"ledger", outcome,
	)

	return rec, Resolution{Tank: t, Machine: m, Scope: scope, Ledger: outcome}, nil
}

// Get returns a record the actor may see. A record owned by another scope
// is reported as not found.
func (s *Service) Get(ctx context.Context, actor security.Actor, recordID id.ID) (*Record, error) {
	rec, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := tenancy.Authorize(actor, rec.Scope()); err != nil {
		if apperror.IsForbidden(err) {
			return nil, apperror.NewNotFound(AggregateType, recordID.String())
		}
		return nil, err
	}
	return rec, nil
}

// Update applies p to a record owned by the actor's scope. When liters
// change, the difference old-new is applied to the tank after the write.
func (s *Service) Update(ctx context.Context, actor security.Actor, recordID id.ID, p Patch) (*Record, error) {
	rec, err := s.Get(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}
	if field := p.immutableField(); field != "" {
		return nil, apperror.NewImmutableField(field)
	}
	if p.Version != 0 && p.Version != rec.Version {
		return nil, apperror.NewConcurrentModification(AggregateType, rec.ID.String())
	}

	oldLiters := rec.Liters
	if p.Liters != nil {
		v, err := types.ParseLiters("liters", *p.Liters)
		if err != nil {
			return nil, err
		}
		rec.Liters = v
	}
	if p.Operator != nil {
		rec.Operator = strings.TrimSpace(*p.Operator)
	}
	if p.WorkDescription != nil {
		rec.WorkDescription = strings.TrimSpace(*p.WorkDescription)
	}
	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now()

	delta := oldLiters.Sub(rec.Liters)
	changed := !delta.IsZero()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if changed {
			if err := s.events.Publish(ctx, newEvent(EventLitersChanged, rec, delta.String())); err != nil {
				return fmt.Errorf("publish event: %w", err)
			}
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: AggregateType,
			EntityID:   rec.ID,
			Action:     audit.ActionUpdate,
			Scope:      rec.Scope().String(),
			Changes: map[string]any{
				"liters":          map[string]string{"old": oldLiters.String(), "new": rec.Liters.String()},
				"operator":        rec.Operator,
				"workDescription": rec.WorkDescription,
			},
		})
	})
	if err != nil {
		return nil, apperror.EnsureStore("update consumption record", err)
	}

	if changed {
		s.ledger.Reconcile(ctx, ledger.RecordRef{RecordID: rec.ID, Transition: ledger.TransitionUpdate},
			rec.TankID, delta)
	}

	logger.Info(ctx, "consumption record updated",
		"record_id", rec.ID,
		"liters", rec.Liters.String(),
		"delta", delta.String(),
	)
	return rec, nil
}

// Delete soft-deletes a record and returns its full liters to the tank.
func (s *Service) Delete(ctx context.Context, actor security.Actor, recordID id.ID) (*Record, error) {
	rec, err := s.Get(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}

	delta := rec.Liters
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.MarkDeleted(ctx, rec.ID, rec.Version); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		if err := s.events.Publish(ctx, newEvent(EventDeleted, rec, delta.String())); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: AggregateType,
			EntityID:   rec.ID,
			Action:     audit.ActionDelete,
			Scope:      rec.Scope().String(),
			Changes:    map[string]string{"liters": rec.Liters.String()},
		})
	})
	if err != nil {
		return nil, apperror.EnsureStore("delete consumption record", err)
	}
	rec.DeletionMark = true

	s.ledger.Reconcile(ctx, ledger.RecordRef{RecordID: rec.ID, Transition: ledger.TransitionDelete},
		rec.TankID, delta)

	logger.Info(ctx, "consumption record deleted", "record_id", rec.ID, "liters", rec.Liters.String())
	return rec, nil
}

// List returns records visible to the actor. Super-admins see every scope.
func (s *Service) List(ctx context.Context, actor security.Actor, filter ListFilter) (domain.ListResult[*Record], error) {
	f, err := tenancy.ReadFilter(actor)
	if err != nil {
		return domain.ListResult[*Record]{}, err
	}
	filter.Scope = f.ScopePtr()
	filter.Normalize()

	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.EnsureStore("list consumption records", err)
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, recordID id.ID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(AggregateType, recordID.String())
		}
		return nil, apperror.EnsureStore("get consumption record", err)
	}
	return rec, nil
}

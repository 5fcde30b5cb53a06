package memory

import (
	"context"
	"sort"
	"sync"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/domain"
	"fuelops/internal/domain/documents/consumption"
)

// Records implements consumption.Repository.
type Records struct {
	mu   sync.RWMutex
	rows map[id.ID]*consumption.Record

	FailWith error
}

var _ consumption.Repository = (*Records)(nil)

// NewRecords creates an empty record store.
func NewRecords() *Records {
	return &Records{rows: make(map[id.ID]*consumption.Record)}
}

func (s *Records) Create(_ context.Context, rec *consumption.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.rows[rec.ID]; ok {
		return apperror.NewDuplicate("consumption_record", "id", rec.ID.String())
	}
	c := *rec
	s.rows[rec.ID] = &c
	return nil
}

func (s *Records) GetByID(_ context.Context, recordID id.ID) (*consumption.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	rec, ok := s.rows[recordID]
	if !ok || rec.DeletionMark {
		return nil, apperror.NewNotFound("consumption_record", recordID.String())
	}
	c := *rec
	return &c, nil
}

func (s *Records) Update(_ context.Context, rec *consumption.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	stored, ok := s.rows[rec.ID]
	if !ok || stored.DeletionMark {
		return apperror.NewNotFound("consumption_record", rec.ID.String())
	}
	if stored.Version != rec.Version {
		return apperror.NewConcurrentModification("consumption_record", rec.ID.String())
	}
	rec.Version++
	c := *rec
	s.rows[rec.ID] = &c
	return nil
}

func (s *Records) MarkDeleted(_ context.Context, recordID id.ID, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	stored, ok := s.rows[recordID]
	if !ok || stored.DeletionMark {
		return apperror.NewNotFound("consumption_record", recordID.String())
	}
	if stored.Version != version {
		return apperror.NewConcurrentModification("consumption_record", recordID.String())
	}
	stored.DeletionMark = true
	stored.Version++
	return nil
}

func (s *Records) List(_ context.Context, filter consumption.ListFilter) (domain.ListResult[*consumption.Record], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return domain.ListResult[*consumption.Record]{}, s.FailWith
	}

	var items []*consumption.Record
	for _, rec := range s.rows {
		if rec.DeletionMark {
			continue
		}
		if filter.Scope != nil && rec.Scope() != *filter.Scope {
			continue
		}
		if filter.MachineID != nil && rec.MachineID != *filter.MachineID {
			continue
		}
		if filter.DateFrom != nil && rec.RecordedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && !rec.RecordedAt.Before(*filter.DateTo) {
			continue
		}
		c := *rec
		items = append(items, &c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].RecordedAt.After(items[j].RecordedAt) })

	total := int64(len(items))
	items = page(items, filter.Limit, filter.Offset)
	return domain.ListResult[*consumption.Record]{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

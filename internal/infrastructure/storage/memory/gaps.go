package memory

import (
	"context"
	"sync"
	"time"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/domain/ledger"
)

// Gaps implements ledger.GapStore.
type Gaps struct {
	mu   sync.Mutex
	rows []ledger.Gap
	now  func() time.Time

	FailWith error
}

var _ ledger.GapStore = (*Gaps)(nil)

// NewGaps creates an empty gap store.
func NewGaps() *Gaps {
	return &Gaps{now: func() time.Time { return time.Now().UTC() }}
}

func (s *Gaps) Record(_ context.Context, gap ledger.Gap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.rows = append(s.rows, gap)
	return nil
}

func (s *Gaps) ClaimPending(_ context.Context, limit int) ([]ledger.Gap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	now := s.now()
	var out []ledger.Gap
	for _, g := range s.rows {
		if len(out) == limit {
			break
		}
		if g.Status == ledger.GapPending && (g.NextRetryAt == nil || !g.NextRetryAt.After(now)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Gaps) MarkResolved(_ context.Context, gapID id.ID) error {
	return s.update(gapID, func(g *ledger.Gap) {
		now := s.now()
		g.Status = ledger.GapResolved
		g.ResolvedAt = &now
	})
}

func (s *Gaps) MarkRetry(_ context.Context, gapID id.ID, lastErr string, maxRetries int) error {
	return s.update(gapID, func(g *ledger.Gap) {
		g.RetryCount++
		g.LastError = &lastErr
		if g.RetryCount >= maxRetries {
			g.Status = ledger.GapFailed
			g.NextRetryAt = nil
			return
		}
		next := s.now().Add(time.Duration(g.RetryCount) * time.Minute)
		g.NextRetryAt = &next
	})
}

func (s *Gaps) List(_ context.Context, filter ledger.GapFilter) ([]ledger.Gap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var out []ledger.Gap
	for _, g := range s.rows {
		if filter.Status == "" || g.Status == filter.Status {
			out = append(out, g)
		}
	}
	return page(out, filter.Limit, filter.Offset), nil
}

// All returns a snapshot of every gap.
func (s *Gaps) All() []ledger.Gap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Gap(nil), s.rows...)
}

// SetClock overrides the store clock.
func (s *Gaps) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Gaps) update(gapID id.ID, fn func(*ledger.Gap)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for i := range s.rows {
		if s.rows[i].ID == gapID {
			fn(&s.rows[i])
			return nil
		}
	}
	return apperror.NewNotFound("reconciliation_gap", gapID.String())
}

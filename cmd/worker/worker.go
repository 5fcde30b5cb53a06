package main

import (
	"context"
	"sync"
	"time"

	"fuelops/internal/config"
	"fuelops/pkg/logger"
)

// GapReplayer retries deltas that did not reach their tank.
type GapReplayer interface {
	ReplayBatch(ctx context.Context) (int, error)
}

// OutboxRelay delivers committed outbox events.
type OutboxRelay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
}

// KeyExpirer drops idempotency keys past their TTL.
type KeyExpirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Worker runs the periodic background jobs.
type Worker struct {
	log         *logger.Logger
	cfg         config.WorkerConfig
	replayer    GapReplayer
	relay       OutboxRelay
	idempotency KeyExpirer
}

// Run starts one loop per job and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []struct {
		name     string
		interval time.Duration
		fn       func(ctx context.Context)
	}{
		{"gap_replay", w.cfg.GapReplayInterval, w.replayGaps},
		{"outbox", w.cfg.OutboxInterval, w.relayOutbox},
		{"cleanup", w.cfg.CleanupInterval, w.cleanup},
	}

	for _, l := range loops {
		if l.interval <= 0 {
			w.log.Warnw("job disabled", "job", l.name)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, l.interval, l.fn)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (w *Worker) replayGaps(ctx context.Context) {
	n, err := w.replayer.ReplayBatch(ctx)
	if err != nil {
		w.log.Errorw("gap replay failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("replayed reconciliation gaps", "count", n)
	}
}

func (w *Worker) relayOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox relay failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("outbox dead-letter move failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved outbox messages to dead-letter queue", "count", moved)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}

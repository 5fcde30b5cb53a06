package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/ledger"
	"fuelops/internal/domain/resolve"
	"fuelops/internal/infrastructure/storage/memory"
)

type countingObserver struct {
	mu       sync.Mutex
	applied  map[ledger.Outcome]int
	gaps     map[string]int
	replayed map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		applied:  map[ledger.Outcome]int{},
		gaps:     map[string]int{},
		replayed: map[string]int{},
	}
}

func (o *countingObserver) DeltaApplied(out ledger.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied[out]++
}

func (o *countingObserver) GapRecorded(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gaps[reason]++
}

func (o *countingObserver) GapReplayed(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replayed[result]++
}

type fixture struct {
	tanks    *memory.Tanks
	gaps     *memory.Gaps
	observer *countingObserver
	rec      *ledger.Reconciler
}

func newFixture() *fixture {
	f := &fixture{
		tanks:    memory.NewTanks(),
		gaps:     memory.NewGaps(),
		observer: newCountingObserver(),
	}
	f.rec = ledger.NewReconciler(resolve.New[*tank.Tank](resolve.KindTank, f.tanks), f.tanks, f.gaps, f.observer)
	return f
}

func (f *fixture) seedTank(t *testing.T, code, capacity string) *tank.Tank {
	t.Helper()
	tk := tank.NewTank(code, "Tank "+code, types.MustLiters(capacity))
	require.NoError(t, f.tanks.Create(context.Background(), tk))
	return tk
}

func (f *fixture) level(t *testing.T, tankID id.ID) string {
	t.Helper()
	tk, err := f.tanks.GetByID(context.Background(), tankID)
	require.NoError(t, err)
	return tk.CurrentLevel.String()
}

func TestApplyDelta_AddsToStoredLevel(t *testing.T) {
	f := newFixture()
	tk := f.seedTank(t, "TNK-1", "1000")

	out, err := f.rec.ApplyDelta(context.Background(), "TNK-1", types.MustLiters("-100"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, out)
	assert.Equal(t, "900", f.level(t, tk.ID))

	out, err = f.rec.ApplyDelta(context.Background(), tk.ID.String(), types.MustLiters("25.5"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, out)
	assert.Equal(t, "925.5", f.level(t, tk.ID))
}

func TestApplyDelta_UnknownTank(t *testing.T) {
	f := newFixture()

	out, err := f.rec.ApplyDelta(context.Background(), "nope", types.MustLiters("-1"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TankNotFound, out)
}

func TestApplyDelta_InactiveTankIsNotFound(t *testing.T) {
	f := newFixture()
	tk := f.seedTank(t, "TNK-1", "100")
	require.NoError(t, f.tanks.SetActive(context.Background(), tk.ID, false))

	out, err := f.rec.ApplyDelta(context.Background(), "TNK-1", types.MustLiters("-1"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TankNotFound, out)
}

func TestApplyDelta_OverdraftAndOverfillAreNotClamped(t *testing.T) {
	f := newFixture()
	tk := f.seedTank(t, "TNK-1", "10")

	_, err := f.rec.ApplyDelta(context.Background(), "TNK-1", types.MustLiters("-15"))
	require.NoError(t, err)
	assert.Equal(t, "-5", f.level(t, tk.ID))

	_, err = f.rec.ApplyDelta(context.Background(), "TNK-1", types.MustLiters("40"))
	require.NoError(t, err)
	assert.Equal(t, "35", f.level(t, tk.ID))
}

func TestApplyDelta_ZeroIsNoop(t *testing.T) {
	f := newFixture()

	out, err := f.rec.ApplyDelta(context.Background(), "missing", types.ZeroLiters())
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, out)
	assert.Empty(t, f.observer.applied)
}

func TestApplyDelta_ConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	f := newFixture()
	tk := f.seedTank(t, "TNK-1", "1000")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rec.ApplyDelta(context.Background(), "TNK-1", types.MustLiters("-2.5"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, "750", f.level(t, tk.ID))
	assert.Equal(t, 100, f.observer.applied[ledger.Applied])
}

func TestApplyToTank_UsesKeyOnly(t *testing.T) {
	f := newFixture()
	victim := f.seedTank(t, "TNK-1", "1000")
	// a tank whose legacy key and name spell out another tank's key
	decoy := tank.NewTank("TNK-2", victim.ID.String(), types.MustLiters("1000"))
	legacy := victim.ID
	decoy.LegacyCodeKey = &legacy
	require.NoError(t, f.tanks.Create(context.Background(), decoy))

	out, err := f.rec.ApplyToTank(context.Background(), victim.ID, types.MustLiters("-100"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, out)
	assert.Equal(t, "900", f.level(t, victim.ID))
	assert.Equal(t, "1000", f.level(t, decoy.ID))
}

func TestReconcile_TankNotFoundRecordsGap(t *testing.T) {
	f := newFixture()
	recordID := id.New()
	tankID := id.New()

	out := f.rec.Reconcile(context.Background(),
		ledger.RecordRef{RecordID: recordID, Transition: ledger.TransitionCreate},
		tankID, types.MustLiters("-40"))

	assert.Equal(t, ledger.TankNotFound, out)
	gaps := f.gaps.All()
	require.Len(t, gaps, 1)
	assert.Equal(t, recordID, gaps[0].RecordID)
	assert.Equal(t, ledger.TransitionCreate, gaps[0].Transition)
	assert.Equal(t, tankID, gaps[0].TankID)
	assert.Equal(t, "-40", gaps[0].Delta.String())
	assert.Equal(t, ledger.ReasonTankNotFound, gaps[0].Reason)
	assert.Equal(t, ledger.GapPending, gaps[0].Status)
	assert.Equal(t, 1, f.observer.gaps[ledger.ReasonTankNotFound])
}

func TestReconcile_StoreErrorRecordsGap(t *testing.T) {
	f := newFixture()
	tk := f.seedTank(t, "TNK-1", "100")
	f.tanks.FailWith = errors.New("connection reset")

	out := f.rec.Reconcile(context.Background(),
		ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionDelete},
		tk.ID, types.MustLiters("7"))

	assert.NotEqual(t, ledger.Applied, out)
	gaps := f.gaps.All()
	require.Len(t, gaps, 1)
	assert.Equal(t, ledger.ReasonStoreError, gaps[0].Reason)
	require.NotNil(t, gaps[0].LastError)
	assert.Contains(t, *gaps[0].LastError, "connection reset")
}

func TestReconcile_CancelledContextStillRecordsGap(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.rec.Reconcile(ctx, ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionUpdate},
		id.New(), types.MustLiters("-5"))

	assert.Len(t, f.gaps.All(), 1)
}

func TestReconcile_GapStoreFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.gaps.FailWith = errors.New("disk full")

	assert.NotPanics(t, func() {
		out := f.rec.Reconcile(context.Background(),
			ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionCreate},
			id.New(), types.MustLiters("-5"))
		assert.Equal(t, ledger.TankNotFound, out)
	})
}

func TestReplayer_ResolvesGapOnceTankIsBack(t *testing.T) {
	f := newFixture()
	replayer := ledger.NewReplayer(memory.TxManager{}, f.gaps, f.rec, 10, 5)
	tk := f.seedTank(t, "TNK-LATE", "500")
	require.NoError(t, f.tanks.SetActive(context.Background(), tk.ID, false))

	f.rec.Reconcile(context.Background(), ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionCreate},
		tk.ID, types.MustLiters("-30"))
	require.NoError(t, f.tanks.SetActive(context.Background(), tk.ID, true))

	n, err := replayer.ReplayBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "470", f.level(t, tk.ID))

	// resolved gaps are not replayed again
	n, err = replayer.ReplayBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "470", f.level(t, tk.ID))

	gaps, err := replayer.List(context.Background(), ledger.GapFilter{Status: ledger.GapResolved})
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.NotNil(t, gaps[0].ResolvedAt)
}

func TestReplayer_IgnoresLaterTankWithSameCode(t *testing.T) {
	f := newFixture()
	replayer := ledger.NewReplayer(memory.TxManager{}, f.gaps, f.rec, 10, 5)
	gone := f.seedTank(t, "TNK-1", "500")
	f.tanks.Remove(gone.ID)

	f.rec.Reconcile(context.Background(), ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionCreate},
		gone.ID, types.MustLiters("-30"))
	other := f.seedTank(t, "TNK-1", "500")

	n, err := replayer.ReplayBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "500", f.level(t, other.ID))
}

func TestReplayer_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	f.gaps.SetClock(func() time.Time { return now })
	replayer := ledger.NewReplayer(memory.TxManager{}, f.gaps, f.rec, 10, 3)

	f.rec.Reconcile(context.Background(), ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionCreate},
		id.New(), types.MustLiters("-1"))

	for i := 0; i < 3; i++ {
		n, err := replayer.ReplayBatch(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		now = now.Add(time.Hour)
	}

	gaps := f.gaps.All()
	require.Len(t, gaps, 1)
	assert.Equal(t, ledger.GapFailed, gaps[0].Status)
	assert.Equal(t, 3, gaps[0].RetryCount)
	assert.Equal(t, 3, f.observer.replayed["retry"])
}

func TestReplayer_BackoffDefersRetry(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	f.gaps.SetClock(func() time.Time { return now })
	replayer := ledger.NewReplayer(memory.TxManager{}, f.gaps, f.rec, 10, 5)

	f.rec.Reconcile(context.Background(), ledger.RecordRef{RecordID: id.New(), Transition: ledger.TransitionCreate},
		id.New(), types.MustLiters("-1"))

	_, err := replayer.ReplayBatch(context.Background())
	require.NoError(t, err)
	_, err = replayer.ReplayBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.gaps.All()[0].RetryCount)
}

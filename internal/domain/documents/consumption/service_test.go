package consumption_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelops/internal/core/apperror"
	appctx "fuelops/internal/core/context"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/security"
	"fuelops/internal/core/types"
	"fuelops/internal/domain"
	"fuelops/internal/domain/audit"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/domain/ledger"
	"fuelops/internal/domain/resolve"
	"fuelops/internal/infrastructure/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type recordingAudit struct {
	entries []audit.Entry
}

func (a *recordingAudit) Record(_ context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

// vanishingTanks resolves normally and then drops the tank from the store,
// the way a concurrent purge would between record write and delta.
type vanishingTanks struct {
	inner *resolve.Resolver[*tank.Tank]
	store *memory.Tanks
}

func (v vanishingTanks) Resolve(ctx context.Context, identifier string, opts ...resolve.Option) (*tank.Tank, error) {
	t, err := v.inner.Resolve(ctx, identifier, opts...)
	if err == nil {
		v.store.Remove(t.ID)
	}
	return t, err
}

type harness struct {
	tanks    *memory.Tanks
	machines *memory.Machines
	records  *memory.Records
	gaps     *memory.Gaps
	events   *recordingPublisher
	audit    *recordingAudit
	svc      *consumption.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tanks:    memory.NewTanks(),
		machines: memory.NewMachines(),
		records:  memory.NewRecords(),
		gaps:     memory.NewGaps(),
		events:   &recordingPublisher{},
		audit:    &recordingAudit{},
	}
	h.svc = h.build(resolve.New[*tank.Tank](resolve.KindTank, h.tanks))
	return h
}

func (h *harness) build(tanks consumption.TankResolver) *consumption.Service {
	tankResolver := resolve.New[*tank.Tank](resolve.KindTank, h.tanks)
	return consumption.NewService(consumption.Config{
		Repo:      h.records,
		TxManager: memory.TxManager{},
		Tanks:     tanks,
		Machines:  resolve.New[*machine.Machine](resolve.KindMachine, h.machines),
		Ledger:    ledger.NewReconciler(tankResolver, h.tanks, h.gaps, nil),
		Events:    h.events,
		Audit:     h.audit,
		Clock:     func() time.Time { return time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC) },
	})
}

func (h *harness) seedTank(t *testing.T, code, capacity string, owner security.Session) *tank.Tank {
	t.Helper()
	tk := tank.NewTank(code, "Tank "+code, types.MustLiters(capacity))
	tk.Ownership = entity.OwnershipFromSession(owner)
	require.NoError(t, h.tanks.Create(context.Background(), tk))
	return tk
}

func (h *harness) seedMachine(t *testing.T, code string, owner security.Session) *machine.Machine {
	t.Helper()
	m := machine.NewMachine(code, "Machine "+code)
	m.Ownership = entity.OwnershipFromSession(owner)
	require.NoError(t, h.machines.Create(context.Background(), m))
	return m
}

func (h *harness) level(t *testing.T, tankID id.ID) string {
	t.Helper()
	tk, err := h.tanks.GetByID(context.Background(), tankID)
	require.NoError(t, err)
	return tk.CurrentLevel.String()
}

func strPtr(s string) *string { return &s }

var (
	crewSession  = security.Session{UserID: "u-crew", CredentialGroupID: "cg-north", OrganizationName: "Acme Farms"}
	crew         = security.Authenticated{Session: crewSession}
	otherSession = security.Session{UserID: "u-other", OrganizationName: "Beta Mining"}
	other        = security.Authenticated{Session: otherSession}
	admin        = security.Authenticated{Session: security.Session{UserID: "u-root", Role: appctx.RoleSuperAdmin}}
	kiosk        = security.Anonymous{ClientIP: "10.1.1.1"}
)

func createInput(liters string) consumption.CreateInput {
	return consumption.CreateInput{
		TankIdentifier:    "TNK-1",
		MachineIdentifier: "EXC-7",
		Liters:            liters,
		Operator:          "J. Ortega",
		WorkDescription:   "trenching",
	}
}

func TestService_ConcreteScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "1000", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	rec, res, err := h.svc.Create(ctx, crew, createInput("100"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, res.Ledger)
	assert.Equal(t, "900", h.level(t, tk.ID))

	rec, err = h.svc.Update(ctx, crew, rec.ID, consumption.Patch{Liters: strPtr("150")})
	require.NoError(t, err)
	assert.Equal(t, "850", h.level(t, tk.ID))

	_, err = h.svc.Delete(ctx, crew, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", h.level(t, tk.ID))

	assert.Equal(t, []string{
		consumption.EventRecorded,
		consumption.EventLitersChanged,
		consumption.EventDeleted,
	}, h.events.types())
	assert.Len(t, h.audit.entries, 3)
	assert.Empty(t, h.gaps.All())
}

func TestService_UpdateDeltaSign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "1000", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	rec, _, err := h.svc.Create(ctx, crew, createInput("10"))
	require.NoError(t, err)
	assert.Equal(t, "990", h.level(t, tk.ID))

	_, err = h.svc.Update(ctx, crew, rec.ID, consumption.Patch{Liters: strPtr("15")})
	require.NoError(t, err)
	assert.Equal(t, "985", h.level(t, tk.ID))

	_, err = h.svc.Update(ctx, crew, rec.ID, consumption.Patch{Liters: strPtr("10")})
	require.NoError(t, err)
	assert.Equal(t, "990", h.level(t, tk.ID))
}

func TestService_UpdateWithoutLitersChangeLeavesLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "1000", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	rec, _, err := h.svc.Create(ctx, crew, createInput("10"))
	require.NoError(t, err)

	updated, err := h.svc.Update(ctx, crew, rec.ID, consumption.Patch{
		Liters:   strPtr("10.000"),
		Operator: strPtr("M. Lee"),
	})
	require.NoError(t, err)
	assert.Equal(t, "M. Lee", updated.Operator)
	assert.Equal(t, "990", h.level(t, tk.ID))
	assert.Equal(t, []string{consumption.EventRecorded}, h.events.types())
}

func TestService_DeleteRestoresFullAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "500", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	rec, _, err := h.svc.Create(ctx, crew, createInput("3"))
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, crew, rec.ID, consumption.Patch{Liters: strPtr("12")})
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, crew, rec.ID, consumption.Patch{Liters: strPtr("7")})
	require.NoError(t, err)
	assert.Equal(t, "493", h.level(t, tk.ID))

	_, err = h.svc.Delete(ctx, crew, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", h.level(t, tk.ID))

	// a repeated delete must not return the liters twice
	_, err = h.svc.Delete(ctx, crew, rec.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "500", h.level(t, tk.ID))
}

func TestService_LedgerConservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "2000", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	live := map[id.ID]types.Liters{}
	check := func() {
		sum := types.ZeroLiters()
		for _, l := range live {
			sum = sum.Add(l)
		}
		assert.Equal(t, types.MustLiters("2000").Sub(sum).String(), h.level(t, tk.ID))
	}

	var ids []id.ID
	for _, l := range []string{"12.5", "40", "7", "100", "0.25"} {
		rec, _, err := h.svc.Create(ctx, crew, createInput(l))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		live[rec.ID] = rec.Liters
		check()
	}

	for i, l := range []string{"20", "1", "99.75"} {
		rec, err := h.svc.Update(ctx, crew, ids[i], consumption.Patch{Liters: strPtr(l)})
		require.NoError(t, err)
		live[rec.ID] = rec.Liters
		check()
	}

	for _, recID := range []id.ID{ids[1], ids[4]} {
		_, err := h.svc.Delete(ctx, crew, recID)
		require.NoError(t, err)
		delete(live, recID)
		check()
	}
}

func TestService_ResubmittedCreateAppliesOncePerRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	first, _, err := h.svc.Create(ctx, crew, createInput("5"))
	require.NoError(t, err)
	second, _, err := h.svc.Create(ctx, crew, createInput("5"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "90", h.level(t, tk.ID))

	_, err = h.svc.Delete(ctx, crew, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "95", h.level(t, tk.ID))
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*consumption.CreateInput)
		field string
	}{
		{"missing tank", func(in *consumption.CreateInput) { in.TankIdentifier = " " }, "tankIdentifier"},
		{"missing machine", func(in *consumption.CreateInput) { in.MachineIdentifier = "" }, "machineIdentifier"},
		{"non-numeric liters", func(in *consumption.CreateInput) { in.Liters = "ten" }, "liters"},
		{"zero liters", func(in *consumption.CreateInput) { in.Liters = "0" }, "liters"},
		{"negative liters", func(in *consumption.CreateInput) { in.Liters = "-4" }, "liters"},
		{"empty operator", func(in *consumption.CreateInput) { in.Operator = "  " }, "operator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tk := h.seedTank(t, "TNK-1", "100", crewSession)
			h.seedMachine(t, "EXC-7", crewSession)

			in := createInput("5")
			tt.mod(&in)
			_, _, err := h.svc.Create(context.Background(), crew, in)

			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])

			assert.Equal(t, "100", h.level(t, tk.ID))
			res, err := h.svc.List(context.Background(), admin, consumption.ListFilter{})
			require.NoError(t, err)
			assert.Zero(t, res.TotalCount)
		})
	}
}

func TestService_CreateUnknownTankOrMachine(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	in := createInput("5")
	in.TankIdentifier = "TNK-404"
	_, _, err := h.svc.Create(context.Background(), crew, in)
	assert.True(t, apperror.IsNotFound(err))

	in = createInput("5")
	in.MachineIdentifier = "EXC-404"
	_, _, err = h.svc.Create(context.Background(), crew, in)
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, h.events.types())
}

func TestService_CreateDoesNotSeeOtherScopesTanks(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", otherSession)
	h.seedMachine(t, "EXC-7", crewSession)

	_, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_AuthenticatedScopeFallback(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	rec, res, err := h.svc.Create(appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-crew"}),
		crew, createInput("5"))
	require.NoError(t, err)
	assert.Equal(t, security.CredentialGroup("cg-north"), res.Scope)
	assert.Equal(t, security.CredentialGroup("cg-north"), rec.Scope())
	assert.Equal(t, "u-crew", rec.CreatedBy)
	assert.False(t, rec.IsPublic)
}

func TestService_AnonymousScopeDerivedFromTankOwner(t *testing.T) {
	h := newHarness(t)
	owner := security.Session{UserID: "u-owner"}
	tk := h.seedTank(t, "TNK-1", "100", owner)
	h.seedMachine(t, "EXC-7", security.Session{UserID: "u-machine", OrganizationName: "Acme Farms"})

	rec, res, err := h.svc.Create(context.Background(), kiosk, createInput("5"))
	require.NoError(t, err)
	assert.Equal(t, security.User("u-owner"), res.Scope)
	assert.Equal(t, security.User("u-owner"), rec.Scope())
	assert.True(t, rec.IsPublic)
	assert.Empty(t, rec.CreatedBy)
	assert.Equal(t, "95", h.level(t, tk.ID))

	// the owner can then manage the kiosk record
	_, err = h.svc.Update(context.Background(), security.Authenticated{Session: owner}, rec.ID,
		consumption.Patch{Liters: strPtr("6")})
	require.NoError(t, err)
	assert.Equal(t, "94", h.level(t, tk.ID))
}

func TestService_AnonymousFallsBackToMachineThenSentinel(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", security.Session{})
	h.seedMachine(t, "EXC-7", security.Session{UserID: "u-machine", OrganizationName: "Acme Farms"})
	h.seedMachine(t, "EXC-8", security.Session{})

	_, res, err := h.svc.Create(context.Background(), kiosk, createInput("1"))
	require.NoError(t, err)
	assert.Equal(t, security.Organization("Acme Farms"), res.Scope)

	in := createInput("1")
	in.MachineIdentifier = "EXC-8"
	_, res, err = h.svc.Create(context.Background(), kiosk, in)
	require.NoError(t, err)
	assert.True(t, res.Scope.IsAnonymous())
}

func TestService_DeltaFollowsRecordedTankKey(t *testing.T) {
	h := newHarness(t)
	decoy := tank.NewTank("DECOY", "", types.MustLiters("1000"))
	decoy.Ownership = entity.OwnershipFromSession(otherSession)
	require.NoError(t, h.tanks.Create(context.Background(), decoy))
	victim := h.seedTank(t, "TNK-1", "1000", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)

	// the other tenant points its tank's legacy key and name at the victim's key
	decoy.Name = victim.ID.String()
	legacy := victim.ID
	decoy.LegacyCodeKey = &legacy
	require.NoError(t, h.tanks.Update(context.Background(), decoy))

	rec, res, err := h.svc.Create(context.Background(), crew, createInput("100"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Applied, res.Ledger)
	assert.Equal(t, "900", h.level(t, victim.ID))

	_, err = h.svc.Update(context.Background(), crew, rec.ID, consumption.Patch{Liters: strPtr("150")})
	require.NoError(t, err)
	_, err = h.svc.Delete(context.Background(), crew, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, "1000", h.level(t, victim.ID))
	assert.Equal(t, "1000", h.level(t, decoy.ID))
}

func TestService_ReconciliationGapIsolation(t *testing.T) {
	h := newHarness(t)
	tk := h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	svc := h.build(vanishingTanks{inner: resolve.New[*tank.Tank](resolve.KindTank, h.tanks), store: h.tanks})

	rec, res, err := svc.Create(context.Background(), crew, createInput("25"))
	require.NoError(t, err)
	assert.Equal(t, ledger.TankNotFound, res.Ledger)

	stored, err := svc.Get(context.Background(), crew, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "25", stored.Liters.String())

	gaps := h.gaps.All()
	require.Len(t, gaps, 1)
	assert.Equal(t, rec.ID, gaps[0].RecordID)
	assert.Equal(t, tk.ID, gaps[0].TankID)
	assert.Equal(t, "-25", gaps[0].Delta.String())
}

func TestService_PrimaryStoreFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	tk := h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	h.records.FailWith = errors.New("connection refused")

	_, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
	assert.Equal(t, "100", h.level(t, tk.ID))
	assert.Empty(t, h.gaps.All())
}

func TestService_UpdateRejectsImmutableFields(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	rec, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	require.NoError(t, err)

	now := time.Now()
	patches := map[string]consumption.Patch{
		"tankIdentifier":    {TankIdentifier: strPtr("TNK-2")},
		"machineIdentifier": {MachineIdentifier: strPtr("EXC-9")},
		"scope":             {Scope: strPtr("user:u-x")},
		"createdAt":         {CreatedAt: &now},
		"recordedAt":        {RecordedAt: &now, Liters: strPtr("9")},
	}
	for field, p := range patches {
		_, err := h.svc.Update(context.Background(), crew, rec.ID, p)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok, field)
		assert.Equal(t, apperror.CodeImmutableField, appErr.Code, field)
		assert.Equal(t, field, appErr.Details["field"])
	}

	stored, err := h.svc.Get(context.Background(), crew, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", stored.Liters.String())
}

func TestService_UpdateValidatesLiters(t *testing.T) {
	h := newHarness(t)
	tk := h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	rec, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	require.NoError(t, err)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := h.svc.Update(context.Background(), crew, rec.ID, consumption.Patch{Liters: strPtr(bad)})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), bad)
	}
	_, err = h.svc.Update(context.Background(), crew, rec.ID, consumption.Patch{Operator: strPtr("")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assert.Equal(t, "95", h.level(t, tk.ID))
}

func TestService_UpdateStaleVersion(t *testing.T) {
	h := newHarness(t)
	h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	rec, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	require.NoError(t, err)

	_, err = h.svc.Update(context.Background(), crew, rec.ID, consumption.Patch{Liters: strPtr("6"), Version: rec.Version})
	require.NoError(t, err)

	_, err = h.svc.Update(context.Background(), crew, rec.ID, consumption.Patch{Liters: strPtr("7"), Version: rec.Version})
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_Authorization(t *testing.T) {
	h := newHarness(t)
	tk := h.seedTank(t, "TNK-1", "100", crewSession)
	h.seedMachine(t, "EXC-7", crewSession)
	rec, _, err := h.svc.Create(context.Background(), crew, createInput("5"))
	require.NoError(t, err)

	// another scope cannot tell the record from a missing one
	_, err = h.svc.Get(context.Background(), other, rec.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = h.svc.Get(context.Background(), other, id.New())
	assert.True(t, apperror.IsNotFound(err))
	_, err = h.svc.Update(context.Background(), other, rec.ID, consumption.Patch{Liters: strPtr("50")})
	assert.True(t, apperror.IsNotFound(err))
	_, err = h.svc.Delete(context.Background(), other, rec.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = h.svc.Get(context.Background(), kiosk, rec.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	assert.Equal(t, "95", h.level(t, tk.ID))

	_, err = h.svc.Update(context.Background(), admin, rec.ID, consumption.Patch{Liters: strPtr("10")})
	require.NoError(t, err)
	assert.Equal(t, "90", h.level(t, tk.ID))
}

func TestService_List(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedTank(t, "TNK-1", "1000", crewSession)
	m7 := h.seedMachine(t, "EXC-7", crewSession)
	h.seedMachine(t, "EXC-8", crewSession)
	h.seedTank(t, "TNK-B", "1000", otherSession)
	h.seedMachine(t, "HAUL-1", otherSession)

	day := func(d int) *time.Time {
		ts := time.Date(2026, 5, d, 12, 0, 0, 0, time.UTC)
		return &ts
	}

	for i, machineCode := range []string{"EXC-7", "EXC-7", "EXC-8"} {
		in := createInput("1")
		in.MachineIdentifier = machineCode
		in.RecordedAt = day(i + 1)
		_, _, err := h.svc.Create(ctx, crew, in)
		require.NoError(t, err)
	}
	_, _, err := h.svc.Create(ctx, other, consumption.CreateInput{
		TankIdentifier: "TNK-B", MachineIdentifier: "HAUL-1", Liters: "3", Operator: "K",
	})
	require.NoError(t, err)

	res, err := h.svc.List(ctx, crew, consumption.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.TotalCount)

	res, err = h.svc.List(ctx, crew, consumption.ListFilter{MachineID: &m7.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)

	res, err = h.svc.List(ctx, crew, consumption.ListFilter{DateFrom: day(2), DateTo: day(3)})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.TotalCount)
	assert.Equal(t, "EXC-7", res.Items[0].MachineCode)

	res, err = h.svc.List(ctx, other, consumption.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalCount)

	res, err = h.svc.List(ctx, admin, consumption.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.TotalCount)
	assert.Len(t, res.Items, 2)

	_, err = h.svc.List(ctx, kiosk, consumption.ListFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

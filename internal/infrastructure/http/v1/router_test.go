package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelops/internal/core/apperror"
	appctx "fuelops/internal/core/context"
	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
	"fuelops/internal/core/numerator"
	"fuelops/internal/core/security"
	"fuelops/internal/core/types"
	"fuelops/internal/domain/auth"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/domain/ledger"
	v1 "fuelops/internal/infrastructure/http/v1"
	"fuelops/internal/infrastructure/http/v1/middleware"
	"fuelops/internal/infrastructure/metrics"
	"fuelops/internal/infrastructure/storage/memory"
	"fuelops/internal/infrastructure/storage/postgres"
	"fuelops/pkg/logger"
)

var (
	farmer = appctx.UserContext{UserID: "u-1", OrganizationName: "Acme Farms"}
	rival  = appctx.UserContext{UserID: "u-2", CredentialGroupID: "cg-9"}
	root   = appctx.UserContext{UserID: "root", Role: appctx.RoleSuperAdmin}
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type historyStub struct{ entries []postgres.AuditEntry }

func (h historyStub) GetEntityHistory(_ context.Context, entityType string, entityID id.ID, _ int) ([]postgres.AuditEntry, error) {
	var out []postgres.AuditEntry
	for _, e := range h.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// idempotencyStub keeps completed responses in memory.
type idempotencyStub struct {
	mu       sync.Mutex
	pending  map[string]bool
	done     map[string]*postgres.IdempotencyReplay
	released int
}

func newIdempotencyStub() *idempotencyStub {
	return &idempotencyStub{pending: map[string]bool{}, done: map[string]*postgres.IdempotencyReplay{}}
}

func (s *idempotencyStub) AcquireKey(_ context.Context, key, _, _, _ string) (*postgres.IdempotencyReplay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.done[key]; ok {
		return r, nil
	}
	if s.pending[key] {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	s.pending[key] = true
	return nil, nil
}

func (s *idempotencyStub) CompleteKey(_ context.Context, key string, status int, contentType string, response any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	delete(s.pending, key)
	s.done[key] = &postgres.IdempotencyReplay{StatusCode: status, ContentType: contentType, Body: body}
	return nil
}

func (s *idempotencyStub) ReleaseKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	s.released++
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 30 * time.Second, nil
}

type fixture struct {
	router   *gin.Engine
	jwt      *auth.JWTService
	tanks    *memory.Tanks
	machines *memory.Machines
	records  *memory.Records
	gaps     *memory.Gaps
	idem     *idempotencyStub
	history  *historyStub
}

func newFixture(t *testing.T, opts ...func(*v1.RouterConfig)) *fixture {
	t.Helper()
	f := &fixture{
		jwt:      auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "fuelops"}),
		tanks:    memory.NewTanks(),
		machines: memory.NewMachines(),
		records:  memory.NewRecords(),
		gaps:     memory.NewGaps(),
		idem:     newIdempotencyStub(),
		history:  &historyStub{},
	}

	tankSvc := tank.NewService(f.tanks, memory.TxManager{}, &numerator.MockGenerator{})
	machineSvc := machine.NewService(f.machines, memory.TxManager{}, &numerator.MockGenerator{})
	reconciler := ledger.NewReconciler(tankSvc.Resolver(), f.tanks, f.gaps, nil)
	records := consumption.NewService(consumption.Config{
		Repo:      f.records,
		TxManager: memory.TxManager{},
		Tanks:     tankSvc.Resolver(),
		Machines:  machineSvc.Resolver(),
		Ledger:    reconciler,
	})

	cfg := v1.RouterConfig{
		Logger:       logger.Nop(),
		JWTValidator: f.jwt,
		Database:     pinger{},
		Metrics:      metrics.New(),
		Idempotency:  f.idem,
		Tanks:        tankSvc,
		Machines:     machineSvc,
		Consumption:  records,
		History:      f.history,
		Gaps:         ledger.NewReplayer(memory.TxManager{}, f.gaps, reconciler, 10, 3),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.router = v1.NewRouter(cfg)
	return f
}

func (f *fixture) token(t *testing.T, u appctx.UserContext) string {
	t.Helper()
	tok, err := f.jwt.Sign(u, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedTank(t *testing.T, code, capacity string, owner appctx.UserContext) *tank.Tank {
	t.Helper()
	tk := tank.NewTank(code, "Tank "+code, types.MustLiters(capacity))
	tk.Ownership = entity.OwnershipFromSession(security.SessionFromUser(&owner))
	require.NoError(t, f.tanks.Create(context.Background(), tk))
	return tk
}

func (f *fixture) seedMachine(t *testing.T, code, defaultTank string, owner appctx.UserContext) *machine.Machine {
	t.Helper()
	m := machine.NewMachine(code, "Machine "+code)
	m.DefaultTankCode = defaultTank
	m.Ownership = entity.OwnershipFromSession(security.SessionFromUser(&owner))
	require.NoError(t, f.machines.Create(context.Background(), m))
	return m
}

func (f *fixture) level(t *testing.T, tankID id.ID) string {
	t.Helper()
	tk, err := f.tanks.GetByID(context.Background(), tankID)
	require.NoError(t, err)
	return tk.CurrentLevel.String()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t)
	live := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, live.Code)
	assert.NotEmpty(t, live.Header().Get("X-Trace-ID"))
	assert.NotEmpty(t, live.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "", "").Code)

	down := newFixture(t, func(cfg *v1.RouterConfig) { cfg.Database = pinger{err: errors.New("connection refused")} })
	w := down.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", "", "")

	w := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fuelops_http_requests_total")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/catalog/tanks", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decode(t, w)["code"])

	w = f.do(t, http.MethodGet, "/api/v1/consumption-records", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_TankLifecycle(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)

	w := f.do(t, http.MethodPost, "/api/v1/catalog/tanks", tok, `{"code":"T-1","name":"North","capacity":"500","initialLevel":120}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "T-1", created["code"])
	assert.Equal(t, "120", created["currentLevel"])
	assert.Equal(t, "organization:Acme Farms", created["scope"])

	w = f.do(t, http.MethodPut, "/api/v1/catalog/tanks/T-1", tok, `{"name":"North yard"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "North yard", decode(t, w)["name"])

	w = f.do(t, http.MethodPut, "/api/v1/catalog/tanks/T-1", tok, `{"currentLevel":"900"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeImmutableField, decode(t, w)["code"])

	// another scope cannot see the tank
	w = f.do(t, http.MethodGet, "/api/v1/catalog/tanks/T-1", f.token(t, rival), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/catalog/tanks/T-1", tok, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_TankRejectsBadNumbers(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)

	w := f.do(t, http.MethodPost, "/api/v1/catalog/tanks", tok, `{"name":"North","capacity":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/catalog/tanks", tok, `{"name":"North","capacity":100,"initialLevel":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_TankMachines(t *testing.T) {
	f := newFixture(t)
	f.seedTank(t, "T-1", "500", farmer)
	f.seedMachine(t, "M-1", "T-1", farmer)
	f.seedMachine(t, "M-2", "T-9", farmer)

	w := f.do(t, http.MethodGet, "/api/v1/catalog/tanks/T-1/machines", f.token(t, farmer), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	machines := decode(t, w)["machines"].([]any)
	require.Len(t, machines, 1)
	assert.Equal(t, "M-1", machines[0].(map[string]any)["code"])
}

func TestRouter_ConsumptionLifecycle(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)
	tk := f.seedTank(t, "T-1", "200", farmer)
	f.seedMachine(t, "M-1", "T-1", farmer)

	w := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok,
		`{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":50,"operator":"Dana"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "T-1", created["resolvedTank"].(map[string]any)["code"])
	assert.Equal(t, "M-1", created["resolvedMachine"].(map[string]any)["code"])
	assert.Equal(t, "organization:Acme Farms", created["scope"])
	assert.Equal(t, "150", f.level(t, tk.ID))

	recordID := created["recordId"].(string)
	path := "/api/v1/consumption-records/" + recordID

	w = f.do(t, http.MethodGet, path, tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dana", decode(t, w)["operator"])

	w = f.do(t, http.MethodPut, path, tok, `{"liters":"70"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "130", f.level(t, tk.ID))

	w = f.do(t, http.MethodPut, path, tok, `{"tankIdentifier":"T-2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeImmutableField, decode(t, w)["code"])

	w = f.do(t, http.MethodGet, "/api/v1/consumption-records", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])

	w = f.do(t, http.MethodDelete, path, tok, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "200", f.level(t, tk.ID))

	w = f.do(t, http.MethodGet, path, tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ConsumptionValidation(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)
	f.seedTank(t, "T-1", "200", farmer)
	f.seedMachine(t, "M-1", "", farmer)

	for name, body := range map[string]string{
		"zero liters":    `{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":0,"operator":"Dana"}`,
		"text liters":    `{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":"abc","operator":"Dana"}`,
		"missing tank":   `{"machineIdentifier":"M-1","liters":5,"operator":"Dana"}`,
		"missing worker": `{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":5}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, apperror.CodeValidation, decode(t, w)["code"])
		})
	}

	w := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok,
		`{"tankIdentifier":"T-404","machineIdentifier":"M-1","liters":5,"operator":"Dana"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/consumption-records/not-a-key", tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/consumption-records?dateFrom=yesterday", tok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ConsumptionHistory(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)
	f.seedTank(t, "T-1", "200", farmer)
	f.seedMachine(t, "M-1", "", farmer)

	w := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok,
		`{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":5,"operator":"Dana"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	recordID := id.MustParse(decode(t, w)["recordId"].(string))
	f.history.entries = append(f.history.entries, postgres.AuditEntry{
		ID: id.New(), EntityType: consumption.AggregateType, EntityID: recordID, Action: "create",
	})

	w = f.do(t, http.MethodGet, "/api/v1/consumption-records/"+recordID.String()+"/history", tok, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 1)

	// history follows record visibility
	w = f.do(t, http.MethodGet, "/api/v1/consumption-records/"+recordID.String()+"/history", f.token(t, rival), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_IdempotentCreate(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)
	tk := f.seedTank(t, "T-1", "200", farmer)
	f.seedMachine(t, "M-1", "", farmer)
	body := `{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":25,"operator":"Dana"}`

	first := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok, body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok, body, middleware.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "175", f.level(t, tk.ID))
}

func TestRouter_FailedRequestReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, farmer)

	w := f.do(t, http.MethodPost, "/api/v1/consumption-records", tok,
		`{"tankIdentifier":"T-404","machineIdentifier":"M-1","liters":5,"operator":"Dana"}`,
		middleware.HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, f.idem.released)
	assert.Empty(t, f.idem.done)
}

func TestRouter_KioskAnonymousCreate(t *testing.T) {
	f := newFixture(t)
	tk := f.seedTank(t, "T-1", "200", farmer)
	f.seedMachine(t, "M-1", "T-1", farmer)

	w := f.do(t, http.MethodPost, "/api/v1/kiosk/consumption-records", "",
		`{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":"12.5","operator":"Kiosk","isPublic":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "organization:Acme Farms", created["scope"])
	assert.Equal(t, "187.5", f.level(t, tk.ID))

	// the owning organization sees and manages the kiosk record
	tok := f.token(t, farmer)
	w = f.do(t, http.MethodGet, "/api/v1/consumption-records", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])

	w = f.do(t, http.MethodDelete, "/api/v1/consumption-records/"+created["recordId"].(string), tok, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "200", f.level(t, tk.ID))

	// a broken token is rejected rather than treated as anonymous
	w = f.do(t, http.MethodPost, "/api/v1/kiosk/consumption-records", "garbage",
		`{"tankIdentifier":"T-1","machineIdentifier":"M-1","liters":1,"operator":"Kiosk"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_KioskLookups(t *testing.T) {
	f := newFixture(t)
	f.seedTank(t, "T-1", "300", farmer)
	f.seedTank(t, "T-1", "900", rival)
	f.seedMachine(t, "M-1", "T-1", farmer)
	f.seedMachine(t, "M-2", "", farmer)

	w := f.do(t, http.MethodGet, "/api/v1/kiosk/machines/M-1/tank", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "M-1", body["machineCode"])
	tankView := body["tank"].(map[string]any)
	assert.Equal(t, "300", tankView["capacity"])
	assert.NotContains(t, tankView, "organizationName")

	w = f.do(t, http.MethodGet, "/api/v1/kiosk/machines/M-2/tank", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/kiosk/tanks/T-1", f.token(t, rival), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "900", decode(t, w)["capacity"])
}

func TestRouter_KioskRateLimited(t *testing.T) {
	f := newFixture(t, func(cfg *v1.RouterConfig) { cfg.KioskLimiter = denyLimiter{} })

	w := f.do(t, http.MethodGet, "/api/v1/kiosk/tanks/T-1", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	// authenticated routes are not limited
	w = f.do(t, http.MethodGet, "/api/v1/catalog/tanks", f.token(t, farmer), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminGaps(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gaps.Record(context.Background(), ledger.Gap{
		ID:             id.New(),
		RecordID:       id.New(),
		Transition:     ledger.TransitionCreate,
		TankID:         id.New(),
		Delta:          types.MustLiters("-5"),
		Reason:         ledger.ReasonTankNotFound,
		Status:         ledger.GapPending,
		CreatedAt:      time.Now(),
	}))

	w := f.do(t, http.MethodGet, "/api/v1/admin/reconciliation-gaps", f.token(t, farmer), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/admin/reconciliation-gaps?status=pending", f.token(t, root), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 1)

	w = f.do(t, http.MethodGet, "/api/v1/admin/reconciliation-gaps?status=lost", f.token(t, root), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/metrics"
	"github.com/langchou/fuhrpark/internal/models"
	"github.com/langchou/fuhrpark/internal/repository"
	"github.com/langchou/fuhrpark/internal/state"
)

var testAppIDs = models.AppIDs{
	Vehicles:              "X",
	MaintenanceTypes:      "T",
	MaintenancePlans:      "P",
	MaintenanceExecutions: "E",
}

// fakePlatform 内存中的 LivingApps 平台
type fakePlatform struct {
	mu       sync.Mutex
	bodies   map[string]string // app id → GET 响应
	failApp  string
	gets     map[string]int
	created  []json.RawMessage
	failPost bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		bodies: map[string]string{
			"X": `{"69859cb732543c57f5582054":{"createdat":"2026-01-01","fields":{"fahrzeugnummer":"101","kennzeichen":"B-FP 101","status":"in_wartung"}}}`,
			"T": `{"69859cbc8803d48c36b2982c":{"createdat":"2026-01-01","fields":{"bezeichnung":"Ölwechsel"}}}`,
			"P": `{}`,
			"E": `{}`,
		},
		gets: map[string]int{},
	}
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	app := parts[1]

	switch r.Method {
	case http.MethodGet:
		f.gets[app]++
		if app == f.failApp {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream kaputt")
			return
		}
		io.WriteString(w, f.bodies[app])
	case http.MethodPost:
		if f.failPost {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, "ungültig")
			return
		}
		var body struct {
			Fields json.RawMessage `json:"fields"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body.Fields)
		f.bodies["E"] = `{"aaaaaaaaaaaaaaaaaaaaaaaa":{"createdat":"2026-10-19","fields":` + string(body.Fields) + `}}`
		io.WriteString(w, `{"id":"aaaaaaaaaaaaaaaaaaaaaaaa"}`)
	}
}

func (f *fakePlatform) getCount(app string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[app]
}

func newTestService(t *testing.T, platform *fakePlatform) (*DashboardService, *metrics.Registry) {
	t.Helper()
	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	client, err := livingapps.NewClient(srv.URL)
	require.NoError(t, err)

	m := metrics.New()
	svc := NewDashboardService(zap.NewNop(), repository.NewSet(client, testAppIDs), m)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, m
}

func TestLoad_Ready(t *testing.T) {
	platform := newFakePlatform()
	svc, m := newTestService(t, platform)

	assert.Equal(t, state.StateLoading, svc.Current().State.State)
	require.NoError(t, svc.Load(context.Background()))

	view := svc.Current()
	assert.Equal(t, state.StateReady, view.State.State)
	require.NotNil(t, view.Dashboard)
	assert.Equal(t, 1, view.Dashboard.TotalVehicles)
	assert.Equal(t, 1, view.Dashboard.AttentionCount)
	assert.Len(t, view.Snapshot.MaintenanceTypes, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardLoadsTotal.WithLabelValues("ok")))

	for _, app := range []string{"X", "T", "P", "E"} {
		assert.Equal(t, 1, platform.getCount(app), app)
	}
}

func TestLoad_OneFailureErrorsWholeView(t *testing.T) {
	platform := newFakePlatform()
	svc, m := newTestService(t, platform)

	require.NoError(t, svc.Load(context.Background()))

	platform.mu.Lock()
	platform.failApp = "P"
	platform.mu.Unlock()

	err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream kaputt")

	view := svc.Current()
	assert.Equal(t, state.StateErrored, view.State.State)
	assert.Nil(t, view.Dashboard, "no partial or stale data in the errored view")
	assert.Contains(t, view.State.Error, "upstream kaputt")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardLoadsTotal.WithLabelValues("error")))

	// retry re-issues all four fetches
	platform.mu.Lock()
	platform.failApp = ""
	platform.mu.Unlock()
	before := map[string]int{}
	for _, app := range []string{"X", "T", "P", "E"} {
		before[app] = platform.getCount(app)
	}

	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, state.StateReady, svc.Current().State.State)
	for _, app := range []string{"X", "T", "P", "E"} {
		assert.Equal(t, before[app]+1, platform.getCount(app), app)
	}
}

func TestLoad_IgnoresCallerCancellation(t *testing.T) {
	platform := newFakePlatform()
	svc, _ := newTestService(t, platform)
	require.NoError(t, svc.Load(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	require.NoError(t, svc.Load(ctx))
	view := svc.Current()
	assert.Equal(t, state.StateReady, view.State.State)
	assert.Empty(t, view.State.Error)
	assert.Equal(t, 2, platform.getCount("X"))
}

func TestLoad_NotifiesSubscribers(t *testing.T) {
	svc, _ := newTestService(t, newFakePlatform())
	updates := svc.Subscribe()

	require.NoError(t, svc.Load(context.Background()))

	select {
	case u := <-updates:
		assert.Equal(t, state.StateReady, u.State.State)
		require.NotNil(t, u.Dashboard)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestCreateExecution_BuildsRecordURLsAndReloads(t *testing.T) {
	platform := newFakePlatform()
	svc, _ := newTestService(t, platform)
	require.NoError(t, svc.Load(context.Background()))

	busID := "abc123" + strings.Repeat("0", 18)
	form := NewExecutionForm(fixedNow)
	form.Bus = busID
	form.Wartungstypen = "69859cbc8803d48c36b2982c"
	form.KmStandBeiWartung = "125000"
	form.Gesamtkosten = "450"
	form.DurchgefuehrteArbeiten = "Ölwechsel inkl. Filter"

	_, err := svc.CreateExecution(context.Background(), form)
	require.NoError(t, err)

	require.Len(t, platform.created, 1)
	var sent models.MaintenanceExecutionFields
	require.NoError(t, json.Unmarshal(platform.created[0], &sent))

	srvURL := svc.repos.Vehicles.RecordURL("")
	base := strings.TrimSuffix(srvURL, "/apps/X/records/")
	assert.Equal(t, base+"/apps/X/records/abc123000000000000000000", *sent.Bus)
	assert.Equal(t, base+"/apps/T/records/69859cbc8803d48c36b2982c", *sent.Wartungstypen)
	assert.Equal(t, "2026-10-19", *sent.Durchfuehrungsdatum)
	assert.Equal(t, 125000.0, *sent.KmStandBeiWartung)
	assert.Equal(t, 450.0, *sent.Gesamtkosten)

	// full refetch picked up the new record
	assert.Equal(t, 2, platform.getCount("E"))
	view := svc.Current()
	require.NotNil(t, view.Dashboard)
	assert.Equal(t, 450.0, view.Dashboard.CurrentMonthCost)
	require.Len(t, view.Dashboard.Recent, 1)
	require.NotNil(t, view.Dashboard.Recent[0].MaintenanceType)
}

func TestExecutionFields_DefaultBaseURL(t *testing.T) {
	client, err := livingapps.NewClient("")
	require.NoError(t, err)
	svc := NewDashboardService(zap.NewNop(), repository.NewSet(client, testAppIDs), nil)

	form := ExecutionForm{
		Bus:                 "abc123" + strings.Repeat("0", 18),
		Wartungstypen:       "69859cbc8803d48c36b2982c",
		Durchfuehrungsdatum: "2026-10-19",
	}
	fields := svc.ExecutionFields(form)
	assert.Equal(t, "https://my.living-apps.de/rest/apps/X/records/abc123000000000000000000", *fields.Bus)
	assert.Nil(t, fields.KmStandBeiWartung)
	assert.Nil(t, fields.Gesamtkosten)
	assert.Nil(t, fields.DurchgefuehrteArbeiten)
}

func TestCreateExecution_Failure(t *testing.T) {
	platform := newFakePlatform()
	platform.failPost = true
	svc, _ := newTestService(t, platform)

	form := NewExecutionForm(fixedNow)
	form.Bus = "69859cb732543c57f5582054"
	form.Wartungstypen = "69859cbc8803d48c36b2982c"

	_, err := svc.CreateExecution(context.Background(), form)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ungültig")
	assert.Zero(t, platform.getCount("E"), "no refetch after failed create")
}

func TestExecutionForm_Validate(t *testing.T) {
	form := NewExecutionForm(fixedNow)
	assert.False(t, form.Ready())
	assert.ErrorIs(t, form.Validate(), ErrInvalidForm)

	form.Bus = "69859cb732543c57f5582054"
	form.Wartungstypen = "nicht-hex"
	assert.True(t, form.Ready())
	assert.ErrorIs(t, form.Validate(), ErrInvalidForm)

	form.Wartungstypen = "69859cbc8803d48c36b2982c"
	assert.NoError(t, form.Validate())

	form.Durchfuehrungsdatum = " "
	assert.ErrorIs(t, form.Validate(), ErrInvalidForm)
}

func TestNumberInput(t *testing.T) {
	var body struct {
		A NumberInput `json:"a"`
		B NumberInput `json:"b"`
		C NumberInput `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"300","c":null}`), &body))
	assert.Equal(t, 12.5, *body.A.Value())
	assert.Equal(t, 300.0, *body.B.Value())
	assert.Nil(t, body.C.Value())
	assert.Nil(t, NumberInput("abc").Value())
}

package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/models"
)

var testIDs = models.AppIDs{
	Vehicles:              "app-busse",
	MaintenanceTypes:      "app-typen",
	MaintenancePlans:      "app-planung",
	MaintenanceExecutions: "app-durchfuehrung",
}

func newTestSet(t *testing.T, handler http.HandlerFunc) *Set {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := livingapps.NewClient(srv.URL)
	require.NoError(t, err)
	return NewSet(client, testIDs)
}

func TestList_UsesKeyAsRecordID(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app-busse/records", r.URL.Path)
		io.WriteString(w, `{
			"69859cb732543c57f5582054": {"createdat":"2026-01-02T10:00:00","updatedat":null,"fields":{"fahrzeugnummer":"B-101","status":"in_wartung"}},
			"69859cb732543c57f5582055": {"record_id":"override","createdat":"2026-01-03T10:00:00","updatedat":"2026-02-01T08:00:00","fields":{}}
		}`)
	})

	vehicles, err := set.Vehicles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	assert.Equal(t, "69859cb732543c57f5582054", vehicles[0].RecordID)
	assert.Equal(t, "B-101", *vehicles[0].Fields.Fahrzeugnummer)
	assert.Equal(t, models.StatusInMaintenance, vehicles[0].Fields.EffectiveStatus())
	assert.Nil(t, vehicles[0].UpdatedAt)

	assert.Equal(t, "override", vehicles[1].RecordID)
	require.NotNil(t, vehicles[1].UpdatedAt)
	assert.Equal(t, models.StatusInService, vehicles[1].Fields.EffectiveStatus())
}

func TestGet_RenamesID(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app-typen/records/69859cbc8803d48c36b2982c", r.URL.Path)
		io.WriteString(w, `{"id":"69859cbc8803d48c36b2982c","createdat":"2026-01-01","fields":{"bezeichnung":"HU","kategorie":"gesetzlich","intervall_tage":365}}`)
	})

	typ, err := set.MaintenanceTypes.Get(context.Background(), "69859cbc8803d48c36b2982c")
	require.NoError(t, err)
	assert.Equal(t, "69859cbc8803d48c36b2982c", typ.RecordID)
	assert.Equal(t, "HU", *typ.Fields.Bezeichnung)
	assert.Equal(t, models.CategoryLegal, *typ.Fields.Kategorie)
	assert.Equal(t, 365.0, *typ.Fields.IntervallTage)
}

func TestList_DecodesFractionalNumbers(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apps/app-busse/records":
			io.WriteString(w, `{"69859cb732543c57f5582054":{"createdat":"2026-01-01","fields":{"baujahr":2019.0,"kilometerstand":125000.5}}}`)
		case "/apps/app-typen/records":
			io.WriteString(w, `{"69859cbc8803d48c36b2982c":{"createdat":"2026-01-01","fields":{"intervall_tage":182.5,"intervall_km":30000}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	vehicles, err := set.Vehicles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	require.NotNil(t, vehicles[0].Fields.Baujahr)
	assert.Equal(t, 2019.0, *vehicles[0].Fields.Baujahr)

	types, err := set.MaintenanceTypes.List(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.NotNil(t, types[0].Fields.IntervallTage)
	assert.Equal(t, 182.5, *types[0].Fields.IntervallTage)
}

func TestCreate_OmitsUnsetFields(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/apps/app-durchfuehrung/records", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fields":{"durchfuehrungsdatum":"2026-10-19","gesamtkosten":450}}`, string(body))
		io.WriteString(w, `{"id":"new"}`)
	})

	date := "2026-10-19"
	cost := 450.0
	resp, err := set.MaintenanceExecutions.Create(context.Background(), models.MaintenanceExecutionFields{
		Durchfuehrungsdatum: &date,
		Gesamtkosten:        &cost,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"new"}`, string(resp))
}

func TestStore_DispatchesByCollection(t *testing.T) {
	var gotPath, gotMethod string
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		io.WriteString(w, `{}`)
	})

	store, ok := set.Store(models.CollectionMaintenancePlans)
	require.True(t, ok)
	assert.Equal(t, "app-planung", store.AppID())

	_, err := store.UpdateJSON(context.Background(), "rec1", []byte(`{"planungsstatus":"verschoben"}`))
	require.NoError(t, err)
	assert.Equal(t, "/apps/app-planung/records/rec1", gotPath)
	assert.Equal(t, http.MethodPatch, gotMethod)

	require.NoError(t, store.Delete(context.Background(), "rec1"))
	assert.Equal(t, http.MethodDelete, gotMethod)

	_, ok = set.Store("unbekannt")
	assert.False(t, ok)
}

func TestCreateJSON_InvalidFields(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := set.Vehicles.CreateJSON(context.Background(), []byte(`{"baujahr":"neunzehn"}`))
	assert.ErrorIs(t, err, ErrInvalidFields)
}

func TestRecordURL(t *testing.T) {
	set := newTestSet(t, func(w http.ResponseWriter, r *http.Request) {})
	url := set.Vehicles.RecordURL("69859cb732543c57f5582054")
	id, ok := livingapps.ExtractRecordID(url)
	assert.True(t, ok)
	assert.Equal(t, "69859cb732543c57f5582054", id)
	assert.Contains(t, url, "/apps/app-busse/records/")
}

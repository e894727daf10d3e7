package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/fuhrpark/internal/models"
	"github.com/langchou/fuhrpark/internal/service"
	"github.com/langchou/fuhrpark/internal/state"
)

var now = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

func render(t *testing.T, p Page) string {
	t.Helper()
	tmpl, err := Templates()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, DashboardTemplate, p))
	return buf.String()
}

func readyView() service.View {
	maintenance := models.StatusInMaintenance
	urgent := models.PriorityUrgent
	planned := models.PlanningPlanned

	snap := &service.Snapshot{
		Vehicles: []models.Vehicle{
			{RecordID: "aaaaaaaaaaaaaaaaaaaaaaaa", Fields: models.VehicleFields{Fahrzeugnummer: ptr("101"), Kennzeichen: ptr("B-FP 101"), Status: &maintenance}},
			{RecordID: "bbbbbbbbbbbbbbbbbbbbbbbb", Fields: models.VehicleFields{Fahrzeugnummer: ptr("102")}},
		},
		MaintenanceTypes: []models.MaintenanceType{
			{RecordID: "cccccccccccccccccccccccc", Fields: models.MaintenanceTypeFields{Bezeichnung: ptr("Ölwechsel")}},
		},
		MaintenancePlans: []models.MaintenancePlan{
			{RecordID: "p1", Fields: models.MaintenancePlanFields{
				Bus:            ptr("https://my.living-apps.de/rest/apps/X/records/aaaaaaaaaaaaaaaaaaaaaaaa"),
				Wartungstypen:  ptr("https://my.living-apps.de/rest/apps/T/records/dddddddddddddddddddddddd"),
				GeplantesDatum: ptr("2026-10-25"),
				Prioritaet:     &urgent,
				Planungsstatus: &planned,
			}},
		},
		MaintenanceExecutions: []models.MaintenanceExecution{
			{RecordID: "e1", Fields: models.MaintenanceExecutionFields{
				Bus:                 ptr("https://my.living-apps.de/rest/apps/X/records/bbbbbbbbbbbbbbbbbbbbbbbb"),
				Wartungstypen:       ptr("https://my.living-apps.de/rest/apps/T/records/cccccccccccccccccccccccc"),
				Durchfuehrungsdatum: ptr("2026-10-05"),
				Gesamtkosten:        ptr(1234.5),
			}},
		},
	}
	return service.View{
		State:     state.ViewState{State: state.StateReady},
		Dashboard: service.Derive(snap, now),
		Snapshot:  snap,
	}
}

func TestNewPage_States(t *testing.T) {
	p := NewPage(service.View{State: state.ViewState{State: state.StateLoading}}, service.NewExecutionForm(now), false)
	assert.True(t, p.Loading)

	p = NewPage(service.View{State: state.ViewState{State: state.StateErrored, Error: "kaputt"}}, service.NewExecutionForm(now), false)
	assert.True(t, p.Errored)
	assert.Nil(t, p.Data)

	empty := &service.Snapshot{}
	p = NewPage(service.View{
		State:     state.ViewState{State: state.StateReady},
		Dashboard: service.Derive(empty, now),
		Snapshot:  empty,
	}, service.NewExecutionForm(now), false)
	assert.True(t, p.Empty)

	p = NewPage(readyView(), service.NewExecutionForm(now), false)
	assert.True(t, p.Ready)
	assert.Len(t, p.Chart.Bars, 6)
}

func TestRender_Loading(t *testing.T) {
	html := render(t, NewPage(service.View{State: state.ViewState{State: state.StateLoading}}, service.NewExecutionForm(now), false))
	assert.Contains(t, html, `http-equiv="refresh"`)
	assert.Contains(t, html, "skeleton")
}

func TestRender_Error(t *testing.T) {
	html := render(t, NewPage(service.View{State: state.ViewState{State: state.StateErrored, Error: "<b>502</b>"}}, service.NewExecutionForm(now), false))
	assert.Contains(t, html, "Fehler beim Laden")
	assert.Contains(t, html, "&lt;b&gt;502&lt;/b&gt;")
	assert.Contains(t, html, `action="/aktualisieren"`)
	assert.Contains(t, html, "Erneut versuchen")
}

func TestRender_Empty(t *testing.T) {
	empty := &service.Snapshot{}
	html := render(t, NewPage(service.View{
		State:     state.ViewState{State: state.StateReady},
		Dashboard: service.Derive(empty, now),
		Snapshot:  empty,
	}, service.NewExecutionForm(now), false))
	assert.Contains(t, html, "Keine Fahrzeuge vorhanden")
	assert.NotContains(t, html, "<dialog")
}

func TestRender_Ready(t *testing.T) {
	html := render(t, NewPage(readyView(), service.NewExecutionForm(now), false))

	assert.Contains(t, html, "Fahrzeuge brauchen Aufmerksamkeit")
	assert.Contains(t, html, "1 in Wartung")
	assert.NotContains(t, html, "außer Betrieb</div>")
	assert.Contains(t, html, "In Betrieb")
	assert.Contains(t, html, "(50%)")
	assert.Contains(t, html, "1.235\u00a0€")
	assert.Contains(t, html, "25.10.2026")
	assert.Contains(t, html, "05.10.2026")
	assert.Contains(t, html, "Dringend")
	assert.Contains(t, html, "Geplant")
	assert.Contains(t, html, `class="urgent"`)
	assert.Contains(t, html, "B-FP 101")
	assert.Contains(t, html, "Okt.")
	assert.Contains(t, html, "Ölwechsel")
	// plan references a maintenance type that is not loaded
	assert.Contains(t, html, "<td>-</td>")
	assert.Contains(t, html, `data-open="false"`)
	assert.Contains(t, html, `value="2026-10-19"`)
}

func TestRender_FormKeepsValues(t *testing.T) {
	form := service.NewExecutionForm(now)
	form.Bus = "bbbbbbbbbbbbbbbbbbbbbbbb"
	form.Gesamtkosten = "450"

	html := render(t, NewPage(readyView(), form, true))
	assert.Contains(t, html, `data-open="true"`)
	assert.Contains(t, html, `value="bbbbbbbbbbbbbbbbbbbbbbbb" selected`)
	assert.Contains(t, html, `value="450"`)
	// submit stays disabled until a maintenance type is picked
	assert.Contains(t, html, "btn\" disabled")
}

func TestBuildChart(t *testing.T) {
	months := []service.MonthlyCost{
		{Month: "2026-09", Label: "Sept.", Cost: 0},
		{Month: "2026-10", Label: "Okt.", Cost: 5000},
	}
	c := BuildChart(months)

	require.Len(t, c.Bars, 2)
	require.Len(t, c.Ticks, 5)
	assert.Equal(t, "0k", c.Ticks[0].Label)
	assert.Equal(t, "8k", c.Ticks[4].Label)
	assert.Zero(t, c.Bars[0].Height)
	assert.InDelta(t, (c.Bottom-chartPadTop)*5000/8000, c.Bars[1].Height, 1e-9)
	assert.Less(t, c.Bars[0].X, c.Bars[1].X)

	empty := BuildChart(nil)
	assert.Empty(t, empty.Bars)
	assert.Equal(t, "4k", empty.Ticks[4].Label)
}

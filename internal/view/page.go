package view

import (
	"embed"
	"html/template"
	"math"

	"github.com/langchou/fuhrpark/internal/models"
	"github.com/langchou/fuhrpark/internal/service"
	"github.com/langchou/fuhrpark/internal/state"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardTemplate gin 中注册的模板名
const DashboardTemplate = "dashboard.html"

// 图表尺寸（SVG 用户坐标）
const (
	chartWidth   = 600
	chartHeight  = 250
	chartPadLeft = 48
	chartPadBot  = 24
	chartPadTop  = 8
	chartTicks   = 4
	barGap       = 0.3
)

// Page 模板数据
type Page struct {
	State    string
	Error    string
	Loading  bool
	Errored  bool
	Empty    bool
	Ready    bool
	Data     *service.Dashboard
	Vehicles []models.Vehicle
	Types    []models.MaintenanceType
	Chart    Chart
	Form     service.ExecutionForm
	FormOpen bool
}

// Chart 月度费用柱状图
type Chart struct {
	Width  int
	Height int
	Bars   []Bar
	Ticks  []Tick
	Left   float64
	Bottom float64
}

// Bar 单个柱子
type Bar struct {
	X, Y, Width, Height float64
	LabelX              float64
	Label               string
	Value               string
}

// Tick Y 轴刻度
type Tick struct {
	Y     float64
	Label string
}

// NewPage 根据当前视图构造模板数据
func NewPage(v service.View, form service.ExecutionForm, formOpen bool) Page {
	p := Page{
		State:    v.State.State,
		Error:    v.State.Error,
		Form:     form,
		FormOpen: formOpen,
	}

	switch v.State.State {
	case state.StateLoading:
		p.Loading = true
		return p
	case state.StateErrored:
		p.Errored = true
		return p
	}

	if v.Dashboard == nil || v.Snapshot == nil {
		p.Loading = true
		return p
	}

	p.Data = v.Dashboard
	p.Vehicles = v.Snapshot.Vehicles
	p.Types = v.Snapshot.MaintenanceTypes
	if len(p.Vehicles) == 0 {
		p.Empty = true
		return p
	}
	p.Ready = true
	p.Chart = BuildChart(v.Dashboard.MonthlyCosts)
	return p
}

// BuildChart 计算柱子与刻度位置
func BuildChart(months []service.MonthlyCost) Chart {
	c := Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartPadLeft,
		Bottom: chartHeight - chartPadBot,
	}

	top := niceMax(months)
	plotHeight := c.Bottom - chartPadTop

	for i := 0; i <= chartTicks; i++ {
		v := top * float64(i) / chartTicks
		c.Ticks = append(c.Ticks, Tick{
			Y:     c.Bottom - plotHeight*float64(i)/chartTicks,
			Label: FormatThousands(v),
		})
	}

	if len(months) == 0 {
		return c
	}

	slot := (chartWidth - chartPadLeft) / float64(len(months))
	width := slot * (1 - barGap)
	for i, m := range months {
		h := 0.0
		if top > 0 {
			h = plotHeight * m.Cost / top
		}
		x := chartPadLeft + slot*float64(i) + (slot-width)/2
		c.Bars = append(c.Bars, Bar{
			X:      x,
			Y:      c.Bottom - h,
			Width:  width,
			Height: h,
			LabelX: x + width/2,
			Label:  m.Label,
			Value:  FormatEuro(m.Cost),
		})
	}
	return c
}

// niceMax 取整到 4k 的倍数，保证刻度为整千
func niceMax(months []service.MonthlyCost) float64 {
	step := float64(chartTicks * 1000)
	var highest float64
	for _, m := range months {
		highest = math.Max(highest, m.Cost)
	}
	if highest <= 0 {
		return step
	}
	return math.Ceil(highest/step) * step
}

// Templates 解析内嵌模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}

// FuncMap 模板函数
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"number":        FormatNumber,
		"int":           FormatInt,
		"currency":      FormatCurrency,
		"euro":          FormatEuro,
		"date":          FormatDate,
		"statusLabel":   StatusLabel,
		"statusColor":   StatusColor,
		"priorityLabel": PriorityLabel,
		"priorityClass": PriorityClass,
		"planningLabel": PlanningLabel,
		"planningClass": PlanningClass,
		"vehicleNumber": VehicleNumber,
		"vehiclePlate":  VehiclePlate,
		"typeName":      TypeName,
		"str":           models.StringValue,
		"isUrgent":      IsUrgent,
		"hasAmount":     HasAmount,
	}
}

// VehicleNumber 关联缺失时显示 -
func VehicleNumber(v *models.Vehicle) string {
	if v == nil || v.Fields.Fahrzeugnummer == nil || *v.Fields.Fahrzeugnummer == "" {
		return placeholder
	}
	return *v.Fields.Fahrzeugnummer
}

// VehiclePlate 关联缺失时为空
func VehiclePlate(v *models.Vehicle) string {
	if v == nil {
		return ""
	}
	return models.StringValue(v.Fields.Kennzeichen)
}

// TypeName 维护类型名称
func TypeName(t *models.MaintenanceType) string {
	if t == nil || t.Fields.Bezeichnung == nil || *t.Fields.Bezeichnung == "" {
		return placeholder
	}
	return *t.Fields.Bezeichnung
}

// IsUrgent 紧急计划加强调边框
func IsUrgent(p *models.Priority) bool {
	return p != nil && *p == models.PriorityUrgent
}

// HasAmount 费用为空或 0 时不显示
func HasAmount(v *float64) bool {
	return v != nil && *v != 0
}

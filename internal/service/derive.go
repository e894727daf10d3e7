package service

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/models"
)

const (
	upcomingLimit = 10
	recentLimit   = 5
	chartMonths   = 6
)

// germanMonths date-fns de 语言环境下的 MMM 缩写
var germanMonths = [...]string{
	"Jan.", "Feb.", "März", "Apr.", "Mai", "Juni",
	"Juli", "Aug.", "Sept.", "Okt.", "Nov.", "Dez.",
}

// Snapshot 一次加载得到的四个集合
type Snapshot struct {
	Vehicles              []models.Vehicle              `json:"busse"`
	MaintenanceTypes      []models.MaintenanceType      `json:"wartungstypen"`
	MaintenancePlans      []models.MaintenancePlan      `json:"wartungsplanung"`
	MaintenanceExecutions []models.MaintenanceExecution `json:"wartungsdurchfuehrung"`
}

// FleetStatus 各运营状态的车辆数
type FleetStatus struct {
	InService     int `json:"in_betrieb"`
	Reserve       int `json:"reserve"`
	InMaintenance int `json:"in_wartung"`
	OutOfService  int `json:"ausser_betrieb"`
}

// Count 按状态取数量
func (f FleetStatus) Count(s models.VehicleStatus) int {
	switch s {
	case models.StatusInService:
		return f.InService
	case models.StatusReserve:
		return f.Reserve
	case models.StatusInMaintenance:
		return f.InMaintenance
	case models.StatusOutOfService:
		return f.OutOfService
	}
	return 0
}

// Total 四个桶之和
func (f FleetStatus) Total() int {
	return f.InService + f.Reserve + f.InMaintenance + f.OutOfService
}

// Attention 需要关注的车辆：维护中 + 停运
func (f FleetStatus) Attention() int {
	return f.InMaintenance + f.OutOfService
}

// StatusShare 单个状态的数量与占比
type StatusShare struct {
	Status  models.VehicleStatus `json:"status"`
	Count   int                  `json:"count"`
	Percent int                  `json:"percent"`
}

// MonthlyCost 图表中的一个月
type MonthlyCost struct {
	Month string  `json:"month"` // YYYY-MM
	Label string  `json:"label"` // 德语缩写
	Cost  float64 `json:"kosten"`
}

// UpcomingPlan 待办计划及其关联记录，关联缺失时为 nil
type UpcomingPlan struct {
	models.MaintenancePlan
	Vehicle         *models.Vehicle         `json:"bus_data"`
	MaintenanceType *models.MaintenanceType `json:"wartungstyp_data"`
}

// RecentExecution 最近执行记录及其关联记录
type RecentExecution struct {
	models.MaintenanceExecution
	Vehicle         *models.Vehicle         `json:"bus_data"`
	MaintenanceType *models.MaintenanceType `json:"wartungstyp_data"`
}

// Dashboard 从快照推导出的全部展示数据
type Dashboard struct {
	GeneratedAt      time.Time         `json:"generated_at"`
	TotalVehicles    int               `json:"total_vehicles"`
	FleetStatus      FleetStatus       `json:"fleet_status"`
	StatusShares     []StatusShare     `json:"status_shares"`
	AttentionCount   int               `json:"attention_count"`
	CurrentMonthCost float64           `json:"current_month_cost"`
	MonthlyCosts     []MonthlyCost     `json:"monthly_costs"`
	Upcoming         []UpcomingPlan    `json:"upcoming"`
	UpcomingCount    int               `json:"upcoming_count"`
	Recent           []RecentExecution `json:"recent"`
}

// Derive 由快照计算仪表盘，纯函数
func Derive(s *Snapshot, now time.Time) *Dashboard {
	vehicleIndex := indexVehicles(s.Vehicles)
	typeIndex := indexTypes(s.MaintenanceTypes)

	fleet := CountFleetStatus(s.Vehicles)
	return &Dashboard{
		GeneratedAt:      now,
		TotalVehicles:    len(s.Vehicles),
		FleetStatus:      fleet,
		StatusShares:     StatusShares(fleet, len(s.Vehicles)),
		AttentionCount:   fleet.Attention(),
		CurrentMonthCost: CurrentMonthCost(s.MaintenanceExecutions, now),
		MonthlyCosts:     MonthlyCosts(s.MaintenanceExecutions, now),
		Upcoming:         UpcomingPlans(s.MaintenancePlans, vehicleIndex, typeIndex),
		UpcomingCount:    CountUpcoming(s.MaintenancePlans),
		Recent:           RecentExecutions(s.MaintenanceExecutions, vehicleIndex, typeIndex),
	}
}

// CountFleetStatus 统计各状态车辆数，缺省状态计为在运营，枚举外的值不计入
func CountFleetStatus(vehicles []models.Vehicle) FleetStatus {
	var f FleetStatus
	for _, v := range vehicles {
		switch v.Fields.EffectiveStatus() {
		case models.StatusInService:
			f.InService++
		case models.StatusReserve:
			f.Reserve++
		case models.StatusInMaintenance:
			f.InMaintenance++
		case models.StatusOutOfService:
			f.OutOfService++
		}
	}
	return f
}

// StatusShares 按展示顺序给出数量与百分比（四舍五入）
func StatusShares(f FleetStatus, total int) []StatusShare {
	shares := make([]StatusShare, 0, len(models.VehicleStatuses))
	for _, s := range models.VehicleStatuses {
		count := f.Count(s)
		percent := 0
		if total > 0 {
			percent = int(math.Floor(float64(count)*100/float64(total) + 0.5))
		}
		shares = append(shares, StatusShare{Status: s, Count: count, Percent: percent})
	}
	return shares
}

// CurrentMonthCost 当月（按 now 所在时区）执行费用之和
func CurrentMonthCost(executions []models.MaintenanceExecution, now time.Time) float64 {
	var sum float64
	for _, e := range executions {
		if e.Fields.Durchfuehrungsdatum == nil || *e.Fields.Durchfuehrungsdatum == "" {
			continue
		}
		d, ok := ParseDate(*e.Fields.Durchfuehrungsdatum, now.Location())
		if !ok {
			continue
		}
		if d.Year() == now.Year() && d.Month() == now.Month() {
			sum += e.Fields.Cost()
		}
	}
	return sum
}

// MonthlyCosts 截至当月的 6 个月费用，最早的在前，没有数据的月份为 0
func MonthlyCosts(executions []models.MaintenanceExecution, now time.Time) []MonthlyCost {
	months := make([]MonthlyCost, 0, chartMonths)
	for i := chartMonths - 1; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		key := first.Format("2006-01")

		var sum float64
		for _, e := range executions {
			if e.Fields.Durchfuehrungsdatum == nil {
				continue
			}
			if strings.HasPrefix(*e.Fields.Durchfuehrungsdatum, key) {
				sum += e.Fields.Cost()
			}
		}
		months = append(months, MonthlyCost{
			Month: key,
			Label: germanMonths[first.Month()-1],
			Cost:  sum,
		})
	}
	return months
}

// CountUpcoming 全部 geplant / bestaetigt 计划数量（不截断）
func CountUpcoming(plans []models.MaintenancePlan) int {
	n := 0
	for _, p := range plans {
		if p.Fields.IsUpcoming() {
			n++
		}
	}
	return n
}

// UpcomingPlans 待办计划：按日期升序、同日按优先级，最多 10 条
func UpcomingPlans(plans []models.MaintenancePlan, vehicles map[string]*models.Vehicle, types map[string]*models.MaintenanceType) []UpcomingPlan {
	filtered := make([]models.MaintenancePlan, 0, len(plans))
	for _, p := range plans {
		if p.Fields.IsUpcoming() {
			filtered = append(filtered, p)
		}
	}

	slices.SortStableFunc(filtered, func(a, b models.MaintenancePlan) int {
		da := models.StringValue(a.Fields.GeplantesDatum)
		db := models.StringValue(b.Fields.GeplantesDatum)
		if da != db {
			return strings.Compare(da, db)
		}
		return cmp.Compare(a.Fields.Prioritaet.Rank(), b.Fields.Prioritaet.Rank())
	})

	if len(filtered) > upcomingLimit {
		filtered = filtered[:upcomingLimit]
	}

	out := make([]UpcomingPlan, 0, len(filtered))
	for _, p := range filtered {
		out = append(out, UpcomingPlan{
			MaintenancePlan: p,
			Vehicle:         lookupVehicle(vehicles, p.Fields.Bus),
			MaintenanceType: lookupType(types, p.Fields.Wartungstypen),
		})
	}
	return out
}

// RecentExecutions 最近执行记录：按日期降序，最多 5 条
func RecentExecutions(executions []models.MaintenanceExecution, vehicles map[string]*models.Vehicle, types map[string]*models.MaintenanceType) []RecentExecution {
	sorted := slices.Clone(executions)
	slices.SortStableFunc(sorted, func(a, b models.MaintenanceExecution) int {
		return strings.Compare(
			models.StringValue(b.Fields.Durchfuehrungsdatum),
			models.StringValue(a.Fields.Durchfuehrungsdatum),
		)
	})

	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}

	out := make([]RecentExecution, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, RecentExecution{
			MaintenanceExecution: e,
			Vehicle:              lookupVehicle(vehicles, e.Fields.Bus),
			MaintenanceType:      lookupType(types, e.Fields.Wartungstypen),
		})
	}
	return out
}

// ParseDate 解析 YYYY-MM-DD 或 ISO 时间
// 不带时区的值按 loc 解释，带时区的值转换到 loc
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
		"2006-01",
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

func indexVehicles(vehicles []models.Vehicle) map[string]*models.Vehicle {
	idx := make(map[string]*models.Vehicle, len(vehicles))
	for i := range vehicles {
		idx[vehicles[i].RecordID] = &vehicles[i]
	}
	return idx
}

func indexTypes(types []models.MaintenanceType) map[string]*models.MaintenanceType {
	idx := make(map[string]*models.MaintenanceType, len(types))
	for i := range types {
		idx[types[i].RecordID] = &types[i]
	}
	return idx
}

func lookupVehicle(idx map[string]*models.Vehicle, ref *string) *models.Vehicle {
	id, ok := livingapps.ExtractRecordIDPtr(ref)
	if !ok {
		return nil
	}
	return idx[id]
}

func lookupType(idx map[string]*models.MaintenanceType, ref *string) *models.MaintenanceType {
	id, ok := livingapps.ExtractRecordIDPtr(ref)
	if !ok {
		return nil
	}
	return idx[id]
}

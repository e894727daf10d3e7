package view

import (
	"html/template"

	"github.com/langchou/fuhrpark/internal/models"
)

var statusLabels = map[models.VehicleStatus]string{
	models.StatusInService:     "In Betrieb",
	models.StatusReserve:       "Reserve",
	models.StatusInMaintenance: "In Wartung",
	models.StatusOutOfService:  "Außer Betrieb",
}

var statusColors = map[models.VehicleStatus]template.CSS{
	models.StatusInService:     "hsl(152 60% 40%)",
	models.StatusReserve:       "hsl(220 65% 45%)",
	models.StatusInMaintenance: "hsl(38 92% 50%)",
	models.StatusOutOfService:  "hsl(0 72% 51%)",
}

var priorityLabels = map[models.Priority]string{
	models.PriorityUrgent: "Dringend",
	models.PriorityHigh:   "Hoch",
	models.PriorityNormal: "Normal",
	models.PriorityLow:    "Niedrig",
}

var priorityClasses = map[models.Priority]string{
	models.PriorityUrgent: "badge-red",
	models.PriorityHigh:   "badge-orange",
	models.PriorityNormal: "badge-blue",
	models.PriorityLow:    "badge-gray",
}

var planningLabels = map[models.PlanningStatus]string{
	models.PlanningPlanned:    "Geplant",
	models.PlanningConfirmed:  "Bestätigt",
	models.PlanningInProgress: "In Bearbeitung",
	models.PlanningCompleted:  "Abgeschlossen",
	models.PlanningPostponed:  "Verschoben",
}

var planningClasses = map[models.PlanningStatus]string{
	models.PlanningPlanned:    "badge-blue",
	models.PlanningConfirmed:  "badge-green",
	models.PlanningInProgress: "badge-amber",
	models.PlanningCompleted:  "badge-gray",
	models.PlanningPostponed:  "badge-red",
}

// StatusLabel 未知状态原样显示
func StatusLabel(s models.VehicleStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// StatusColor 状态对应的边框颜色，值为内置常量
func StatusColor(s models.VehicleStatus) template.CSS {
	return statusColors[s]
}

// PriorityLabel 空优先级不显示徽章
func PriorityLabel(p *models.Priority) string {
	if p == nil || *p == "" {
		return ""
	}
	if l, ok := priorityLabels[*p]; ok {
		return l
	}
	return string(*p)
}

// PriorityClass 未知优先级使用 normal 的样式
func PriorityClass(p *models.Priority) string {
	if p != nil {
		if c, ok := priorityClasses[*p]; ok {
			return c
		}
	}
	return priorityClasses[models.PriorityNormal]
}

// PlanningLabel 计划状态标签
func PlanningLabel(s *models.PlanningStatus) string {
	if s == nil || *s == "" {
		return ""
	}
	if l, ok := planningLabels[*s]; ok {
		return l
	}
	return string(*s)
}

// PlanningClass 计划状态样式
func PlanningClass(s *models.PlanningStatus) string {
	if s == nil {
		return ""
	}
	return planningClasses[*s]
}

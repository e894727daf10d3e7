package models

// Category 维护类型分类
type Category string

const (
	CategoryRoutine    Category = "routine"
	CategoryInspection Category = "inspektion"
	CategoryRepair     Category = "reparatur"
	CategoryLegal      Category = "gesetzlich"
	CategorySafety     Category = "sicherheit"
)

// Priority 计划优先级
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "hoch"
	PriorityUrgent Priority = "dringend"
	PriorityLow    Priority = "niedrig"
)

// priorityRanks 排序权重，越小越靠前
var priorityRanks = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

// Rank 未知或缺省的优先级按 normal 处理
func (p *Priority) Rank() int {
	if p != nil {
		if r, ok := priorityRanks[*p]; ok {
			return r
		}
	}
	return priorityRanks[PriorityNormal]
}

// PlanningStatus 计划状态
type PlanningStatus string

const (
	PlanningPlanned    PlanningStatus = "geplant"
	PlanningConfirmed  PlanningStatus = "bestaetigt"
	PlanningInProgress PlanningStatus = "in_bearbeitung"
	PlanningCompleted  PlanningStatus = "abgeschlossen"
	PlanningPostponed  PlanningStatus = "verschoben"
)

// MaintenanceTypeFields 维护类型（Wartungstypen）字段
type MaintenanceTypeFields struct {
	Bezeichnung       *string   `json:"bezeichnung,omitempty"`
	Beschreibung      *string   `json:"beschreibung,omitempty"`
	Kategorie         *Category `json:"kategorie,omitempty"`
	IntervallKm       *float64  `json:"intervall_km,omitempty"`
	IntervallTage     *float64  `json:"intervall_tage,omitempty"`
	GeschaetzteDauer  *float64  `json:"geschaetzte_dauer,omitempty"`  // 小时
	GeschaetzteKosten *float64  `json:"geschaetzte_kosten,omitempty"` // EUR
}

// MaintenanceType 维护类型记录
type MaintenanceType = Record[MaintenanceTypeFields]

// MaintenancePlanFields 维护计划（Wartungsplanung）字段
// bus / wartungstypen 是指向对应记录的完整 URL
type MaintenancePlanFields struct {
	Bus              *string         `json:"bus,omitempty"`
	Wartungstypen    *string         `json:"wartungstypen,omitempty"`
	GeplantesDatum   *string         `json:"geplantes_datum,omitempty"`
	AktuellerKmStand *float64        `json:"aktueller_km_stand,omitempty"`
	Prioritaet       *Priority       `json:"prioritaet,omitempty"`
	Planungsstatus   *PlanningStatus `json:"planungsstatus,omitempty"`
	Planungsnotizen  *string         `json:"planungsnotizen,omitempty"`
}

// MaintenancePlan 维护计划记录
type MaintenancePlan = Record[MaintenancePlanFields]

// IsUpcoming 仅 geplant / bestaetigt 视为待办
func (f MaintenancePlanFields) IsUpcoming() bool {
	if f.Planungsstatus == nil {
		return false
	}
	return *f.Planungsstatus == PlanningPlanned || *f.Planungsstatus == PlanningConfirmed
}

// MaintenanceExecutionFields 维护执行（Wartungsdurchfuehrung）字段
type MaintenanceExecutionFields struct {
	Bus                    *string  `json:"bus,omitempty"`
	Wartungstypen          *string  `json:"wartungstypen,omitempty"`
	Durchfuehrungsdatum    *string  `json:"durchfuehrungsdatum,omitempty"`
	KmStandBeiWartung      *float64 `json:"km_stand_bei_wartung,omitempty"`
	DurchgefuehrteArbeiten *string  `json:"durchgefuehrte_arbeiten,omitempty"`
	VerwendeteTeile        *string  `json:"verwendete_teile,omitempty"`
	TechnikerVorname       *string  `json:"techniker_vorname,omitempty"`
	TechnikerNachname      *string  `json:"techniker_nachname,omitempty"`
	ArbeitszeitStunden     *float64 `json:"arbeitszeit_stunden,omitempty"`
	Gesamtkosten           *float64 `json:"gesamtkosten,omitempty"`
	NaechsteWartungKm      *float64 `json:"naechste_wartung_km,omitempty"`
	NaechsteWartungDatum   *string  `json:"naechste_wartung_datum,omitempty"`
	MsBcBelegnummer        *string  `json:"ms_bc_belegnummer,omitempty"`
	Durchfuehrungsnotizen  *string  `json:"durchfuehrungsnotizen,omitempty"`
}

// MaintenanceExecution 维护执行记录
type MaintenanceExecution = Record[MaintenanceExecutionFields]

// Cost 缺省费用计 0
func (f MaintenanceExecutionFields) Cost() float64 {
	if f.Gesamtkosten == nil {
		return 0
	}
	return *f.Gesamtkosten
}

// StringValue 解引用可选字符串，缺省为空串
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

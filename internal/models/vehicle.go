package models

// VehicleStatus 车辆运营状态
type VehicleStatus string

const (
	StatusInService     VehicleStatus = "in_betrieb"
	StatusInMaintenance VehicleStatus = "in_wartung"
	StatusOutOfService  VehicleStatus = "ausser_betrieb"
	StatusReserve       VehicleStatus = "reserve"
)

// VehicleStatuses 展示顺序
var VehicleStatuses = []VehicleStatus{
	StatusInService,
	StatusReserve,
	StatusInMaintenance,
	StatusOutOfService,
}

// VehicleFields 车辆（Busse）字段
type VehicleFields struct {
	Fahrzeugnummer    *string        `json:"fahrzeugnummer,omitempty"`    // 车队编号
	Kennzeichen       *string        `json:"kennzeichen,omitempty"`       // 车牌
	Hersteller        *string        `json:"hersteller,omitempty"`        // 制造商
	Modell            *string        `json:"modell,omitempty"`            // 型号
	Baujahr           *float64       `json:"baujahr,omitempty"`           // 年份
	Fahrgestellnummer *string        `json:"fahrgestellnummer,omitempty"` // 底盘号
	Kilometerstand    *float64       `json:"kilometerstand,omitempty"`    // 里程 (km)
	Anschaffungsdatum *string        `json:"anschaffungsdatum,omitempty"` // YYYY-MM-DD 或 ISO 时间
	Status            *VehicleStatus `json:"status,omitempty"`
	MsBcReferenz      *string        `json:"ms_bc_referenz,omitempty"` // 外部系统引用
	Notizen           *string        `json:"notizen,omitempty"`
}

// Vehicle 车辆记录
type Vehicle = Record[VehicleFields]

// EffectiveStatus 缺省状态按在运营处理
func (f VehicleFields) EffectiveStatus() VehicleStatus {
	if f.Status == nil || *f.Status == "" {
		return StatusInService
	}
	return *f.Status
}

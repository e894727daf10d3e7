package models

// Record LivingApps 记录的通用信封
// 所有集合共享 record_id / createdat / updatedat，差异只在 fields
type Record[F any] struct {
	RecordID  string  `json:"record_id"`
	CreatedAt string  `json:"createdat"`
	UpdatedAt *string `json:"updatedat"` // 从未修改过的记录为 null
	Fields    F       `json:"fields"`
}

// Collection 逻辑集合名称
type Collection string

const (
	CollectionVehicles              Collection = "busse"
	CollectionMaintenanceTypes      Collection = "wartungstypen"
	CollectionMaintenancePlans      Collection = "wartungsplanung"
	CollectionMaintenanceExecutions Collection = "wartungsdurchfuehrung"
)

// Collections 全部集合，顺序与仪表盘加载顺序一致
var Collections = []Collection{
	CollectionVehicles,
	CollectionMaintenanceTypes,
	CollectionMaintenancePlans,
	CollectionMaintenanceExecutions,
}

// AppIDs 集合到平台应用 ID 的映射
type AppIDs struct {
	Vehicles              string `json:"busse"`
	MaintenanceTypes      string `json:"wartungstypen"`
	MaintenancePlans      string `json:"wartungsplanung"`
	MaintenanceExecutions string `json:"wartungsdurchfuehrung"`
}

// DefaultAppIDs 平台上的默认应用 ID
var DefaultAppIDs = AppIDs{
	Vehicles:              "69859cb732543c57f5582054",
	MaintenanceTypes:      "69859cbc8803d48c36b2982c",
	MaintenancePlans:      "69859cbdb46adb45561f8e7f",
	MaintenanceExecutions: "69859cbddb8910ee0e4d15e5",
}

// Of 返回集合对应的应用 ID
func (a AppIDs) Of(c Collection) (string, bool) {
	switch c {
	case CollectionVehicles:
		return a.Vehicles, true
	case CollectionMaintenanceTypes:
		return a.MaintenanceTypes, true
	case CollectionMaintenancePlans:
		return a.MaintenancePlans, true
	case CollectionMaintenanceExecutions:
		return a.MaintenanceExecutions, true
	}
	return "", false
}

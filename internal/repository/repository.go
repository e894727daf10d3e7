package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/models"
)

// ErrInvalidFields 请求中的字段无法按集合结构解码
var ErrInvalidFields = errors.New("invalid fields")

// Store 按集合名访问记录的无类型接口
type Store interface {
	AppID() string
	RecordURL(recordID string) string
	ListAny(ctx context.Context) (interface{}, error)
	GetAny(ctx context.Context, recordID string) (interface{}, error)
	CreateJSON(ctx context.Context, data []byte) (json.RawMessage, error)
	UpdateJSON(ctx context.Context, recordID string, data []byte) (json.RawMessage, error)
	Delete(ctx context.Context, recordID string) error
}

// Set 四个集合的仓库
type Set struct {
	Vehicles              *RecordRepository[models.VehicleFields]
	MaintenanceTypes      *RecordRepository[models.MaintenanceTypeFields]
	MaintenancePlans      *RecordRepository[models.MaintenancePlanFields]
	MaintenanceExecutions *RecordRepository[models.MaintenanceExecutionFields]
}

// NewSet 根据应用 ID 映射创建仓库集合
func NewSet(client *livingapps.Client, ids models.AppIDs) *Set {
	return &Set{
		Vehicles:              NewRecordRepository[models.VehicleFields](client, ids.Vehicles),
		MaintenanceTypes:      NewRecordRepository[models.MaintenanceTypeFields](client, ids.MaintenanceTypes),
		MaintenancePlans:      NewRecordRepository[models.MaintenancePlanFields](client, ids.MaintenancePlans),
		MaintenanceExecutions: NewRecordRepository[models.MaintenanceExecutionFields](client, ids.MaintenanceExecutions),
	}
}

// Store 按集合名取仓库
func (s *Set) Store(c models.Collection) (Store, bool) {
	switch c {
	case models.CollectionVehicles:
		return s.Vehicles, true
	case models.CollectionMaintenanceTypes:
		return s.MaintenanceTypes, true
	case models.CollectionMaintenancePlans:
		return s.MaintenancePlans, true
	case models.CollectionMaintenanceExecutions:
		return s.MaintenanceExecutions, true
	}
	return nil, false
}

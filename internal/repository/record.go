package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/models"
)

// RecordRepository 某个集合的记录仓库
// 所有集合共用同一套 CRUD，只在字段类型 F 与应用 ID 上不同
type RecordRepository[F any] struct {
	client *livingapps.Client
	appID  string
}

// NewRecordRepository 创建记录仓库
func NewRecordRepository[F any](client *livingapps.Client, appID string) *RecordRepository[F] {
	return &RecordRepository[F]{client: client, appID: appID}
}

// AppID 返回应用 ID
func (r *RecordRepository[F]) AppID() string {
	return r.appID
}

// RecordURL 生成指向本集合记录的交叉引用 URL
func (r *RecordRepository[F]) RecordURL(recordID string) string {
	return r.client.RecordURL(r.appID, recordID)
}

// List 获取集合中的全部记录（无分页）
func (r *RecordRepository[F]) List(ctx context.Context) ([]models.Record[F], error) {
	raws, err := r.client.ListRecords(ctx, r.appID)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record[F], 0, len(raws))
	for _, raw := range raws {
		var rec models.Record[F]
		if err := json.Unmarshal(raw.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", raw.ID, err)
		}
		// 记录自身带 record_id 时以其为准，否则使用键
		if rec.RecordID == "" {
			rec.RecordID = raw.ID
		}
		records = append(records, rec)
	}
	return records, nil
}

// singleRecord 单条读取接口的响应，ID 字段为 id
type singleRecord[F any] struct {
	models.Record[F]
	ID string `json:"id"`
}

// Get 获取单条记录
func (r *RecordRepository[F]) Get(ctx context.Context, recordID string) (*models.Record[F], error) {
	raw, err := r.client.GetRecord(ctx, r.appID, recordID)
	if err != nil {
		return nil, err
	}

	var rec singleRecord[F]
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", recordID, err)
	}
	if rec.RecordID == "" {
		rec.RecordID = rec.ID
	}
	return &rec.Record, nil
}

// Create 创建记录，返回平台原始响应
func (r *RecordRepository[F]) Create(ctx context.Context, fields F) (json.RawMessage, error) {
	return r.client.CreateRecord(ctx, r.appID, fields)
}

// Update 部分更新，未设置的指针字段不会发送
func (r *RecordRepository[F]) Update(ctx context.Context, recordID string, fields F) (json.RawMessage, error) {
	return r.client.UpdateRecord(ctx, r.appID, recordID, fields)
}

// Delete 删除记录，nil 即确认
func (r *RecordRepository[F]) Delete(ctx context.Context, recordID string) error {
	return r.client.DeleteRecord(ctx, r.appID, recordID)
}

// ListAny 无类型版本，供按集合名分发的接口使用
func (r *RecordRepository[F]) ListAny(ctx context.Context) (interface{}, error) {
	return r.List(ctx)
}

// GetAny 无类型版本
func (r *RecordRepository[F]) GetAny(ctx context.Context, recordID string) (interface{}, error) {
	return r.Get(ctx, recordID)
}

// CreateJSON 先按字段结构解码再创建，未知字段被丢弃
func (r *RecordRepository[F]) CreateJSON(ctx context.Context, data []byte) (json.RawMessage, error) {
	var fields F
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	return r.Create(ctx, fields)
}

// UpdateJSON 部分更新的无类型版本
func (r *RecordRepository[F]) UpdateJSON(ctx context.Context, recordID string, data []byte) (json.RawMessage, error) {
	var fields F
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	return r.Update(ctx, recordID, fields)
}

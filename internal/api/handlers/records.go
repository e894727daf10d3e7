package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/langchou/fuhrpark/internal/models"
	"github.com/langchou/fuhrpark/internal/repository"
)

// store 解析 :collection 参数，未知集合直接返回 404
func (h *Handler) store(c *gin.Context) (repository.Store, bool) {
	name := c.Param("collection")
	s, ok := h.repos.Store(models.Collection(name))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown collection: " + name})
		return nil, false
	}
	return s, true
}

// recordID 校验 :id 参数为 24 位十六进制
func recordID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !primitive.IsValidObjectID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return "", false
	}
	return id, true
}

// ListRecords 列出集合中的全部记录
// GET /api/records/:collection
func (h *Handler) ListRecords(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}

	records, err := s.ListAny(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err), zap.String("collection", c.Param("collection")))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// GetRecord 获取单条记录
// GET /api/records/:collection/:id
func (h *Handler) GetRecord(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}

	record, err := s.GetAny(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

// CreateRecord 创建记录，请求体为 fields 对象
// POST /api/records/:collection
func (h *Handler) CreateRecord(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	resp, err := s.CreateJSON(c.Request.Context(), body)
	if err != nil {
		h.logger.Error("Failed to create record", zap.Error(err), zap.String("collection", c.Param("collection")))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.reload(c.Request.Context())

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// UpdateRecord 部分更新，只发送请求中出现的字段
// PATCH /api/records/:collection/:id
func (h *Handler) UpdateRecord(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	resp, err := s.UpdateJSON(c.Request.Context(), id, body)
	if err != nil {
		h.logger.Error("Failed to update record", zap.Error(err), zap.String("record_id", id))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.reload(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DeleteRecord 删除记录
// DELETE /api/records/:collection/:id
func (h *Handler) DeleteRecord(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}

	if err := s.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete record", zap.Error(err), zap.String("record_id", id))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.reload(c.Request.Context())

	c.Status(http.StatusNoContent)
}

// reload 写入后整体重新加载仪表盘，失败只记日志
func (h *Handler) reload(ctx context.Context) {
	if err := h.dashboard.Load(ctx); err != nil {
		h.logger.Warn("Reload after write failed", zap.Error(err))
	}
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return nil, false
	}
	return body, true
}

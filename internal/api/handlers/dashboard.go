package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/repository"
	"github.com/langchou/fuhrpark/internal/service"
	"github.com/langchou/fuhrpark/internal/view"
)

// ShowDashboard 仪表盘页面
// GET /?neu=1 直接打开登记表单
func (h *Handler) ShowDashboard(c *gin.Context) {
	form := service.NewExecutionForm(time.Now())
	h.renderDashboard(c, http.StatusOK, form, c.Query("neu") == "1")
}

func (h *Handler) renderDashboard(c *gin.Context, status int, form service.ExecutionForm, formOpen bool) {
	c.HTML(status, view.DashboardTemplate, view.NewPage(h.dashboard.Current(), form, formOpen))
}

// Refresh 重新加载（错误页的“重试”按钮）
// POST /aktualisieren
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.dashboard.Load(c.Request.Context()); err != nil {
		h.logger.Warn("Dashboard refresh failed", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// SubmitExecution 表单提交
// POST /wartungen
// 失败时表单保持打开并保留输入，不显示错误信息
func (h *Handler) SubmitExecution(c *gin.Context) {
	form := service.NewExecutionForm(time.Now())
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Warn("Invalid maintenance form", zap.Error(err))
		h.renderDashboard(c, http.StatusUnprocessableEntity, form, true)
		return
	}

	if _, err := h.dashboard.CreateExecution(c.Request.Context(), form); err != nil {
		h.logger.Error("Failed to create maintenance record", zap.Error(err))
		status := statusFor(err)
		if errors.Is(err, service.ErrInvalidForm) {
			status = http.StatusUnprocessableEntity
		}
		h.renderDashboard(c, status, form, true)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// GetDashboard 当前视图
// GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	v := h.dashboard.Current()
	c.JSON(http.StatusOK, gin.H{
		"state": v.State.State,
		"since": v.State.Since,
		"error": v.State.Error,
		"data":  v.Dashboard,
	})
}

// RefreshDashboard 重新拉取四个集合
// POST /api/dashboard/refresh
func (h *Handler) RefreshDashboard(c *gin.Context) {
	if err := h.dashboard.Load(c.Request.Context()); err != nil {
		h.logger.Warn("Dashboard refresh failed", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.GetDashboard(c)
}

// CreateExecution 登记一次维护
// POST /api/executions
func (h *Handler) CreateExecution(c *gin.Context) {
	form := service.NewExecutionForm(time.Now())
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.dashboard.CreateExecution(c.Request.Context(), form)
	if err != nil {
		h.logger.Error("Failed to create maintenance record", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// statusFor 把领域错误映射为 HTTP 状态码
// 远端 4xx 原样返回，其余远端错误为 502
func statusFor(err error) int {
	var apiErr *livingapps.APIError
	switch {
	case errors.Is(err, service.ErrInvalidForm), errors.Is(err, repository.ErrInvalidFields):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
	}
	return http.StatusBadGateway
}

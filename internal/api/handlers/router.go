package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/fuhrpark/internal/metrics"
	"github.com/langchou/fuhrpark/internal/repository"
	"github.com/langchou/fuhrpark/internal/service"
	"github.com/langchou/fuhrpark/internal/view"
	"github.com/langchou/fuhrpark/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	dashboard *service.DashboardService
	repos     *repository.Set
	wsHub     *ws.Hub
	metrics   *metrics.Registry
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	dashboard *service.DashboardService,
	repos *repository.Set,
	wsHub *ws.Hub,
	m *metrics.Registry,
) *Handler {
	return &Handler{
		logger:    logger,
		dashboard: dashboard,
		repos:     repos,
		wsHub:     wsHub,
		metrics:   m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// NewRouter 创建带全部中间件的路由
func NewRouter(logger *zap.Logger, h *Handler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(logger))
	if h.metrics != nil {
		router.Use(Metrics(h.metrics))
	}
	router.Use(CORS())

	tmpl, err := view.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	h.RegisterRoutes(router)
	return router, nil
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// 页面
	r.GET("/", h.ShowDashboard)
	r.POST("/aktualisieren", h.Refresh)
	r.POST("/wartungen", h.SubmitExecution)

	// API 路由
	api := r.Group("/api")
	{
		// 仪表盘
		api.GET("/dashboard", h.GetDashboard)
		api.POST("/dashboard/refresh", h.RefreshDashboard)
		api.POST("/executions", h.CreateExecution)

		// 记录透传
		api.GET("/records/:collection", h.ListRecords)
		api.POST("/records/:collection", h.CreateRecord)
		api.GET("/records/:collection/:id", h.GetRecord)
		api.PATCH("/records/:collection/:id", h.UpdateRecord)
		api.DELETE("/records/:collection/:id", h.DeleteRecord)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)

	// 指标
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	h.wsHub.Serve(conn)
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"view":       h.dashboard.Current().State.State,
		"ws_clients": h.wsHub.ClientCount(),
	})
}

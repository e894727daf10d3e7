package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/fuhrpark/internal/api/handlers"
	"github.com/langchou/fuhrpark/internal/api/livingapps"
	"github.com/langchou/fuhrpark/internal/config"
	"github.com/langchou/fuhrpark/internal/metrics"
	"github.com/langchou/fuhrpark/internal/repository"
	"github.com/langchou/fuhrpark/internal/service"
	"github.com/langchou/fuhrpark/internal/state"
	"github.com/langchou/fuhrpark/pkg/ws"
)

var rootCmd = &cobra.Command{
	Use:           "fuhrpark",
	Short:         "Fleet maintenance dashboard backed by LivingApps",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Load all collections once and print the derived dashboard as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := initLogger(cfg.Debug)
		defer logger.Sync()

		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		if err := app.dashboard.Load(cmd.Context()); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(app.dashboard.Current().Dashboard)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, summaryCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app 运行所需的组件
type app struct {
	metrics   *metrics.Registry
	repos     *repository.Set
	dashboard *service.DashboardService
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	m := metrics.New()

	opts := []livingapps.Option{
		livingapps.WithTimeout(cfg.Timeout),
		livingapps.WithLogger(logger),
		livingapps.WithMetrics(m),
	}
	if cfg.SessionCookie != "" {
		opts = append(opts, livingapps.WithSessionCookies(cfg.SessionCookie))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, livingapps.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}

	client, err := livingapps.NewClient(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create LivingApps client: %w", err)
	}

	repos := repository.NewSet(client, cfg.AppIDs)
	return &app{
		metrics:   m,
		repos:     repos,
		dashboard: service.NewDashboardService(logger, repos, m),
	}, nil
}

func serve(ctx context.Context) error {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Fuhrpark",
		zap.String("port", cfg.ServerPort),
		zap.String("livingapps", cfg.BaseURL),
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	wsHub.SetCurrent(func() interface{} {
		v := a.dashboard.Current()
		return service.Update{State: v.State, Dashboard: v.Dashboard}
	})
	go wsHub.Run(ctx)

	// 订阅视图更新并广播到 WebSocket
	go func() {
		updates := a.dashboard.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				if u.State.State == state.StateErrored {
					wsHub.BroadcastError(u.State)
					continue
				}
				wsHub.BroadcastDashboardUpdate(u)
			}
		}
	}()

	// 首次加载，页面在完成前显示加载状态
	go func() {
		if err := a.dashboard.Load(ctx); err != nil {
			logger.Error("Initial dashboard load failed", zap.Error(err))
		}
	}()

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := handlers.NewHandler(logger, a.dashboard, a.repos, wsHub, a.metrics)
	router, err := handlers.NewRouter(logger, handler)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	}

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry Prometheus 指标集合
// 使用独立的 registry，避免重复创建时与全局 registry 冲突
type Registry struct {
	reg *prometheus.Registry

	// 远端 LivingApps 调用
	RemoteRequestsTotal   *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec

	// 本服务 HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 仪表盘加载结果
	DashboardLoadsTotal *prometheus.CounterVec
}

// New 创建指标集合
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		RemoteRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuhrpark_remote_requests_total",
				Help: "LivingApps REST calls by app, method and status code",
			},
			[]string{"app", "method", "status_code"},
		),
		RemoteRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuhrpark_remote_request_duration_seconds",
				Help:    "LivingApps REST call latency in seconds",
				Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"app", "method"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuhrpark_http_requests_total",
				Help: "HTTP requests processed by route, method and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuhrpark_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		DashboardLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuhrpark_dashboard_loads_total",
				Help: "Dashboard loads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler /metrics 处理器
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer 供测试读取指标
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

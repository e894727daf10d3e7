package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/fuhrpark/internal/metrics"
	"github.com/langchou/fuhrpark/internal/models"
	"github.com/langchou/fuhrpark/internal/repository"
	"github.com/langchou/fuhrpark/internal/state"
)

// ErrInvalidForm 表单缺少必填项或 ID 格式不对
var ErrInvalidForm = errors.New("invalid maintenance form")

// Update 推送给订阅者的视图变化
type Update struct {
	State     state.ViewState `json:"view"`
	Dashboard *Dashboard      `json:"data,omitempty"`
}

// View 当前视图：状态 + ready 时的数据
type View struct {
	State     state.ViewState
	Dashboard *Dashboard
	Snapshot  *Snapshot
}

// DashboardService 仪表盘服务
// 一个进程只有一个视图会话：挂载 → 加载 → 渲染
type DashboardService struct {
	logger  *zap.Logger
	repos   *repository.Set
	machine *state.Machine
	metrics *metrics.Registry
	now     func() time.Time

	mu          sync.RWMutex
	snapshot    *Snapshot
	dashboard   *Dashboard
	subscribers []chan Update
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(logger *zap.Logger, repos *repository.Set, m *metrics.Registry) *DashboardService {
	svc := &DashboardService{
		logger:  logger,
		repos:   repos,
		metrics: m,
		now:     time.Now,
	}
	svc.machine = state.NewMachine(svc.onStateChange)
	return svc
}

// SetClock 替换时间来源（测试用）
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *DashboardService) onStateChange(from, to string) {
	s.logger.Debug("Dashboard state changed", zap.String("from", from), zap.String("to", to))
}

// Subscribe 订阅视图更新
func (s *DashboardService) Subscribe() <-chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *DashboardService) notify(u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			s.logger.Warn("Dashboard subscriber is slow, dropping update")
		}
	}
}

// Current 当前视图
// 只有 ready 时才带数据；errored 时不展示任何旧数据
func (s *DashboardService) Current() View {
	vs := s.machine.GetState()
	v := View{State: vs}
	if vs.State != state.StateReady {
		return v
	}
	s.mu.RLock()
	v.Dashboard = s.dashboard
	v.Snapshot = s.snapshot
	s.mu.RUnlock()
	return v
}

// Load 并发拉取四个集合并重新推导仪表盘
// 任一请求失败则整体失败；不取消先前仍在进行的加载，最后完成的一次生效
// 视图为全进程共享，调用方断开不取消加载，超时由客户端控制
func (s *DashboardService) Load(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.machine.Load(); err != nil {
		return err
	}

	start := time.Now()
	snap, err := s.fetch(ctx)
	if err != nil {
		s.logger.Error("Failed to load dashboard", zap.Error(err), zap.Duration("took", time.Since(start)))
		s.countLoad("error")
		if ferr := s.machine.Fail(err); ferr != nil {
			s.logger.Error("Failed to record load failure", zap.Error(ferr))
		}
		s.notify(Update{State: s.machine.GetState()})
		return err
	}

	dash := Derive(snap, s.now())

	s.mu.Lock()
	s.snapshot = snap
	s.dashboard = dash
	s.mu.Unlock()

	if err := s.machine.Succeed(); err != nil {
		s.logger.Error("Failed to record load success", zap.Error(err))
	}
	s.countLoad("ok")
	s.logger.Info("Dashboard loaded",
		zap.Int("vehicles", len(snap.Vehicles)),
		zap.Int("maintenance_types", len(snap.MaintenanceTypes)),
		zap.Int("plans", len(snap.MaintenancePlans)),
		zap.Int("executions", len(snap.MaintenanceExecutions)),
		zap.Duration("took", time.Since(start)),
	)
	s.notify(Update{State: s.machine.GetState(), Dashboard: dash})
	return nil
}

func (s *DashboardService) countLoad(outcome string) {
	if s.metrics != nil {
		s.metrics.DashboardLoadsTotal.WithLabelValues(outcome).Inc()
	}
}

// fetch 同时发出四个读取请求，全部成功才返回
// 返回第一个失败请求的错误
func (s *DashboardService) fetch(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.repos.Vehicles.List(gCtx)
		if err != nil {
			return s.fetchFailed(models.CollectionVehicles, err)
		}
		snap.Vehicles = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repos.MaintenanceTypes.List(gCtx)
		if err != nil {
			return s.fetchFailed(models.CollectionMaintenanceTypes, err)
		}
		snap.MaintenanceTypes = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repos.MaintenancePlans.List(gCtx)
		if err != nil {
			return s.fetchFailed(models.CollectionMaintenancePlans, err)
		}
		snap.MaintenancePlans = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repos.MaintenanceExecutions.List(gCtx)
		if err != nil {
			return s.fetchFailed(models.CollectionMaintenanceExecutions, err)
		}
		snap.MaintenanceExecutions = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// fetchFailed 记录失败的集合，错误原样返回以便展示平台响应体
func (s *DashboardService) fetchFailed(c models.Collection, err error) error {
	s.logger.Warn("Failed to fetch collection", zap.String("collection", string(c)), zap.Error(err))
	return err
}

// NumberInput 表单中的可选数字，JSON 中可为数字或字符串
type NumberInput string

// UnmarshalJSON 接受 123、"123" 与 null
func (n *NumberInput) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = NumberInput(s)
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = NumberInput(f.String())
	return nil
}

// Value 空值或无法解析时为 nil
func (n NumberInput) Value() *float64 {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ExecutionForm 维护登记表单
type ExecutionForm struct {
	Bus                    string      `form:"bus" json:"bus" binding:"required"`
	Wartungstypen          string      `form:"wartungstypen" json:"wartungstypen" binding:"required"`
	Durchfuehrungsdatum    string      `form:"durchfuehrungsdatum" json:"durchfuehrungsdatum" binding:"required"`
	KmStandBeiWartung      NumberInput `form:"km_stand_bei_wartung" json:"km_stand_bei_wartung"`
	DurchgefuehrteArbeiten string      `form:"durchgefuehrte_arbeiten" json:"durchgefuehrte_arbeiten"`
	Gesamtkosten           NumberInput `form:"gesamtkosten" json:"gesamtkosten"`
}

// NewExecutionForm 默认值：日期为今天
func NewExecutionForm(now time.Time) ExecutionForm {
	return ExecutionForm{Durchfuehrungsdatum: now.Format("2006-01-02")}
}

// Ready 必填项是否齐全（决定提交按钮是否可用）
func (f ExecutionForm) Ready() bool {
	return f.Bus != "" && f.Wartungstypen != ""
}

// Validate 必填项与记录 ID 格式
func (f ExecutionForm) Validate() error {
	if !f.Ready() || strings.TrimSpace(f.Durchfuehrungsdatum) == "" {
		return fmt.Errorf("%w: bus, wartungstypen and durchfuehrungsdatum are required", ErrInvalidForm)
	}
	if !primitive.IsValidObjectID(f.Bus) {
		return fmt.Errorf("%w: bus %q is not a record id", ErrInvalidForm, f.Bus)
	}
	if !primitive.IsValidObjectID(f.Wartungstypen) {
		return fmt.Errorf("%w: wartungstypen %q is not a record id", ErrInvalidForm, f.Wartungstypen)
	}
	return nil
}

// ExecutionFields 把表单转换为创建请求字段，裸 ID 转为完整记录 URL
func (s *DashboardService) ExecutionFields(f ExecutionForm) models.MaintenanceExecutionFields {
	bus := s.repos.Vehicles.RecordURL(f.Bus)
	typ := s.repos.MaintenanceTypes.RecordURL(f.Wartungstypen)
	date := f.Durchfuehrungsdatum

	fields := models.MaintenanceExecutionFields{
		Bus:                 &bus,
		Wartungstypen:       &typ,
		Durchfuehrungsdatum: &date,
		KmStandBeiWartung:   f.KmStandBeiWartung.Value(),
		Gesamtkosten:        f.Gesamtkosten.Value(),
	}
	if f.DurchgefuehrteArbeiten != "" {
		work := f.DurchgefuehrteArbeiten
		fields.DurchgefuehrteArbeiten = &work
	}
	return fields
}

// CreateExecution 登记一次维护，成功后完整重新加载
// 返回的 error 只表示创建失败；重新加载的结果体现在视图状态中
func (s *DashboardService) CreateExecution(ctx context.Context, f ExecutionForm) (json.RawMessage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.repos.MaintenanceExecutions.Create(ctx, s.ExecutionFields(f))
	if err != nil {
		return nil, fmt.Errorf("create maintenance execution: %w", err)
	}
	s.logger.Info("Maintenance execution created",
		zap.String("bus", f.Bus),
		zap.String("wartungstypen", f.Wartungstypen),
		zap.String("datum", f.Durchfuehrungsdatum),
	)

	if err := s.Load(ctx); err != nil {
		s.logger.Warn("Reload after create failed", zap.Error(err))
	}
	return resp, nil
}

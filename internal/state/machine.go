package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 视图状态常量
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateErrored = "errored"
)

// 事件常量
const (
	EventLoad    = "load"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

// ViewState 视图状态快照
type ViewState struct {
	State string    `json:"state"`
	Since time.Time `json:"since"`
	Error string    `json:"error,omitempty"`
}

// Machine 仪表盘视图状态机
// loading → ready | errored；ready / errored 通过 load 回到 loading
type Machine struct {
	mu            sync.RWMutex
	fsm           *fsm.FSM
	since         time.Time
	lastErr       error
	onStateChange func(from, to string)
}

// NewMachine 创建状态机，初始即为 loading（视图挂载时立即加载）
func NewMachine(onStateChange func(from, to string)) *Machine {
	m := &Machine{
		since:         time.Now(),
		onStateChange: onStateChange,
	}

	m.fsm = fsm.NewFSM(
		StateLoading,
		fsm.Events{
			{Name: EventLoad, Src: []string{StateReady, StateErrored}, Dst: StateLoading},
			// 并发加载时较晚完成的一次可能从 ready / errored 出发
			{Name: EventSucceed, Src: []string{StateLoading, StateReady, StateErrored}, Dst: StateReady},
			{Name: EventFail, Src: []string{StateLoading, StateReady, StateErrored}, Dst: StateErrored},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState 获取完整状态
func (m *Machine) GetState() ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vs := ViewState{State: m.fsm.Current(), Since: m.since}
	if m.lastErr != nil && vs.State == StateErrored {
		vs.Error = m.lastErr.Error()
	}
	return vs
}

// Err 最近一次失败的原因，非 errored 状态下为 nil
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fsm.Current() != StateErrored {
		return nil
	}
	return m.lastErr
}

// Load 进入 loading，已在 loading 时不做任何事
func (m *Machine) Load() error {
	return m.trigger(EventLoad, nil)
}

// Succeed 加载成功
func (m *Machine) Succeed() error {
	return m.trigger(EventSucceed, nil)
}

// Fail 加载失败并记录原因
func (m *Machine) Fail(cause error) error {
	return m.trigger(EventFail, cause)
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

func (m *Machine) trigger(event string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event == EventLoad && m.fsm.Current() == StateLoading {
		return nil
	}

	if err := m.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			return fmt.Errorf("trigger event %s: %w", event, err)
		}
	}

	m.lastErr = cause
	m.since = time.Now()
	return nil
}

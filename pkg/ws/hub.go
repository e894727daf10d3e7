package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 推送给仪表盘页面的消息类型
const (
	MsgTypeInit            = "init"             // 连接时的当前视图
	MsgTypeDashboardUpdate = "dashboard_update" // 加载成功后的新仪表盘
	MsgTypeError           = "error"            // 加载失败
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message 推送消息
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// viewer 一个打开的仪表盘页面
type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 把视图变化推送给所有打开的仪表盘页面
// 页面只接收，不发送业务消息
type Hub struct {
	logger  *zap.Logger
	current func() interface{}

	mu      sync.RWMutex
	viewers map[*viewer]struct{}

	join    chan *viewer
	leave   chan *viewer
	publish chan []byte
	done    chan struct{}
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		viewers: make(map[*viewer]struct{}),
		join:    make(chan *viewer),
		leave:   make(chan *viewer),
		publish: make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// SetCurrent 设置新连接收到的当前视图
func (h *Hub) SetCurrent(current func() interface{}) {
	h.current = current
}

// Run 运行 Hub，ctx 结束时断开所有页面
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for v := range h.viewers {
				h.drop(v)
			}
			h.mu.Unlock()
			close(h.done)
			return

		case v := <-h.join:
			h.mu.Lock()
			h.viewers[v] = struct{}{}
			total := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("Dashboard viewer connected", zap.Int("viewers", total))
			h.greet(v)

		case v := <-h.leave:
			h.mu.Lock()
			if _, ok := h.viewers[v]; ok {
				h.drop(v)
			}
			total := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("Dashboard viewer disconnected", zap.Int("viewers", total))

		case msg := <-h.publish:
			h.mu.Lock()
			for v := range h.viewers {
				select {
				case v.send <- msg:
				default:
					// 跟不上的页面直接断开，重连后会收到 init
					h.drop(v)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop 调用方持有 mu
func (h *Hub) drop(v *viewer) {
	delete(h.viewers, v)
	close(v.send)
}

func (h *Hub) greet(v *viewer) {
	if h.current == nil {
		return
	}
	data, err := json.Marshal(Message{Type: MsgTypeInit, Data: h.current()})
	if err != nil {
		h.logger.Error("Failed to encode current view", zap.Error(err))
		return
	}
	v.send <- data // 刚创建的缓冲一定有空位
}

func (h *Hub) broadcast(msgType string, data interface{}) {
	msg, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case h.publish <- msg:
	case <-h.done:
	}
}

// BroadcastDashboardUpdate 推送新的仪表盘
func (h *Hub) BroadcastDashboardUpdate(data interface{}) {
	h.broadcast(MsgTypeDashboardUpdate, data)
}

// BroadcastError 推送加载失败
func (h *Hub) BroadcastError(data interface{}) {
	h.broadcast(MsgTypeError, data)
}

// ClientCount 当前连接的页面数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Serve 接管已升级的连接，直到页面关闭或 Hub 停止
func (h *Hub) Serve(conn *websocket.Conn) {
	v := &viewer{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.join <- v:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writeLoop(v)
	h.readLoop(v)
}

// readLoop 只处理 pong 和关闭
func (h *Hub) readLoop(v *viewer) {
	defer func() {
		select {
		case h.leave <- v:
		case <-h.done:
		}
		v.conn.Close()
	}()

	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

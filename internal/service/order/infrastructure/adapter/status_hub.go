package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 允许所有跨域
		return true
	},
}

// StatusHub 维护所有活跃的 websocket 连接，把订单事件推给对应用户。
// 它实现了 port.EventPublisher，一个用户可以同时有多个连接。
type StatusHub struct {
	mu      sync.RWMutex
	clients map[int64]map[*hubClient]struct{}
}

// hubClient 是一个 websocket 连接的代表
type hubClient struct {
	hub    *StatusHub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	once   sync.Once
}

func NewStatusHub() *StatusHub {
	return &StatusHub{clients: make(map[int64]map[*hubClient]struct{})}
}

// ServeWS 把 HTTP 连接升级为 websocket 并注册到 userID 下，调用方负责先校验身份。
func (h *StatusHub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &hubClient{hub: h, conn: conn, send: make(chan []byte, sendBufferSize), userID: userID}
	h.register(c)
	logger.Ctx(r.Context()).Info().Int64("user_id", userID).Msg("websocket client registered")

	go c.writePump()
	go c.readPump()
}

func (h *StatusHub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*hubClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *StatusHub) unregister(c *hubClient) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// Connections 返回某个用户当前的连接数
func (h *StatusHub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish 非阻塞地推送事件；发送缓冲已满的慢连接会被断开。
func (h *StatusHub) Publish(ctx context.Context, event domain.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}

	var slow []*hubClient
	h.mu.RLock()
	for c := range h.clients[event.UserID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Ctx(ctx).Warn().Int64("user_id", c.userID).Msg("dropping slow websocket client")
		c.close()
	}
	return nil
}

// Close 断开所有连接
func (h *StatusHub) Close() {
	h.mu.RLock()
	var all []*hubClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.close()
	}
}

func (c *hubClient) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	})
}

// writePump 负责将 send channel 中的消息写入 websocket
func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只处理心跳和关闭帧，客户端发来的数据直接丢弃
func (c *hubClient) readPump() {
	defer c.close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

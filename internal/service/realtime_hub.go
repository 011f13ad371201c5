package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/pkg/logger"
	"mentora_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	adjustmentChannel = "personalization_adjustments"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AdjustmentMessage 下行的实时调整载荷
type AdjustmentMessage struct {
	Type string                    `json:"type"`
	Data *model.RealTimeAdjustment `json:"data"`
}

type Client struct {
	Hub     *RealtimeHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		// 调整通道是单向下行的，上行内容只做限流消耗后丢弃
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}
		if !c.Limiter.Allow() {
			continue
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

// RealtimeHub 实时调整的推送通道。多实例部署时经 Redis Pub/Sub 转发，
// Redis 缺失时退化为本实例直推。
type RealtimeHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	ctx        context.Context
}

func NewRealtimeHub(rdb *redis.Client) *RealtimeHub {
	h := &RealtimeHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		ctx:        context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

func (h *RealtimeHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type pubSubMessage struct {
	TargetUser uint            `json:"targetUser"`
	Payload    json.RawMessage `json:"payload"`
}

func (h *RealtimeHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, adjustmentChannel)
		go func() {
			ch := pubsub.Channel()
			for msg := range ch {
				var psMsg pubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.pushLocal(psMsg.TargetUser, psMsg.Payload)
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client.UserID] = client
			s.mu.Unlock()
			monitoring.LiveConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if _, ok := s.clients[client.UserID]; ok {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.LiveConnections.Dec()
			}
			s.mu.Unlock()
		}
	}
}

// Push 把实时调整推给目标用户
func (h *RealtimeHub) Push(userID uint, adjustment *model.RealTimeAdjustment) {
	msg := AdjustmentMessage{Type: "REALTIME_ADJUSTMENT", Data: adjustment}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if h.Redis != nil {
		psMsg := pubSubMessage{TargetUser: userID, Payload: payload}
		if raw, err := json.Marshal(psMsg); err == nil {
			h.Redis.Publish(h.ctx, adjustmentChannel, raw)
			monitoring.AdjustmentCounter.WithLabelValues(string(directiveLabel(adjustment))).Inc()
			return
		}
	}

	h.pushLocal(userID, payload)
	monitoring.AdjustmentCounter.WithLabelValues(string(directiveLabel(adjustment))).Inc()
}

func directiveLabel(adjustment *model.RealTimeAdjustment) model.AdjustmentType {
	if adjustment == nil || len(adjustment.Directives) == 0 {
		return "none"
	}
	return adjustment.Directives[0].Type
}

func (h *RealtimeHub) pushLocal(userID uint, payload []byte) {
	s := h.getShard(userID)
	s.mu.RLock()
	if client, ok := s.clients[userID]; ok {
		select {
		case client.Send <- payload:
		default:
		}
	}
	s.mu.RUnlock()
}

func (h *RealtimeHub) IsUserConnected(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	return ok
}

// Stop 关闭所有连接
func (h *RealtimeHub) Stop() {
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			close(client.Send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}
	monitoring.LiveConnections.Set(0)
	logger.Log.Info("RealtimeHub stopped", zap.Int("closedConnections", closed))
}

// ServeWs 升级连接并注册客户端
func ServeWs(hub *RealtimeHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50),
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

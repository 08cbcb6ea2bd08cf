package server

import (
	"sync"
	"time"

	"cryptodash/pkg/coingecko"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1024
)

// Hub tracks connected WebSocket clients and wakes them when the view changes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*wsClient), logger: logger}
}

// Notify wakes every client. A client that has not yet consumed the previous
// wake-up gets only one, so slow clients never block the caller.
func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.wake()
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", zap.String("client", c.id), zap.Int("clients", n))
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info("websocket client disconnected", zap.String("client", c.id), zap.Int("clients", n))
	}
}

// wsClient is one connected browser. Only the write loop writes to conn.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	period coingecko.Period
	reply  []errorMessage
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		period: coingecko.DefaultPeriod,
	}
}

func (c *wsClient) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) setPeriod(p coingecko.Period) {
	c.mu.Lock()
	c.period = p
	c.mu.Unlock()
}

func (c *wsClient) currentPeriod() coingecko.Period {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

func (c *wsClient) queueError(err error) {
	c.mu.Lock()
	c.reply = append(c.reply, errorMessage{Type: "error", Error: err.Error()})
	c.mu.Unlock()
	c.wake()
}

func (c *wsClient) takeErrors() []errorMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.reply
	c.reply = nil
	return out
}

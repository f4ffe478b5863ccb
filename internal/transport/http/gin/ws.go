package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	// Empty filters match everything.
	spaceType string
	date      string
}

func (cl *wsClient) wants(ev redisx.AvailabilityChanged) bool {
	return (cl.spaceType == "" || cl.spaceType == ev.SpaceType) &&
		(cl.date == "" || cl.date == ev.Date)
}

// Hub fans availability changes out to websocket subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

func (h *Hub) register(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[cl] = struct{}{}
}

func (h *Hub) unregister(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// Broadcast queues ev for every client whose space type and date filters match it.
// Slow clients that cannot keep up are dropped.
func (h *Hub) Broadcast(ev redisx.AvailabilityChanged) int {
	b, err := json.Marshal(ev)
	if err != nil {
		return 0
	}

	var slow []*wsClient
	sent := 0

	h.mu.RLock()
	for cl := range h.clients {
		if !cl.wants(ev) {
			continue
		}
		select {
		case cl.send <- b:
			sent++
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.unregister(cl)
	}

	return sent
}

// OnAvailabilityChanged matches the redis pub/sub handler signature.
func (h *Hub) OnAvailabilityChanged(_ context.Context, ev redisx.AvailabilityChanged) {
	h.Broadcast(ev)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// @Summary  Stream availability changes
// @Param    space_type  query  string  false  "only this space type"
// @Param    date        query  string  false  "only this date (YYYY-MM-DD)"
// @Failure  400  {object}  ErrorResponse
// @Router   /ws/availability [get]
func (h *Hub) handleWS(c *gin.Context) {
	date := c.Query("date")
	if date != "" {
		if _, ok := parseDateValue(c, date); !ok {
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	cl := &wsClient{
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		spaceType: c.Query("space_type"),
		date:      date,
	}
	h.register(cl)

	go h.writeLoop(cl)
	h.readLoop(cl)
}

// readLoop only drains control frames; clients never send data.
func (h *Hub) readLoop(cl *wsClient) {
	defer func() {
		h.unregister(cl)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket closed", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(cl *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

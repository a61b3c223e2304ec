package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

// wsClient pairs a connection with its outbound queue. The write pump is
// the connection's only writer; gorilla/websocket allows at most one
// concurrent writer per connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to WebSocket dashboard clients. Connections are
// write-only from the server's perspective; the read loop exists solely to
// notice closes and answer pings.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*wsClient]bool
	log      *logrus.Logger
}

// NewHub creates a WebSocket hub
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]bool),
		log:     log,
	}
}

// ServeHTTP upgrades the connection and keeps it registered until closed
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.WithField("total", h.ClientCount()).Debug("websocket client connected")

	go h.writePump(client)
	go h.readLoop(client)
}

// readLoop drains inbound frames until the connection dies
func (h *Hub) readLoop(c *wsClient) {
	defer h.drop(c)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the client's outbound queue and keeps the connection
// alive with periodic pings. A closed queue means the client was dropped.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(c)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast queues an event for every connected client. Clients whose
// queue is full are dropped rather than blocking the caller. Queueing
// happens under the hub mutex so a concurrent drop cannot close a queue
// mid-send.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event":     event,
		"payload":   payload,
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		h.log.WithError(err).Warn("failed to encode websocket event")
		return
	}

	var slow []*wsClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("websocket client too slow, dropping")
		h.drop(c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}

package notification

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Hub broadcasts engine events (alerts, trades, decisions) to WebSocket
// clients. Each client has a bounded send queue; a slow client loses
// messages rather than backpressuring the engine.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]bool
	latest  map[string]hubEntry // last payload per event type, for initial state
	seq     int64
}

type hubEntry struct {
	Data []byte
	TS   time.Time
}

// NewHub creates a hub. Broadcast works immediately; attach HandleWS to an
// HTTP mux to accept clients.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log.With(slog.String("component", "ws-hub")),
		clients: make(map[*wsClient]bool),
		latest:  make(map[string]hubEntry),
	}
}

// Broadcast fans one event out to every connected client and remembers it as
// the latest of its type. Never blocks: full client queues drop the message.
func (h *Hub) Broadcast(eventType string, payload any) {
	h.mu.Lock()
	h.seq++
	envelope, err := json.Marshal(map[string]any{
		"type": eventType,
		"seq":  h.seq,
		"ts":   time.Now().UTC().Format(time.RFC3339Nano),
		"data": payload,
	})
	if err != nil {
		h.mu.Unlock()
		h.log.Warn("envelope marshal failed", slog.Any("error", err))
		return
	}
	h.latest[eventType] = hubEntry{Data: envelope, TS: time.Now()}
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
			// slow client, drop
		}
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades an HTTP request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	// Seed the new client with the latest event of each type.
	for _, entry := range h.latest {
		select {
		case client.send <- entry.Data:
		default:
		}
	}
	h.mu.Unlock()

	h.log.Info("ws client connected", slog.Int("total", count))

	go client.writePump()
	go client.readPump()
}

func (h *Hub) removeClient(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// wsClient is a single WebSocket peer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Coalesce queued messages into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Clients are read-only consumers; drain and ignore anything they send.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"quoteticker/internal/provider"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the frame sent to WebSocket clients.
type Message struct {
	Type string          `json:"type"`
	Data provider.Update `json:"data"`
}

type client struct {
	id     string
	send   chan Message
	mu     sync.Mutex
	closed bool
}

func newClient() *client {
	return &client{id: uuid.NewString(), send: make(chan Message, sendBuffer)}
}

// offer queues msg without blocking; false means the client is full or gone.
func (c *client) offer(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans published updates out to WebSocket clients. Clients that cannot
// keep up are dropped.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same policy as the CORS middleware: any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Broadcast is a publish handler.
func (h *Hub) Broadcast(u provider.Update) {
	msg := Message{Type: "quote", Data: u}

	h.mu.RLock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.RUnlock()

	for _, c := range list {
		if !c.offer(msg) {
			h.log.Warn().Str("client_id", c.id).Msg("dropping slow client")
			h.unregister(c)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("client_id", c.id).Int("total_clients", n).Msg("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	if ok {
		h.log.Info().Str("client_id", c.id).Int("total_clients", n).Msg("client disconnected")
	}
}

// serve upgrades the request and streams updates until the client goes away.
// A non-nil first is sent before any broadcast.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, first *provider.Update) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient()
	if first != nil {
		c.offer(Message{Type: "quote", Data: *first})
	}
	h.register(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, c)
		conn.Close()
	}()
	h.readPump(conn)

	h.unregister(c)
	<-done
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("client_id", c.id).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and returns when the peer closes.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

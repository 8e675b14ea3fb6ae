package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/animdiff/internal/ir"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// clientBuffer is how many messages a client may lag before it is dropped.
	clientBuffer = 256
)

// wsMessage is the envelope for start and stop messages.
type wsMessage struct {
	Kind   string  `json:"kind"`
	Header *Header `json:"header,omitempty"`
}

type wsFrame struct {
	Kind  string    `json:"kind"`
	Index int       `json:"index"`
	Delta ir.Object `json:"delta"`
}

// Hub broadcasts the run to connected WebSocket clients. Clients that join
// mid-run receive the start message first. It is both an http.Handler and a
// Sink.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	seq     Sequence
	start   []byte
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub returns a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and registers the client. Once the run
// has stopped, new connections are closed straight away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.seq.stopped {
		h.mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
		conn.Close()
		h.log.Debug("ws client refused, run finished", "remote", r.RemoteAddr)
		return
	}
	if h.start != nil {
		c.send <- h.start
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("ws client joined", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go h.readLoop(c, done)
	h.writeLoop(c, done)
}

// readLoop consumes pongs and detects closes.
func (h *Hub) readLoop(c *wsClient, done chan struct{}) {
	defer close(done)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(c)
		c.conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// broadcast queues msg for every client. Clients whose buffer is full are
// disconnected rather than stalling the run.
func (h *Hub) broadcast(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("ws client too slow, dropping")
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) SendStart(_ context.Context, hd Header) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.seq.Start(); err != nil {
		return err
	}
	msg, err := json.Marshal(wsMessage{Kind: "start", Header: &hd})
	if err != nil {
		return err
	}
	h.start = msg
	h.broadcast(msg)
	return nil
}

func (h *Hub) SendFrame(_ context.Context, f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.seq.Frame(f.Index); err != nil {
		return err
	}
	msg, err := json.Marshal(wsFrame{Kind: "frame", Index: f.Index, Delta: f.Delta})
	if err != nil {
		return err
	}
	h.broadcast(msg)
	return nil
}

// SendStop broadcasts the stop message and closes every client.
func (h *Hub) SendStop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.seq.Stop(); err != nil {
		return err
	}
	msg, _ := json.Marshal(wsMessage{Kind: "stop"})
	h.broadcast(msg)
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}

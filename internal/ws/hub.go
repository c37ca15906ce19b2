package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/tournament"
)

const (
	// sendBuffer frames may queue per client before the hub starts
	// dropping instead of blocking the tick.
	sendBuffer = 16
	// maxConsecutiveDrops full-buffer drops in a row mean the client is
	// not draining at all; it gets disconnected.
	maxConsecutiveDrops = 30
)

// SnapshotFunc supplies the full state for the INIT frame.
type SnapshotFunc func() tournament.Snapshot

type Client struct {
	conn  *websocket.Conn
	send  chan []byte
	drops int
}

// Hub fans the per-tick snapshot out to every connected spectator. A
// slow client never slows the tick: frames are dropped when its buffer
// is full, and the client is cut loose once it stops draining entirely.
type Hub struct {
	upgrader websocket.Upgrader
	snapshot SnapshotFunc
	mu       sync.Mutex
	clients  map[*Client]bool
}

func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		snapshot: snapshot,
		clients:  map[*Client]bool{},
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	metricClientsConnected.Add(1)
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("spectator connected")

	if h.snapshot != nil {
		if msg, err := json.Marshal(Envelope{Type: TypeInit, Payload: h.snapshot()}); err == nil {
			safeSend(client.send, msg)
		}
	}

	go h.writeLoop(client)
	h.readLoop(client)
}

// readLoop discards inbound frames; the protocol is one-way. It exists
// to notice the close.
func (h *Hub) readLoop(c *Client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		metricFramesSent.Add(1)
	}
}

// Broadcast queues one UPDATE frame per client, never blocking. Clients
// whose buffers stay full for maxConsecutiveDrops frames are dropped.
func (h *Hub) Broadcast(snap tournament.Snapshot) {
	msg, err := json.Marshal(Envelope{Type: TypeUpdate, Payload: snap})
	if err != nil {
		log.Error().Err(err).Msg("snapshot marshal failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
			c.drops = 0
		default:
			c.drops++
			metricFramesDropped.Add(1)
			if c.drops >= maxConsecutiveDrops {
				delete(h.clients, c)
				metricClientsConnected.Add(-1)
				metricSlowKicks.Add(1)
				safeClose(c.send)
				if c.conn != nil {
					_ = c.conn.Close()
				}
				log.Warn().Int("dropped_frames", c.drops).Msg("slow spectator disconnected")
			}
		}
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		metricClientsConnected.Add(-1)
	}
	h.mu.Unlock()
	safeClose(c.send)
	_ = c.conn.Close()
}

// ClientCount reports connected spectators, for the status endpoint.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}

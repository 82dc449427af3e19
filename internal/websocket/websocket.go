package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/services"
)

// Message types sent to clients
const (
	MsgStats     = "stats"
	MsgCountdown = "countdown"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub maintains the set of active clients and broadcasts raffle updates to them
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	dirty      chan struct{}
	done       chan struct{}
	mutex      sync.RWMutex
	stats      services.StatsServicer

	// overflowOpen remembers the last countdown state so the close is announced once
	overflowOpen bool
	tickMu       sync.Mutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, stats services.StatsServicer) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		stats:      stats,
	}
}

// Start runs the hub until ctx is cancelled
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
	go h.refreshLoop(ctx)
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go h.leave(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// leave unregisters c unless the hub has already stopped
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// refreshLoop coalesces stats-changed signals into one stats broadcast each
func (h *Hub) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.dirty:
			if msg, ok := h.statsMessage(ctx); ok {
				h.send(msg)
			}
		}
	}
}

func (h *Hub) statsMessage(ctx context.Context) (models.WSMessage, bool) {
	stats, err := h.stats.GetStats(ctx)
	if err != nil {
		h.log.Debug("Stats unavailable for broadcast", "error", err)
		return models.WSMessage{}, false
	}
	return models.WSMessage{Type: MsgStats, Payload: stats}, true
}

// send queues a message for all clients, dropping it if the hub is backed up
func (h *Hub) send(msg models.WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("Broadcast queue full, dropping message", "type", msg.Type)
	}
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.send(models.WSMessage{Type: msgType, Payload: payload})
}

// BroadcastStatsChanged implements services.Broadcaster. It never blocks the
// caller; several calls before the next refresh produce one message.
func (h *Hub) BroadcastStatsChanged() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Tick broadcasts the overflow countdown while the window is open, and fresh
// stats once when it closes. It is meant to run every second.
func (h *Hub) Tick(ctx context.Context) {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	stats, err := h.stats.GetStats(ctx)
	if err != nil {
		return
	}
	if stats.IsOverflowActive && stats.OverflowTimeRemaining != nil {
		h.overflowOpen = true
		h.BroadcastMessage(MsgCountdown, map[string]interface{}{
			"overflow_time_remaining": *stats.OverflowTimeRemaining,
		})
		return
	}
	if h.overflowOpen {
		h.overflowOpen = false
		h.log.Info("Overflow window closed")
		h.BroadcastMessage(MsgStats, stats)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		// Clients only listen; reads keep the connection alive
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode message", "type", message.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
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

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}
	// New clients get the current stats straight away
	if msg, ok := h.statsMessage(r.Context()); ok {
		client.send <- msg
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

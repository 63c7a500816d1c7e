// Package websocket delivers chat messages and booking events to connected
// browsers. Every client belongs to one dialogue session.
package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// outbound is a frame for one session, or for everyone when session is empty.
type outbound struct {
	session string
	data    []byte
}

// Hub maintains the set of active clients, indexed by session.
type Hub struct {
	clients  map[*Client]bool
	sessions map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client; Register and Unregister stop blocking from then on.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.sessions[client.session] == nil {
				h.sessions[client.session] = make(map[*Client]bool)
			}
			h.sessions[client.session][client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected",
				zap.String("session", client.session),
				zap.Int("total", total),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected",
				zap.String("session", client.session),
				zap.Int("total", total),
			)

		case msg := <-h.broadcast:
			h.mu.Lock()
			targets := h.clients
			if msg.session != "" {
				targets = h.sessions[msg.session]
			}
			for client := range targets {
				select {
				case client.send <- msg.data:
				default:
					// Send buffer full; drop the client.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if set := h.sessions[client.session]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.sessions, client.session)
		}
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.remove(client)
	}
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping message")
	}
}

// Broadcast sends data to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.enqueue(outbound{data: data})
}

// SendToSession sends data to the clients of one session.
func (h *Hub) SendToSession(sessionID string, data []byte) {
	if sessionID == "" {
		return
	}
	h.enqueue(outbound{session: sessionID, data: data})
}

// Register adds a client to the hub. Once the hub has stopped the client is
// closed straight away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients attached to a session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Client is one WebSocket connection attached to a dialogue session.
type Client struct {
	hub     *Hub
	session string
	send    chan []byte
}

// NewClient creates a client for sessionID.
func NewClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:     hub,
		session: sessionID,
		send:    make(chan []byte, 256),
	}
}

// Send returns the channel of frames queued for this client. It is closed
// when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// SessionID returns the dialogue session the client belongs to.
func (c *Client) SessionID() string {
	return c.session
}

// Reply queues data for this client only. It reports false if the
// client's buffer is full.
func (c *Client) Reply(data []byte) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if !c.hub.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

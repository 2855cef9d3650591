package websocket

import (
	"sync"

	"Carte/internal/utils"
)

// HubInterface is what the game layer needs from the transport.
type HubInterface interface {
	BroadcastToClients(ids []string, msg OutgoingMessage)
	SendToClient(id string, msg OutgoingMessage)
	Close()
}

// Hub owns every live client. A single goroutine (Run) applies registrations
// and delivers messages, so messages produced in one order reach every client
// in that same order.
type Hub struct {
	clients    map[string]*Client // connection id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	quit       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex

	// OnIncoming is called from the client's read goroutine.
	OnIncoming func(c *Client, msg IncomingMessage)
	// OnDisconnect is called once the client has left the hub.
	OnDisconnect func(c *Client)
}

type broadcastReq struct {
	IDs     []string
	Message OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	utils.Log.Info("hub started")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			n := len(h.clients)
			h.mu.Unlock()
			utils.Log.Debug("client registered", "client", c.ID, "game", c.GameType+"/"+c.GameID, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				h.drop(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			utils.Log.Debug("client unregistered", "client", c.ID, "clients", n)

		case req := <-h.broadcast:
			h.mu.Lock()
			for _, id := range req.IDs {
				c, ok := h.clients[id]
				if !ok {
					continue
				}
				select {
				case c.Send <- req.Message:
				default:
					// too slow to keep up: cut it off, it resyncs on reconnect
					utils.Log.Warn("client send buffer full, dropping", "client", id)
					h.drop(c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			utils.Log.Info("hub stopped")
			return
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c.ID)
	close(c.Send)
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// BroadcastToClients delivers msg to every listed connection.
func (h *Hub) BroadcastToClients(ids []string, msg OutgoingMessage) {
	if len(ids) == 0 {
		return
	}
	select {
	case h.broadcast <- broadcastReq{IDs: ids, Message: msg}:
	case <-h.quit:
	}
}

// SendToClient delivers msg to a single connection.
func (h *Hub) SendToClient(id string, msg OutgoingMessage) {
	h.BroadcastToClients([]string{id}, msg)
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the hub and closes every client with a going-away frame.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

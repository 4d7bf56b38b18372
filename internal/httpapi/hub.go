// Package httpapi is the ambient, non-core observability surface: a
// read-only HTTP status/health API plus a live event-stream hub, sitting
// beside the Orchestrator rather than inside it.
package httpapi

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// clientSendBuffer bounds how many pending broadcast messages a slow client
// may queue before it is dropped, so one unresponsive subscriber can't
// back up memory for the whole hub.
const clientSendBuffer = 256

// Client is one connected WebSocket event-stream subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans audit/registry events out to every connected Client.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a Hub; call Run in its own goroutine before registering
// clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, clientSendBuffer),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop; it returns once Shutdown is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Shutdown stops Run and closes every registered client's send channel.
func (h *Hub) Shutdown() {
	close(h.done)
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
}

// Register adds client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// BroadcastJSON marshals msg and fans it out to every connected client.
func (h *Hub) BroadcastJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains (and discards) inbound frames so the connection's
// keepalive and close handshake work; this hub is publish-only.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump delivers queued broadcast frames to the browser.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

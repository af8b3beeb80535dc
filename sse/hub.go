package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/speechbridge/logger"
)

const clientBuffer = 256

// Client is one connected host: an SSE stream or a WebSocket.
type Client struct {
	id       string
	metadata map[string]string
	events   chan []byte
	once     sync.Once
	log      *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// WithTransport records which transport the client uses.
func WithTransport(transport string) ClientOption {
	return WithMetadata("transport", transport)
}

// WithRemoteAddr records the client's remote address.
func WithRemoteAddr(addr string) ClientOption {
	return WithMetadata("remote_addr", addr)
}

// NewClient creates a client with a buffered outbound queue.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan []byte, clientBuffer),
		log:      logger.Get("sse"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Metadata returns all client metadata.
func (c *Client) Metadata() map[string]string { return c.metadata }

// Transport returns the transport metadata.
func (c *Client) Transport() string { return c.metadata["transport"] }

// Events returns the client's outbound queue. It is closed when the client
// is unregistered or the hub stops.
func (c *Client) Events() <-chan []byte { return c.events }

// Send queues data without blocking. It returns false when the client is
// too slow and the message is dropped.
func (c *Client) Send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		c.log.Warn("client queue full, dropping message", map[string]interface{}{
			logger.FieldClientID: c.id,
		})
		return false
	}
}

// Close closes the outbound queue; it is idempotent.
func (c *Client) Close() {
	c.once.Do(func() { close(c.events) })
}

// Message is a payload addressed to the clients whose ID matches Pattern.
type Message struct {
	Pattern string
	Data    []byte
}

// Hub tracks connected clients and fans messages out to them. All client
// map mutations happen on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, clientBuffer),
		done:       make(chan struct{}),
		log:        logger.Get("sse"),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", map[string]interface{}{
				logger.FieldClientID: client.id,
				"transport":          client.Transport(),
				"total_clients":      total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", map[string]interface{}{
				logger.FieldClientID: client.id,
				"total_clients":      total,
			})

		case msg := <-h.broadcast:
			h.broadcastWithPattern(msg.Pattern, msg.Data)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call repeatedly.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
	h.log.Debug("all clients closed")
}

// Register adds a client. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		client.Close()
		return false
	}
}

// Unregister removes a client and closes its queue.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToPattern queues data for every client whose ID matches the glob
// pattern, e.g. "*" or "ws:*". It returns false if the hub has stopped.
func (h *Hub) BroadcastToPattern(pattern string, data []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- &Message{Pattern: pattern, Data: data}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) broadcastWithPattern(pattern string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matchCount := 0
	for clientID, client := range h.clients {
		matched, err := filepath.Match(pattern, clientID)
		if err != nil {
			h.log.Error("pattern match error", map[string]interface{}{
				"pattern":         pattern,
				logger.FieldError: err.Error(),
			})
			return
		}
		if matched && client.Send(data) {
			matchCount++
		}
	}

	h.log.Debug("broadcast sent", map[string]interface{}{
		"pattern":       pattern,
		"match_count":   matchCount,
		"total_clients": len(h.clients),
		"data_size":     len(data),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of all connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Client returns a client by ID, or nil.
func (h *Hub) Client(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

var _ Broadcaster = (*Hub)(nil)

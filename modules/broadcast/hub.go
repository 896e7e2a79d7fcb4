package broadcast

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	// sendBufferSize is the per-client outbound queue depth. A client
	// that cannot drain this many frames is considered dead and dropped.
	sendBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection registered with the hub. Which
// channel a client belongs to is the hub's state, not the client's, so
// membership never races with the run loop.
type Client struct {
	ID     string
	UserID string
	Name   string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps a websocket connection for hub delivery.
func NewClient(id, userID, name string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Name:   name,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues a frame for delivery. Returns false when the client is
// closed or its queue is full; the caller decides whether to drop it.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close stops delivery to this client. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// WritePump drains the send queue onto the connection and keeps the
// peer alive with pings. Run it in its own goroutine; it returns when
// the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

type envelope struct {
	channelID     string
	excludeUserID string
	data          []byte
}

type registration struct {
	client    *Client
	channelID string
}

// Hub fans frames out to the clients of each channel. All membership
// mutation happens on the run loop goroutine: the channel ID travels
// inside the register command, so callers never write state the loop
// reads. The maps are additionally guarded by mu for the count readers.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	byClient map[*Client]string

	register   chan registration
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	once       sync.Once
}

// NewHub creates a hub. Call Run in a goroutine before registering.
func NewHub() *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]struct{}),
		byClient:   make(map[*Client]string),
		register:   make(chan registration),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run processes hub commands until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			h.handleRegister(reg)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case env := <-h.broadcast:
			h.handleBroadcast(env)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Shutdown stops the run loop and closes every client.
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.done) })
}

// JoinChannel registers the client under the given channel. A client
// already in another channel is moved.
func (h *Hub) JoinChannel(client *Client, channelID string) {
	select {
	case h.register <- registration{client: client, channelID: channelID}:
	case <-h.done:
	}
}

// LeaveChannel removes the client from whichever channel holds it.
func (h *Hub) LeaveChannel(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a frame for every member of the channel except the
// excluded user. An empty excludeUserID means deliver to everyone.
func (h *Hub) Broadcast(channelID, excludeUserID string, data []byte) {
	select {
	case h.broadcast <- envelope{channelID: channelID, excludeUserID: excludeUserID, data: data}:
	case <-h.done:
	}
}

// ClientCount reports the number of clients currently in a channel.
func (h *Hub) ClientCount(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

// ChannelCount reports the number of channels with at least one client.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

func (h *Hub) handleRegister(reg registration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.byClient[reg.client]; ok && current != reg.channelID {
		h.removeLocked(reg.client, current)
	}

	clients, ok := h.channels[reg.channelID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.channels[reg.channelID] = clients
	}
	clients[reg.client] = struct{}{}
	h.byClient[reg.client] = reg.channelID
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channelID, ok := h.byClient[client]
	if !ok {
		return
	}
	h.removeLocked(client, channelID)
}

// removeLocked drops the client from a channel and frees the channel
// when it empties. Callers hold h.mu.
func (h *Hub) removeLocked(client *Client, channelID string) {
	delete(h.byClient, client)
	clients, ok := h.channels[channelID]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.channels, channelID)
	}
}

func (h *Hub) handleBroadcast(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.channels[env.channelID]
	for client := range clients {
		if env.excludeUserID != "" && client.UserID == env.excludeUserID {
			continue
		}
		if !client.Send(env.data) {
			// Frame queue overflow means the reader stalled; cut it loose.
			log.Printf("[broadcast] dropping slow client %s in channel %s", client.ID, env.channelID)
			client.Close()
			delete(clients, client)
			delete(h.byClient, client)
		}
	}
	if len(clients) == 0 {
		delete(h.channels, env.channelID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channelID, clients := range h.channels {
		for client := range clients {
			client.Close()
			delete(h.byClient, client)
		}
		delete(h.channels, channelID)
	}
}

package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"ai-collection/server/internal/collection"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
)

// Client is one WebSocket connection subscribed to an owner's notices
type Client struct {
	ID     string
	Owner  string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *NoticeHub
	mu     sync.Mutex
	closed atomic.Bool
}

type ownerMessage struct {
	owner string
	data  []byte
}

// NoticeHub fans notices out to the WebSocket clients of each owner
type NoticeHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan ownerMessage
	done       chan struct{}
	mu         sync.RWMutex
}

func NewNoticeHub() *NoticeHub {
	return &NoticeHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan ownerMessage, 1000),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done. Run must
// be called at most once.
func (h *NoticeHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *NoticeHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.WithFields(log.Fields{"client": client.ID, "owner": client.Owner, "total": len(h.clients)}).Debug("Notice client connected")

	go client.writePump()
}

func (h *NoticeHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
		log.WithFields(log.Fields{"client": client.ID, "total": len(h.clients)}).Debug("Notice client disconnected")
	}
}

func (h *NoticeHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	// queued registrations never started a writer
	for {
		select {
		case client := <-h.register:
			client.Close()
		default:
			return
		}
	}
}

func (h *NoticeHub) deliver(msg ownerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.Owner != msg.owner {
			continue
		}
		select {
		case client.Send <- msg.data:
		default:
			log.WithField("client", client.ID).Warn("Notice client send buffer full")
		}
	}
}

// Publish queues a notice for every client of owner
func (h *NoticeHub) Publish(owner string, notice collection.Notice) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "notice",
		"data": notice,
	})
	if err != nil {
		log.WithError(err).Error("Failed to marshal notice")
		return
	}

	select {
	case h.broadcast <- ownerMessage{owner: owner, data: data}:
	default:
		log.Warn("Notice broadcast channel full, dropping notice")
	}
}

// ClientCount returns the number of connected clients
func (h *NoticeHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Attach registers conn as a client of owner and starts its pumps. Once
// the hub has stopped the connection is closed and nil is returned.
func (h *NoticeHub) Attach(owner string, conn *websocket.Conn) *Client {
	client := &Client{
		ID:    uuid.NewString(),
		Owner: owner,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h,
	}
	select {
	case <-h.done:
		client.Close()
		return nil
	default:
	}
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
		return nil
	}

	welcome, _ := json.Marshal(map[string]interface{}{
		"type": "connected",
		"id":   client.ID,
		"time": time.Now().Unix(),
	})
	select {
	case client.Send <- welcome:
	default:
	}

	go client.readPump()
	return client
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()
			if err != nil {
				log.WithError(err).WithField("client", c.ID).Debug("Notice write failed")
				return
			}

		case <-ticker.C:
			if c.closed.Load() {
				return
			}
			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close closes the client connection once
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.Conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Close()
	}()

	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.ID).Debug("Unexpected notice client close")
			}
			return
		}
	}
}

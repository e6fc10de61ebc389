package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"virtualArena/config"
)

// Client is one websocket connection and its channel subscriptions.
type Client struct {
	id        string
	accountID string
	hub       *Hub
	conn      *websocket.Conn

	mu            sync.RWMutex
	subscriptions map[string]bool
	closed        bool

	send chan []byte
}

func (c *Client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channel]
}

func (c *Client) setSubscribed(channel string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.subscriptions[channel] = true
		log.Debug("📡 Client subscribed", "client", c.id, "channel", channel)
		return
	}
	delete(c.subscriptions, channel)
	log.Debug("📴 Client unsubscribed", "client", c.id, "channel", channel)
}

// enqueue never blocks and never sends on a closed channel.
func (c *Client) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply queues a message for this client only.
func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("❌ Failed to marshal reply", "client", c.id, "err", err)
		return
	}
	if !c.enqueue(data) {
		log.Warn("⚠️  Client send buffer full, dropping reply", "client", c.id, "type", msg.Type)
	}
}

// writePump sends queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("❌ Write error", "client", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client requests until the connection drops.
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("❌ Read error", "client", c.id, "err", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(Message{Type: "error", Data: "invalid message"})
			continue
		}
		c.hub.handleMessage(ctx, c, msg)
	}
}

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"virtualArena/config"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

const (
	ChannelCrash   = "crash"
	ChannelBettors = "bettors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope of every server push.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ClientMessage is the envelope of every client request.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type subscribeData struct {
	Channel string `json:"channel"`
}

type crashBetData struct {
	Stake float64 `json:"stake"`
	Mode  string  `json:"mode"`
}

// CrashActions is what a websocket client may ask of the crash loop.
type CrashActions interface {
	PlaceBet(ctx context.Context, w *game.Wager) error
	CancelBet(ctx context.Context, accountID string) (*game.Wager, error)
	CashOut(ctx context.Context, accountID string) (*settlement.Receipt, error)
	Snapshot() state.CrashSnapshot
	RecentRounds(ctx context.Context, limit int) ([]state.CrashRoundSummary, error)
}

// Hub fans out crash events to subscribed clients.
type Hub struct {
	crash CrashActions

	clients    map[*Client]bool
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}

	nextID int64
}

type outbound struct {
	channel string
	data    []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 100),
		done:       make(chan struct{}),
	}
}

// SetCrash wires the crash loop the hub forwards bets and cash-outs to.
func (h *Hub) SetCrash(crash CrashActions) {
	h.crash = crash
}

// Run is the central dispatcher. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	log.Info("🚀 Event hub started")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.clientsMu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.close()
			}
			h.clientsMu.Unlock()
			return

		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.clientsMu.Unlock()
			log.Info("✅ Client registered", "client", c.id, "account", c.accountID, "total", total)

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			total := len(h.clients)
			h.clientsMu.Unlock()
			log.Info("👋 Client unregistered", "client", c.id, "total", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Broadcast queues msg for every client subscribed to channel. It never
// blocks the caller; when the queue is full the message is dropped.
func (h *Hub) Broadcast(channel string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("❌ Failed to marshal broadcast", "channel", channel, "err", err)
		return
	}
	select {
	case h.broadcast <- outbound{channel: channel, data: data}:
	default:
		log.Warn("⚠️  Broadcast queue full, dropping message", "channel", channel, "type", msg.Type)
	}
}

func (h *Hub) deliver(msg outbound) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for c := range h.clients {
		if !c.subscribed(msg.channel) {
			continue
		}
		if !c.enqueue(msg.data) {
			log.Warn("⚠️  Client send buffer full, skipping message", "client", c.id)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request. The account is taken from the account
// header or, for browsers, the "account" query parameter. Anonymous clients
// may watch but not bet.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("❌ WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	accountID := r.Header.Get(config.AccountHeader)
	if accountID == "" {
		accountID = r.URL.Query().Get("account")
	}

	c := &Client{
		id:            fmt.Sprintf("%d-%d", time.Now().Unix(), atomic.AddInt64(&h.nextID, 1)),
		accountID:     accountID,
		hub:           h,
		conn:          conn,
		subscriptions: make(map[string]bool),
		send:          make(chan []byte, config.WSSendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// handleMessage processes one client request.
func (h *Hub) handleMessage(ctx context.Context, c *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe", "unsubscribe":
		var sub subscribeData
		if err := json.Unmarshal(msg.Data, &sub); err != nil || sub.Channel == "" {
			c.reply(Message{Type: "error", Data: "missing channel"})
			return
		}
		if msg.Type == "unsubscribe" {
			c.setSubscribed(sub.Channel, false)
			return
		}
		c.setSubscribed(sub.Channel, true)
		h.sendInitialData(ctx, c, sub.Channel)

	case "crash_bet":
		h.handleCrashBet(ctx, c, msg.Data)

	case "crash_cancel":
		if !h.requireCrash(c) {
			return
		}
		w, err := h.crash.CancelBet(ctx, c.accountID)
		if err != nil {
			c.reply(Message{Type: "error", Data: err.Error()})
			return
		}
		c.reply(Message{Type: "crash_bet_cancelled", Data: w})

	case "crash_cashout":
		if !h.requireCrash(c) {
			return
		}
		receipt, err := h.crash.CashOut(ctx, c.accountID)
		if err != nil {
			c.reply(Message{Type: "error", Data: err.Error()})
			return
		}
		c.reply(Message{Type: "crash_cashout_result", Data: receipt})

	default:
		log.Warn("⚠️  Unknown message type", "client", c.id, "type", msg.Type)
		c.reply(Message{Type: "error", Data: "unknown message type " + msg.Type})
	}
}

func (h *Hub) handleCrashBet(ctx context.Context, c *Client, raw json.RawMessage) {
	if !h.requireCrash(c) {
		return
	}

	var data crashBetData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.reply(Message{Type: "error", Data: "invalid bet payload"})
		return
	}
	mode, err := game.ParseMode(data.Mode)
	if err != nil {
		c.reply(Message{Type: "error", Data: err.Error()})
		return
	}
	w, err := game.NewWager(c.accountID, game.GameCrash, data.Stake, game.Params{}, mode)
	if err != nil {
		c.reply(Message{Type: "error", Data: err.Error()})
		return
	}
	if err := h.crash.PlaceBet(ctx, w); err != nil {
		c.reply(Message{Type: "error", Data: err.Error()})
		return
	}
	c.reply(Message{Type: "crash_bet_accepted", Data: w})
}

func (h *Hub) requireCrash(c *Client) bool {
	if h.crash == nil {
		c.reply(Message{Type: "error", Data: "crash game unavailable"})
		return false
	}
	if c.accountID == "" {
		c.reply(Message{Type: "error", Data: "account required"})
		return false
	}
	return true
}

// sendInitialData pushes the current state when a client subscribes.
func (h *Hub) sendInitialData(ctx context.Context, c *Client, channel string) {
	if h.crash == nil {
		return
	}
	switch channel {
	case ChannelCrash:
		rounds, err := h.crash.RecentRounds(ctx, config.MaxCrashHistory)
		if err != nil {
			log.Warn("⚠️  Failed to load crash history", "client", c.id, "err", err)
		}
		c.reply(Message{Type: "crash_history", Data: rounds})
		c.reply(Message{Type: "crash_state", Data: h.crash.Snapshot()})

	case ChannelBettors:
		snap := h.crash.Snapshot()
		c.reply(Message{Type: "active_bettors", Data: snap.Bettors})
	}
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

type stubCrash struct {
	placed chan *game.Wager
}

func (s *stubCrash) PlaceBet(ctx context.Context, w *game.Wager) error {
	s.placed <- w
	return nil
}

func (s *stubCrash) CancelBet(ctx context.Context, accountID string) (*game.Wager, error) {
	return nil, state.ErrNoPendingBet
}

func (s *stubCrash) CashOut(ctx context.Context, accountID string) (*settlement.Receipt, error) {
	return nil, state.ErrNotFlying
}

func (s *stubCrash) Snapshot() state.CrashSnapshot {
	return state.CrashSnapshot{RoundID: "r1", Phase: state.CrashPhaseWaiting, Countdown: 3}
}

func (s *stubCrash) RecentRounds(ctx context.Context, limit int) ([]state.CrashRoundSummary, error) {
	return []state.CrashRoundSummary{{RoundID: "r0", CrashPoint: 1.7}}, nil
}

func dialHub(t *testing.T, hub *Hub, account string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?account=" + account
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

func startHub(t *testing.T, crash CrashActions) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	hub.SetCrash(crash)
	go hub.Run(ctx)
	return hub
}

func TestHubSubscribeSendsInitialState(t *testing.T) {
	hub := startHub(t, &stubCrash{placed: make(chan *game.Wager, 1)})
	conn := dialHub(t, hub, "alice")

	send(t, conn, "subscribe", map[string]string{"channel": ChannelCrash})

	history := readMessage(t, conn)
	assert.Equal(t, "crash_history", history["type"])
	snapshot := readMessage(t, conn)
	assert.Equal(t, "crash_state", snapshot["type"])
	assert.Equal(t, "r1", snapshot["data"].(map[string]any)["roundId"])

	hub.Broadcast(ChannelCrash, Message{Type: "tick", Data: map[string]float64{"multiplier": 1.25}})
	tick := readMessage(t, conn)
	assert.Equal(t, "tick", tick["type"])
}

func TestHubForwardsCrashBet(t *testing.T) {
	crash := &stubCrash{placed: make(chan *game.Wager, 1)}
	hub := startHub(t, crash)
	conn := dialHub(t, hub, "alice")

	send(t, conn, "crash_bet", map[string]any{"stake": 12.5, "mode": "real"})

	select {
	case w := <-crash.placed:
		assert.Equal(t, "alice", w.AccountID)
		assert.Equal(t, 12.5, w.Stake)
		assert.Equal(t, game.ModeReal, w.Mode)
		assert.Equal(t, game.GameCrash, w.Game)
	case <-time.After(5 * time.Second):
		t.Fatal("bet was not forwarded")
	}
	accepted := readMessage(t, conn)
	assert.Equal(t, "crash_bet_accepted", accepted["type"])

	send(t, conn, "crash_cashout", nil)
	refused := readMessage(t, conn)
	assert.Equal(t, "error", refused["type"])
	assert.Equal(t, state.ErrNotFlying.Error(), refused["data"])
}

func TestHubRejectsInvalidBets(t *testing.T) {
	hub := startHub(t, &stubCrash{placed: make(chan *game.Wager, 1)})
	conn := dialHub(t, hub, "alice")

	send(t, conn, "crash_bet", map[string]any{"stake": 10, "mode": "casino"})
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])

	send(t, conn, "crash_bet", map[string]any{"stake": -1, "mode": "practice"})
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])

	send(t, conn, "dance", nil)
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
}

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

func testState() *engine.State {
	return &engine.State{
		Grid: engine.MustFromRows([][]int{
			{2, 0, 0, 0},
			{0, 4, 0, 0},
			{0, 0, 8, 0},
			{0, 0, 0, 16},
		}),
		Score: 100,
		Moves: 7,
	}
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)
	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 || !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be the only registered client")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	sessionID := "broadcast-test"

	client := newTestClient(hub, sessionID)
	other := newTestClient(hub, "other-session")
	hub.registerClient(client)
	hub.registerClient(other)

	hub.broadcastMessage(stateMessage(sessionID, testState()))

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %q", EventStateUpdate, message.Event)
		}
		if message.GameState == nil || !message.GameState.Grid.Equal(testState().Grid) || message.GameState.Score != 100 {
			t.Errorf("GameState not correctly transmitted: %+v", message.GameState)
		}
	default:
		t.Error("No message queued for subscribed client")
	}

	select {
	case <-other.send:
		t.Error("Client of another session received the broadcast")
	default:
	}
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.broadcastMessage(stateMessage("slow", testState()))
	hub.broadcastMessage(stateMessage("slow", testState()))

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Expected slow client to be dropped")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "custom-event" {
			t.Errorf("Unexpected message %+v", message)
		}
		if message.Data != "test-data" {
			t.Errorf("Expected data 'test-data', got %v", message.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message queued")
	}
}

func TestHubBroadcastQueueFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < sendBuffer+10; i++ {
		hub.BroadcastToSession("full", testState())
	}
	if len(hub.broadcast) != sendBuffer {
		t.Errorf("Expected queue capped at %d, got %d", sendBuffer, len(hub.broadcast))
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var initial *engine.State
		if r.URL.Query().Get("initial") == "1" {
			initial = testState()
		}
		hub.ServeWS(w, r, r.URL.Query().Get("session"), initial)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(context.Background(), sessionID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients in %s, got %d", want, sessionID, hub.ClientCount(context.Background(), sessionID))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func TestWebSocketUpgrade(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "session=ws-test")
	waitForClients(t, hub, "ws-test", 1)

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketInitialState(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "session=init-test&initial=1")
	defer conn.Close()
	waitForClients(t, hub, "init-test", 1)

	message := readMessage(t, conn)
	if message.Event != EventStateUpdate || message.GameState == nil || message.GameState.Moves != 7 {
		t.Errorf("Unexpected initial message %+v", message)
	}
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "session=msg-test")
	defer conn.Close()
	waitForClients(t, hub, "msg-test", 1)

	hub.BroadcastToSession("msg-test", testState())
	hub.BroadcastEvent("msg-test", "game_over", map[string]int{"score": 100})

	first := readMessage(t, conn)
	if first.SessionID != "msg-test" || first.GameState == nil {
		t.Fatalf("Unexpected first message %+v", first)
	}
	if first.GameState.Grid.MaxTile() != 16 || first.GameState.Score != 100 {
		t.Errorf("GameState not correctly received: %+v", first.GameState)
	}

	second := readMessage(t, conn)
	if second.Event != "game_over" || second.GameState != nil {
		t.Errorf("Unexpected event message %+v", second)
	}
}

func TestWebSocketSessionIDIgnoresCase(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "session=ABCD")
	defer conn.Close()
	waitForClients(t, hub, "abcd", 1)
	if n := hub.ClientCount(context.Background(), "AbCd"); n != 1 {
		t.Errorf("Expected 1 client for AbCd, got %d", n)
	}

	hub.BroadcastToSession("abcd", testState())

	message := readMessage(t, conn)
	if message.SessionID != "abcd" || message.GameState == nil {
		t.Errorf("Unexpected message %+v", message)
	}
}

func TestHubRunStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub, "stop-test")
	hub.register <- client
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected client channel to be closed on shutdown")
	}
	if hub.ClientCount(context.Background(), "stop-test") != 0 {
		t.Error("Expected no clients after shutdown")
	}
}

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
	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

func testSnapshot(row, col int) *engine.Snapshot {
	return &engine.Snapshot{
		GridSize: 6,
		Goal:     engine.Position{Row: 0, Col: 4},
		Agent:    engine.Position{Row: row, Col: col},
		Return:   -0.15,
		Status:   engine.StatusRunning,
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are not initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, sessionID: "test-session", send: make(chan []byte, 256)}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if hub.ClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, sessionID: "test-session", send: make(chan []byte, 256)}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// a second unregister must not panic on the closed channel
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount(sessionID) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", hub.ClientCount(sessionID))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	sessionID := "broadcast-test"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.registerClient(client)
	hub.registerClient(other)

	hub.BroadcastToSession(sessionID, testSnapshot(3, 2))

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != EventSnapshot {
			t.Errorf("Expected event %q, got %s", EventSnapshot, message.Event)
		}
		if message.Snapshot == nil || message.Snapshot.Agent != (engine.Position{Row: 3, Col: 2}) {
			t.Errorf("Snapshot not correctly transmitted: %+v", message.Snapshot)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("Client of another session should not receive the snapshot")
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.BroadcastToSession("slow", testSnapshot(5, 0))
	hub.BroadcastToSession("slow", testSnapshot(4, 0))

	if hub.ClientCount("slow") != 0 {
		t.Error("Expected slow client to be dropped when its buffer is full")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := startHub(t)
	client := &Client{hub: hub, sessionID: "event-test", send: make(chan []byte, 256)}
	hub.register <- client

	hub.BroadcastEvent("event-test", EventSessionDeleted, "bye")

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventSessionDeleted || message.Data != "bye" {
			t.Errorf("Unexpected event message %+v", message)
		}
	case <-time.After(time.Second):
		t.Error("No event received within timeout")
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := startHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), testSnapshot(5, 0))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	// the initial snapshot arrives first
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read initial snapshot: %v", err)
	}
	if first.Snapshot == nil || first.Snapshot.Agent != (engine.Position{Row: 5, Col: 0}) {
		t.Errorf("Unexpected initial snapshot %+v", first.Snapshot)
	}

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	hub.BroadcastToSession("ws-test", testSnapshot(4, 0))
	var next Message
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("Failed to read broadcast snapshot: %v", err)
	}
	if next.Snapshot.Agent != (engine.Position{Row: 4, Col: 0}) {
		t.Errorf("Expected agent at (4,0), got %s", next.Snapshot.Agent)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

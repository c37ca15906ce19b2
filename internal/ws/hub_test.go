package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/tournament"
)

func testSnapshot() tournament.Snapshot {
	return tournament.Snapshot{
		Agents: []tournament.AgentView{{ID: "1", Name: "Divine Light", Status: "IDLE"}},
		GameState: tournament.GameStateView{
			Phase:    tournament.PhaseGenesis,
			Round:    1,
			TimeLeft: 60,
		},
	}
}

func dial(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial() error = %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return env
}

func TestConnectReceivesInit(t *testing.T) {
	hub := NewHub(testSnapshot)
	conn, done := dial(t, hub)
	defer done()

	env := readEnvelope(t, conn)
	if env.Type != TypeInit {
		t.Fatalf("first frame type = %s, want INIT", env.Type)
	}
	payload, _ := json.Marshal(env.Payload)
	if !strings.Contains(string(payload), `"Divine Light"`) {
		t.Fatalf("INIT payload missing agent: %s", payload)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := NewHub(testSnapshot)
	conn, done := dial(t, hub)
	defer done()
	readEnvelope(t, conn) // INIT

	snap := testSnapshot()
	snap.GameState.TimeLeft = 42
	hub.Broadcast(snap)

	env := readEnvelope(t, conn)
	if env.Type != TypeUpdate {
		t.Fatalf("frame type = %s, want UPDATE", env.Type)
	}
	payload, _ := json.Marshal(env.Payload)
	if !strings.Contains(string(payload), `"timeLeft":42`) {
		t.Fatalf("UPDATE payload = %s, want timeLeft 42", payload)
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub := NewHub(testSnapshot)

	// A client with no write loop: its buffer fills, then every further
	// frame is a consecutive drop.
	stuck := &Client{send: make(chan []byte, sendBuffer)}
	hub.mu.Lock()
	hub.clients[stuck] = true
	hub.mu.Unlock()

	snap := testSnapshot()
	for i := 0; i < sendBuffer+maxConsecutiveDrops; i++ {
		hub.Broadcast(snap)
	}

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0 after slow client kicked", got)
	}
	if _, open := <-stuck.send; open {
		// drain one buffered frame; channel must eventually be closed
		for range stuck.send {
		}
	}
}

func TestBroadcastSurvivesNoClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast(testSnapshot())
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(testSnapshot)
	conn, done := dial(t, hub)
	readEnvelope(t, conn) // INIT
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	done()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want 0 after close", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/config"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/dialogue"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/guard"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ledger"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/tournament"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ws"
)

func newTestServer(t *testing.T, adminKey string) (*httptest.Server, *tournament.Engine, *ledger.Ledger) {
	t.Helper()
	led := ledger.New()
	grd := guard.New(guard.Limits{MaxRequestsPerMinute: 10, MaxTokensPerMinute: 5000, MaxDailyRequests: 1000, MaxDailyCostUSD: 2, CostPer1KTokens: 0.08})
	cache := dialogue.NewCache(time.Minute)
	engine := tournament.New(tournament.Options{
		Config: tournament.Config{PhaseDuration: 60},
		Rand:   rand.New(rand.NewSource(1)),
	})
	hub := ws.NewHub(engine.Snapshot)

	if _, err := engine.AddAgent(context.Background(), tournament.AgentSeed{ID: "1", Name: "Divine Light", Symbol: "LIGHT"}); err != nil {
		t.Fatalf("AddAgent() error = %v", err)
	}
	led.SetBalance("1", 1.0)

	srv := httptest.NewServer(newRouter(config.ServerConfig{AdminAPIKey: adminKey}, engine, hub, led, grd, cache))
	t.Cleanup(srv.Close)
	return srv, engine, led
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s error = %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	status, body := getJSON(t, srv.URL+"/healthz")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["ok"] != true || body["phase"] != "GENESIS" {
		t.Fatalf("body = %v", body)
	}
}

func TestStatusReportsCounters(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	status, body := getJSON(t, srv.URL+"/api/status")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["phase"] != "GENESIS" {
		t.Fatalf("phase = %v, want GENESIS", body["phase"])
	}
	if body["agents"].(float64) != 1 {
		t.Fatalf("agents = %v, want 1", body["agents"])
	}
	if _, ok := body["rateLimits"].(map[string]any); !ok {
		t.Fatalf("rateLimits missing: %v", body)
	}
	if body["housePoolUSD"].(float64) != 0 {
		t.Fatalf("housePoolUSD = %v, want 0", body["housePoolUSD"])
	}
}

func TestAgentsList(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	status, body := getJSON(t, srv.URL+"/api/agents")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	agents := body["agents"].([]any)
	if len(agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(agents))
	}
	first := agents[0].(map[string]any)
	if first["name"] != "Divine Light" || first["status"] != "IDLE" {
		t.Fatalf("agent = %v", first)
	}
	if _, ok := first["stakedAmount"].(string); !ok {
		t.Fatalf("stakedAmount = %T, want string-encoded", first["stakedAmount"])
	}
}

func TestAgentUsage(t *testing.T) {
	srv, _, led := newTestServer(t, "")
	led.TrackUsage("1", 500, 0.04, false)

	status, body := getJSON(t, srv.URL+"/api/agents/1/usage")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["totalTokens"].(float64) != 500 {
		t.Fatalf("totalTokens = %v, want 500", body["totalTokens"])
	}
	if body["balanceUSD"].(float64) != 1.0 {
		t.Fatalf("balanceUSD = %v, want 1.0", body["balanceUSD"])
	}

	status, _ = getJSON(t, srv.URL+"/api/agents/ghost/usage")
	if status != http.StatusNotFound {
		t.Fatalf("unknown agent status = %d, want 404", status)
	}
}

func TestAdminResetRequiresKey(t *testing.T) {
	srv, engine, _ := newTestServer(t, "sekret")
	for i := 0; i < 61; i++ {
		engine.Tick(context.Background())
	}
	if engine.Snapshot().GameState.Phase != tournament.PhaseCrusade {
		t.Fatalf("phase = %s, want CRUSADE before reset", engine.Snapshot().GameState.Phase)
	}

	resp, err := http.Post(srv.URL+"/api/admin/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/reset", nil)
	req.Header.Set("X-Admin-Key", "sekret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", resp.StatusCode)
	}
	if got := engine.Snapshot().GameState.Phase; got != tournament.PhaseGenesis {
		t.Fatalf("phase after reset = %s, want GENESIS", got)
	}
}

package dialogue

import (
	"context"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/guard"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ledger"
)

type fakeBackend struct {
	calls int64
	fn    func(ctx context.Context, req GenRequest) (GenResult, error)
}

func (f *fakeBackend) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.fn(ctx, req)
}

func (f *fakeBackend) callCount() int64 { return atomic.LoadInt64(&f.calls) }

func newTestOrchestrator(t *testing.T, backend Backend, hybridRatio float64, led *ledger.Ledger) (*Orchestrator, *Cache) {
	t.Helper()
	g := guard.New(guard.Limits{
		MaxRequestsPerMinute: 1000,
		MaxTokensPerMinute:   1_000_000,
		MaxDailyRequests:     100000,
		MaxDailyCostUSD:      1000,
		CostPer1KTokens:      0.08,
	})
	cache := NewCache(300 * time.Second)
	return NewOrchestrator(Options{
		Backend:        backend,
		Guard:          g,
		Ledger:         led,
		Cache:          cache,
		Personas:       BuiltinPersonas(),
		HybridRatio:    hybridRatio,
		RaceTimeout:    200 * time.Millisecond,
		EstimateTokens: 100,
		Rand:           rand.New(rand.NewSource(7)),
	}), cache
}

func TestZeroBalanceFallsBackToTemplate(t *testing.T) {
	backend := &fakeBackend{fn: func(context.Context, GenRequest) (GenResult, error) {
		return GenResult{Text: "model line", TokensUsed: 50}, nil
	}}
	led := ledger.New()
	led.SetBalance("1", 0)
	o, cache := newTestOrchestrator(t, backend, 1.0, led)

	text, fromModel := o.GenerateLine(context.Background(), Participant{ID: "1", Name: "Divine Light"}, Participant{ID: "2", Name: "Void Walker"}, "DEBATE", "GENESIS")
	if fromModel {
		t.Fatal("expected template line, got model line")
	}
	if text == "" || text == "model line" {
		t.Fatalf("text = %q, want template text", text)
	}
	if got := led.Balance("1"); got != 0 {
		t.Fatalf("Balance = %v, want 0 (failed attempt must not charge)", got)
	}
	if got := cache.Stats().Entries; got != 0 {
		t.Fatalf("cache entries = %d, want 0 (failed attempt must not cache)", got)
	}
	if got := backend.callCount(); got != 0 {
		t.Fatalf("backend calls = %d, want 0", got)
	}
}

func TestGuardRejectionShortCircuitsBeforeCharge(t *testing.T) {
	backend := &fakeBackend{fn: func(context.Context, GenRequest) (GenResult, error) {
		return GenResult{Text: "model line", TokensUsed: 50}, nil
	}}
	g := guard.New(guard.Limits{MaxDailyRequests: 1, CostPer1KTokens: 0.08})
	for i := 0; i < 1; i++ {
		g.TrackRequest(10)
	}
	led := ledger.New()
	led.SetBalance("1", 5.0)
	cache := NewCache(time.Minute)
	o := NewOrchestrator(Options{
		Backend:     backend,
		Guard:       g,
		Ledger:      led,
		Cache:       cache,
		Personas:    BuiltinPersonas(),
		HybridRatio: 1.0,
		Rand:        rand.New(rand.NewSource(7)),
	})

	_, fromModel := o.GenerateLine(context.Background(), Participant{ID: "1", Name: "Divine Light"}, Participant{ID: "2", Name: "Void Walker"}, "CONVERT", "CRUSADE")
	if fromModel {
		t.Fatal("expected template after guard rejection")
	}
	if got := led.Balance("1"); got != 5.0 {
		t.Fatalf("Balance = %v, want 5.0 (guard rejection precedes charge)", got)
	}
	if got := backend.callCount(); got != 0 {
		t.Fatalf("backend calls = %d, want 0", got)
	}
}

func TestCacheHitSkipsGeneration(t *testing.T) {
	backend := &fakeBackend{fn: func(context.Context, GenRequest) (GenResult, error) {
		return GenResult{Text: "the void whispers", TokensUsed: 40}, nil
	}}
	led := ledger.New()
	led.SetBalance("2", 10)
	o, cache := newTestOrchestrator(t, backend, 1.0, led)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	cache.SetNow(func() time.Time { return now })

	speaker := Participant{ID: "2", Name: "Void Walker"}
	other := Participant{ID: "1", Name: "Divine Light"}

	first, _ := o.GenerateLine(context.Background(), speaker, other, "MIRACLE", "GENESIS")
	now = start.Add(time.Second)
	second, _ := o.GenerateLine(context.Background(), speaker, other, "MIRACLE", "GENESIS")
	if first != second {
		t.Fatalf("second call = %q, want identical %q", second, first)
	}
	if got := backend.callCount(); got != 1 {
		t.Fatalf("backend calls = %d, want 1 (second served from cache)", got)
	}

	now = start.Add(301 * time.Second)
	_, _ = o.GenerateLine(context.Background(), speaker, other, "MIRACLE", "GENESIS")
	if got := backend.callCount(); got != 2 {
		t.Fatalf("backend calls = %d, want 2 after TTL expiry", got)
	}
}

func TestHungBackendYieldsFallbackWithinTimeout(t *testing.T) {
	backend := &fakeBackend{fn: func(ctx context.Context, _ GenRequest) (GenResult, error) {
		<-ctx.Done()
		return GenResult{}, ctx.Err()
	}}
	led := ledger.New()
	led.SetBalance("3", 1.0)
	o, _ := newTestOrchestrator(t, backend, 1.0, led)

	begin := time.Now()
	_, fromModel := o.GenerateLine(context.Background(), Participant{ID: "3", Name: "Iron Faith"}, Participant{ID: "4", Name: "Emerald Spirit"}, "BETRAYAL", "APOCALYPSE")
	elapsed := time.Since(begin)

	if fromModel {
		t.Fatal("expected template after timeout")
	}
	if elapsed > 600*time.Millisecond {
		t.Fatalf("fallback took %v, want < race timeout + epsilon", elapsed)
	}
	if got := led.Balance("3"); got != 1.0 {
		t.Fatalf("Balance = %v, want 1.0 (timeout refunds the pre-charge)", got)
	}
}

func TestReconcileShortfallDiscardsModelText(t *testing.T) {
	backend := &fakeBackend{fn: func(context.Context, GenRequest) (GenResult, error) {
		return GenResult{Text: "an expensive revelation", TokensUsed: 100000}, nil
	}}
	led := ledger.New()
	// exactly enough for the 100-token estimate at 0.08/1K, nothing more
	led.SetBalance("5", 0.008)
	o, cache := newTestOrchestrator(t, backend, 1.0, led)

	text, fromModel := o.GenerateLine(context.Background(), Participant{ID: "5", Name: "Crystal Dawn"}, Participant{ID: "6", Name: "Cyber Monk"}, "DEBATE", "GENESIS")
	if fromModel {
		t.Fatal("expected template after reconcile shortfall")
	}
	if strings.Contains(text, "revelation") {
		t.Fatalf("text = %q, model output must be discarded", text)
	}
	if got := led.Balance("5"); got != 0 {
		t.Fatalf("Balance = %v, want 0 (estimate stays charged)", got)
	}
	if got := cache.Stats().Entries; got != 0 {
		t.Fatalf("cache entries = %d, want 0", got)
	}
}

func TestNPCTrafficAccruesToHouse(t *testing.T) {
	backend := &fakeBackend{fn: func(context.Context, GenRequest) (GenResult, error) {
		return GenResult{Text: "house sermon", TokensUsed: 1000}, nil
	}}
	led := ledger.New()
	o, _ := newTestOrchestrator(t, backend, 1.0, led)

	text, fromModel := o.GenerateLine(context.Background(), Participant{ID: "7", Name: "Neon Saint", NPC: true}, Participant{ID: "8", Name: "Quantum Priest"}, "ALLIANCE", "CRUSADE")
	if !fromModel || text != "house sermon" {
		t.Fatalf("got (%q, %v), want model line", text, fromModel)
	}
	if got := led.Balance("7"); got != 0 {
		t.Fatalf("Balance = %v, want 0 (NPC never touches balances)", got)
	}
	if got := led.HouseTotal(); got != 0.08 {
		t.Fatalf("HouseTotal = %v, want 0.08", got)
	}
}

func TestExchangeStaggersTimestamps(t *testing.T) {
	led := ledger.New()
	o, _ := newTestOrchestrator(t, nil, 0, led)

	lines := o.Exchange(context.Background(), Participant{ID: "1", Name: "Divine Light"}, Participant{ID: "2", Name: "Void Walker"}, "DEBATE", "GENESIS")
	if lines[0].SenderID != "1" || lines[1].SenderID != "2" {
		t.Fatalf("senders = %s,%s want 1,2", lines[0].SenderID, lines[1].SenderID)
	}
	if got := lines[1].Timestamp.Sub(lines[0].Timestamp); got != time.Second {
		t.Fatalf("stagger = %v, want 1s", got)
	}
	if lines[0].Text == "" || lines[1].Text == "" {
		t.Fatal("template lines must not be empty")
	}
}

func TestTemplateLineSubstitutesRecipient(t *testing.T) {
	p := BuiltinPersonas()[0]
	line := templateLine(p, "Void Walker", "CONVERT", 0.0, 0.1)
	if !strings.Contains(line, "Void Walker") && !strings.Contains(line, p.Topics[0]) {
		t.Fatalf("line = %q, want recipient or topic substitution", line)
	}
	if strings.Contains(line, "{") {
		t.Fatalf("line = %q, placeholder left unsubstituted", line)
	}
}

func TestLoadPersonasBuiltins(t *testing.T) {
	personas, err := LoadPersonas("")
	if err != nil {
		t.Fatalf("LoadPersonas() error = %v", err)
	}
	if len(personas) != 8 {
		t.Fatalf("len = %d, want 8", len(personas))
	}
	if personas[0].Symbol != "LIGHT" {
		t.Fatalf("Symbol = %q, want LIGHT", personas[0].Symbol)
	}
}

package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/config"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/dialogue"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/guard"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ledger"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/llm"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/logging"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/stakes"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/tournament"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ws"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	personas, err := dialogue.LoadPersonas(cfg.Server.PersonasPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load personas failed")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	led := ledger.New()
	grd := guard.New(guard.Limits{
		MaxRequestsPerMinute: cfg.Tournament.MaxRequestsPerMinute,
		MaxTokensPerMinute:   cfg.Tournament.MaxTokensPerMinute,
		MaxDailyRequests:     cfg.Tournament.MaxDailyRequests,
		MaxDailyCostUSD:      cfg.Tournament.MaxDailyCostUSD,
		CostPer1KTokens:      cfg.Tournament.CostPer1KTokens,
	})
	cache := dialogue.NewCache(time.Duration(cfg.Tournament.CacheTTLMS) * time.Millisecond)

	var backend dialogue.Backend
	if cfg.Model.APIKey != "" {
		backend = llm.NewClient(cfg.Model)
	} else {
		log.Warn().Msg("no model api key set, dialogue runs on template lines only")
	}

	orch := dialogue.NewOrchestrator(dialogue.Options{
		Backend:        backend,
		Guard:          grd,
		Ledger:         led,
		Cache:          cache,
		Personas:       personas,
		HybridRatio:    cfg.Tournament.HybridRatio,
		RaceTimeout:    time.Duration(cfg.Tournament.DialogueRaceMS) * time.Millisecond,
		EstimateTokens: cfg.Model.MaxTokens,
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
		Rand:           rng,
	})

	var engine *tournament.Engine
	hub := ws.NewHub(func() tournament.Snapshot { return engine.Snapshot() })
	engine = tournament.New(tournament.Options{
		Config: tournament.Config{
			PhaseDuration:       cfg.Tournament.PhaseDurationSec,
			InteractionChance:   cfg.Tournament.InteractionChance,
			GlobalEventChance:   cfg.Tournament.GlobalEventChance,
			InteractionTTL:      time.Duration(cfg.Tournament.InteractionTTLSec) * time.Second,
			RecentEventsCap:     cfg.Tournament.RecentEventsCap,
			NPCSettleEvery:      cfg.Tournament.NPCSettleEverySec,
			ConversionThreshold: cfg.Tournament.ConversionThreshold,
		},
		Orchestrator: orch,
		House:        led,
		Stakes:       stakes.NewSimulated(rng),
		Broadcaster:  hub,
		Rand:         rng,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedAgents(ctx, engine, led, personas, cfg.Tournament.InitialBalanceUSD)
	go engine.Run(ctx)

	r := newRouter(cfg.Server, engine, hub, led, grd, cache)
	logRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server shut down")
}

func seedAgents(ctx context.Context, engine *tournament.Engine, led *ledger.Ledger, personas []dialogue.Persona, initialUSD float64) {
	for _, p := range personas {
		_, err := engine.AddAgent(ctx, tournament.AgentSeed{
			ID:     p.ID,
			Name:   p.Name,
			Symbol: p.Symbol,
			Color:  p.Color,
			NPC:    p.NPC,
		})
		if err != nil {
			log.Error().Err(err).Str("agent_id", p.ID).Msg("seed agent failed")
			continue
		}
		if !p.NPC {
			led.SetBalance(p.ID, initialUSD)
		}
	}
}

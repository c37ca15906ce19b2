package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/dialogue"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/stakes"
)

var ErrAgentExists = errors.New("tournament: agent already registered")

// Orchestrator produces the dialogue lines for an interaction. Satisfied
// by dialogue.Orchestrator.
type Orchestrator interface {
	Exchange(ctx context.Context, a, b dialogue.Participant, interactionType, phase string) [2]dialogue.Line
	Persona(agentID string) (dialogue.Persona, bool)
}

// Broadcaster receives one snapshot per tick. Satisfied by ws.Hub.
type Broadcaster interface {
	Broadcast(snap Snapshot)
}

// HousePool drains accrued NPC usage. Satisfied by ledger.Ledger.
type HousePool interface {
	SettleHouse() float64
}

type Config struct {
	PhaseDuration       int // seconds per phase
	InteractionChance   float64
	GlobalEventChance   float64
	InteractionTTL      time.Duration
	RecentEventsCap     int
	NPCSettleEvery      int // ticks between house settlements, 0 disables
	ConversionThreshold float64
}

type Options struct {
	Config       Config
	Orchestrator Orchestrator
	House        HousePool
	Stakes       stakes.Provider
	Broadcaster  Broadcaster
	Rand         *rand.Rand
	Now          func() time.Time
}

// Engine owns the tournament run: the phase clock, agent roster, live
// interactions and faction state. All mutation happens on the tick path
// or behind e.mu, so HTTP reads see consistent frames.
type Engine struct {
	cfg    Config
	orch   Orchestrator
	house  HousePool
	stakes stakes.Provider
	bcast  Broadcaster
	rng    *rand.Rand
	now    func() time.Time

	mu       sync.Mutex
	agents   map[string]*Agent
	order    []string
	state    GameState
	factions *factionTracker
	ticks    int64
}

func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg.PhaseDuration <= 0 {
		cfg.PhaseDuration = 60
	}
	if cfg.InteractionTTL <= 0 {
		cfg.InteractionTTL = 8 * time.Second
	}
	if cfg.RecentEventsCap <= 0 {
		cfg.RecentEventsCap = 20
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:      cfg,
		orch:     opts.Orchestrator,
		house:    opts.House,
		stakes:   opts.Stakes,
		bcast:    opts.Broadcaster,
		rng:      rng,
		now:      now,
		agents:   map[string]*Agent{},
		state:    GameState{Phase: PhaseGenesis, Round: 1, TimeLeft: cfg.PhaseDuration},
		factions: newFactionTracker(),
	}
}

// AddAgent registers an agent, resolving stake and followers through the
// identity provider. Safe to call while the loop runs.
func (e *Engine) AddAgent(ctx context.Context, seed AgentSeed) (Agent, error) {
	var snap stakes.Snapshot
	if e.stakes != nil {
		var err error
		snap, err = e.stakes.Lookup(ctx, seed.ID)
		if err != nil {
			return Agent{}, fmt.Errorf("lookup stake for %s: %w", seed.ID, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.agents[seed.ID]; ok {
		return Agent{}, ErrAgentExists
	}
	a := &Agent{
		ID:         seed.ID,
		Name:       seed.Name,
		Symbol:     seed.Symbol,
		Color:      seed.Color,
		Staked:     snap.Staked,
		Followers:  snap.Followers,
		Status:     StatusIdle,
		LastAction: e.now(),
		NPC:        seed.NPC,
	}
	e.agents[seed.ID] = a
	e.order = append(e.order, seed.ID)
	e.factions.register(seed.ID)
	e.pushEvent(fmt.Sprintf("📢 %s enters the arena!", a.Name))
	log.Info().Str("agent_id", a.ID).Str("name", a.Name).Int64("staked", a.Staked).Bool("npc", a.NPC).Msg("agent registered")
	return *a, nil
}

// Run drives the loop at one tick per second until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	log.Info().Int("agents", len(e.Snapshot().Agents)).Msg("tournament loop starting")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tournament loop stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick advances the run by one second: clock, expiry, a possible new
// interaction, a possible global event, settlement and broadcast. A panic
// in any step loses that tick, not the loop.
func (e *Engine) Tick(ctx context.Context) {
	metricTicksTotal.Add(1)
	defer func() {
		if r := recover(); r != nil {
			metricTickErrorsTotal.Add(1)
			log.Error().Interface("panic", r).Msg("tick failed")
		}
	}()
	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()

	e.advancePhase()
	e.expireInteractions()
	e.maybeInteract(ctx)
	e.maybeGlobalEvent()
	e.maybeSettleHouse()
	e.broadcastSnapshot()
	e.logHealth()
}

func (e *Engine) advancePhase() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase == PhaseResolution {
		return
	}
	e.state.TimeLeft--
	if e.state.TimeLeft > 0 {
		return
	}
	next := e.state.Phase.next()
	e.state.Phase = next
	if next == PhaseResolution {
		e.state.TimeLeft = 0
		e.pushEvent("🏆 RESOLUTION: the tournament is decided!")
		e.pushEvent(fmt.Sprintf("✨ %d souls converted across the run.", e.factions.totalConversions()))
	} else {
		e.state.Round++
		e.state.TimeLeft = e.cfg.PhaseDuration
		e.pushEvent(fmt.Sprintf("⚡ PHASE CHANGE: entering %s!", next))
	}
	log.Info().Str("phase", string(next)).Int("round", e.state.Round).Msg("phase advanced")
}

func (e *Engine) expireInteractions() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	kept := e.state.Active[:0]
	for _, in := range e.state.Active {
		if now.Sub(in.CreatedAt) < e.cfg.InteractionTTL {
			kept = append(kept, in)
			continue
		}
		for _, id := range []string{in.Agent1ID, in.Agent2ID} {
			if a := e.agents[id]; a != nil && a.Status == StatusTalking {
				a.Status = StatusIdle
			}
		}
		metricInteractionsExpiredTotal.Add(1)
	}
	e.state.Active = kept
}

func (e *Engine) maybeInteract(ctx context.Context) {
	e.mu.Lock()
	if e.state.Phase == PhaseResolution || e.rng.Float64() >= e.cfg.InteractionChance {
		e.mu.Unlock()
		return
	}
	a1, a2, itype, ok := e.selectPair()
	if !ok {
		e.mu.Unlock()
		return
	}
	p1 := dialogue.Participant{ID: a1.ID, Name: a1.Name, NPC: a1.NPC}
	p2 := dialogue.Participant{ID: a2.ID, Name: a2.Name, NPC: a2.NPC}
	phase := string(e.state.Phase)
	e.mu.Unlock()

	// Both participants are already TALKING, so the state stays coherent
	// while generation runs off-lock.
	lines, err := e.exchange(ctx, p1, p2, string(itype), phase)
	if err != nil {
		e.mu.Lock()
		a1.Status, a2.Status = StatusIdle, StatusIdle
		e.mu.Unlock()
		metricTickErrorsTotal.Add(1)
		log.Error().Err(err).Msg("interaction abandoned")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	in := &Interaction{
		ID:        newID(),
		Type:      itype,
		Agent1ID:  a1.ID,
		Agent2ID:  a2.ID,
		CreatedAt: e.now(),
	}
	for _, ln := range lines {
		in.Messages = append(in.Messages, Message{SenderID: ln.SenderID, Text: ln.Text, Timestamp: ln.Timestamp})
	}
	e.resolve(in, a1, a2)
	e.state.Active = append(e.state.Active, in)
	metricInteractionsStartedTotal.Add(1)
	e.pushEvent(fmt.Sprintf("%s %s: %s vs %s", itype.icon(), itype, a1.Name, a2.Name))
	log.Info().
		Str("interaction_id", in.ID).
		Str("type", string(itype)).
		Str("agent1", a1.Name).
		Str("agent2", a2.Name).
		Msg("interaction started")
}

// exchange shields the tick from a panicking dialogue path.
func (e *Engine) exchange(ctx context.Context, p1, p2 dialogue.Participant, itype, phase string) (lines [2]dialogue.Line, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dialogue exchange panicked: %v", r)
		}
	}()
	return e.orch.Exchange(ctx, p1, p2, itype, phase), nil
}

// resolve applies the social outcome of a freshly created interaction:
// follower impact, a DEBATE winner, and faction effects. Caller holds e.mu.
func (e *Engine) resolve(in *Interaction, a1, a2 *Agent) {
	impact := 10 + e.rng.Intn(50)
	a1.Followers += impact

	switch in.Type {
	case InteractionDebate:
		winner := a1
		if e.rng.Intn(2) == 1 {
			winner = a2
		}
		in.WinnerID = winner.ID
		e.pushEvent(fmt.Sprintf("🏆 %s wins the debate!", winner.Name))
	case InteractionConvert:
		if e.rng.Float64() < e.cfg.ConversionThreshold && e.factions.convert(a2.ID, a1.ID) {
			e.pushEvent(fmt.Sprintf("✨ %s converts %s!", a1.Name, a2.Name))
		}
	case InteractionAlliance:
		a2.Followers += impact
		var topics []string
		if p, ok := e.persona(a1.ID); ok && len(p.Topics) > 0 {
			topics = append(topics, p.Topics[0])
		}
		if p, ok := e.persona(a2.ID); ok && len(p.Topics) > 0 {
			topics = append(topics, p.Topics[0])
		}
		for _, ev := range e.factions.alliance(a1, a2, coalitionIdeology(topics...)) {
			e.pushEvent(ev)
		}
	case InteractionBetrayal:
		a2.Followers -= impact
		if a2.Followers < 0 {
			a2.Followers = 0
		}
		for _, ev := range e.factions.betray(a1) {
			e.pushEvent(ev)
		}
	}
}

func (e *Engine) persona(agentID string) (dialogue.Persona, bool) {
	if e.orch == nil {
		return dialogue.Persona{}, false
	}
	return e.orch.Persona(agentID)
}

func (e *Engine) maybeSettleHouse() {
	if e.house == nil || e.cfg.NPCSettleEvery <= 0 {
		return
	}
	e.mu.Lock()
	due := e.ticks%int64(e.cfg.NPCSettleEvery) == 0
	e.mu.Unlock()
	if !due {
		return
	}
	if amt := e.house.SettleHouse(); amt > 0 {
		metricHouseSettledUSD.Add(amt)
		log.Info().Float64("usd", amt).Msg("house pool settled")
	}
}

func (e *Engine) broadcastSnapshot() {
	if e.bcast == nil {
		return
	}
	e.bcast.Broadcast(e.Snapshot())
}

func (e *Engine) logHealth() {
	e.mu.Lock()
	defer e.mu.Unlock()
	idle, talking := 0, 0
	for _, a := range e.agents {
		switch a.Status {
		case StatusIdle:
			idle++
		case StatusTalking:
			talking++
		}
	}
	log.Debug().
		Str("phase", string(e.state.Phase)).
		Int("time_left", e.state.TimeLeft).
		Int("active", len(e.state.Active)).
		Int("idle", idle).
		Int("talking", talking).
		Msg("tick")
}

// pushEvent prepends msg to the newest-first event ring. Caller holds e.mu.
func (e *Engine) pushEvent(msg string) {
	e.state.RecentEvents = append([]string{msg}, e.state.RecentEvents...)
	if len(e.state.RecentEvents) > e.cfg.RecentEventsCap {
		e.state.RecentEvents = e.state.RecentEvents[:e.cfg.RecentEventsCap]
	}
}

// Reset returns the run to GENESIS with every agent idle and faction
// state cleared. Agents and their stakes survive.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.agents {
		a.Status = StatusIdle
	}
	e.state = GameState{Phase: PhaseGenesis, Round: 1, TimeLeft: e.cfg.PhaseDuration}
	e.factions.reset()
	e.ticks = 0
	log.Info().Msg("tournament reset")
}

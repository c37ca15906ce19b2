package dialogue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/guard"
	"github.com/Tanwyhang/HolyMon-Monad-sub000/internal/ledger"
)

// Backend generates one in-character line. Implementations must honor ctx
// cancellation; the orchestrator races every call against a deadline and
// cancels the loser.
type Backend interface {
	Generate(ctx context.Context, req GenRequest) (GenResult, error)
}

type GenRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type GenResult struct {
	Text       string
	TokensUsed int
}

// Participant identifies one side of an exchange. NPC participants are
// billed to the house pool instead of a personal balance.
type Participant struct {
	ID   string
	Name string
	NPC  bool
}

// Line is one produced dialogue message.
type Line struct {
	SenderID  string
	Text      string
	Timestamp time.Time
	FromModel bool
}

type Options struct {
	Backend        Backend // nil disables the generative path entirely
	Guard          *guard.Guard
	Ledger         *ledger.Ledger
	Cache          *Cache
	Personas       []Persona
	HybridRatio    float64
	RaceTimeout    time.Duration
	EstimateTokens int
	MaxTokens      int
	Temperature    float64
	Rand           *rand.Rand
	Now            func() time.Time
}

// Orchestrator produces both lines of an interaction, racing the backend
// against a deadline per participant and falling back to templated text.
type Orchestrator struct {
	backend     Backend
	guard       *guard.Guard
	ledger      *ledger.Ledger
	cache       *Cache
	personas    map[string]Persona
	hybridRatio float64
	raceTimeout time.Duration
	estTokens   int
	maxTokens   int
	temperature float64
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.RaceTimeout <= 0 {
		opts.RaceTimeout = 2 * time.Second
	}
	if opts.EstimateTokens <= 0 {
		opts.EstimateTokens = 120
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 120
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	personas := make(map[string]Persona, len(opts.Personas))
	for _, p := range opts.Personas {
		personas[p.ID] = p
	}
	return &Orchestrator{
		backend:     opts.Backend,
		guard:       opts.Guard,
		ledger:      opts.Ledger,
		cache:       opts.Cache,
		personas:    personas,
		hybridRatio: opts.HybridRatio,
		raceTimeout: opts.RaceTimeout,
		estTokens:   opts.EstimateTokens,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		now:         opts.Now,
		rng:         opts.Rand,
	}
}

// Persona returns the configured persona for an agent id.
func (o *Orchestrator) Persona(agentID string) (Persona, bool) {
	p, ok := o.personas[agentID]
	return p, ok
}

// Exchange produces one line per participant, generated concurrently. The
// second line is stamped one second after the first to keep conversational
// pacing in the broadcast feed. A failed or slow generation only affects
// its own participant's line.
func (o *Orchestrator) Exchange(ctx context.Context, a, b Participant, interactionType, phase string) [2]Line {
	var texts [2]string
	var fromModel [2]bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		texts[0], fromModel[0] = o.GenerateLine(ctx, a, b, interactionType, phase)
	}()
	go func() {
		defer wg.Done()
		texts[1], fromModel[1] = o.GenerateLine(ctx, b, a, interactionType, phase)
	}()
	wg.Wait()

	at := o.now()
	return [2]Line{
		{SenderID: a.ID, Text: texts[0], Timestamp: at, FromModel: fromModel[0]},
		{SenderID: b.ID, Text: texts[1], Timestamp: at.Add(time.Second), FromModel: fromModel[1]},
	}
}

// GenerateLine produces one participant's line: cached text when fresh,
// otherwise a backend attempt gated by the hybrid ratio, the rate/cost
// guard and the speaker's ledger balance, with the template bank as the
// fallback for every rejection or failure.
func (o *Orchestrator) GenerateLine(ctx context.Context, speaker, recipient Participant, interactionType, phase string) (string, bool) {
	if text, ok := o.cache.Get(speaker.ID, interactionType, phase); ok {
		metricCacheHitsTotal.Add(1)
		return text, true
	}
	metricCacheMissesTotal.Add(1)

	persona, ok := o.personas[speaker.ID]
	if !ok {
		persona = Persona{Name: speaker.Name, Topics: []string{"truth", "power", "faith"}}
	}

	if o.backend == nil || o.randFloat() >= o.hybridRatio {
		return o.template(persona, recipient.Name, interactionType), false
	}

	text, err := o.generate(ctx, speaker, persona, recipient.Name, interactionType, phase)
	if err != nil {
		return o.template(persona, recipient.Name, interactionType), false
	}
	o.cache.Put(speaker.ID, interactionType, phase, text)
	return text, true
}

func (o *Orchestrator) generate(ctx context.Context, speaker Participant, persona Persona, recipient, interactionType, phase string) (string, error) {
	if err := o.guard.AllowRequest(); err != nil {
		metricGuardRejectsTotal.Add(1)
		return "", err
	}
	estCost := o.guard.EstimateCost(o.estTokens)
	if err := o.guard.AllowCost(estCost); err != nil {
		metricGuardRejectsTotal.Add(1)
		return "", err
	}

	precharged := false
	if !speaker.NPC {
		if err := o.ledger.Charge(speaker.ID, estCost); err != nil {
			metricLedgerRejectsTotal.Add(1)
			log.Debug().Str("agent", speaker.ID).Float64("cost", estCost).Msg("generation skipped: balance too low")
			return "", err
		}
		precharged = true
	}

	metricGenAttemptsTotal.Add(1)
	genCtx, cancel := context.WithTimeout(ctx, o.raceTimeout)
	defer cancel()
	res, err := o.backend.Generate(genCtx, GenRequest{
		System:      persona.System,
		Prompt:      o.prompt(persona, recipient, interactionType, phase),
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		metricGenFailedTotal.Add(1)
		if precharged {
			o.ledger.Refund(speaker.ID, estCost)
		}
		log.Debug().Err(err).Str("agent", speaker.ID).Msg("generation failed, using template")
		return "", err
	}

	o.guard.TrackRequest(res.TokensUsed)
	actualCost := o.guard.EstimateCost(res.TokensUsed)

	if speaker.NPC {
		o.ledger.AccrueHouse(actualCost)
		o.ledger.TrackUsage(speaker.ID, res.TokensUsed, actualCost, true)
		metricGenSuccessTotal.Add(1)
		return res.Text, nil
	}

	if err := o.ledger.Reconcile(speaker.ID, estCost, actualCost); err != nil {
		// The tokens were consumed but the speaker cannot cover the true
		// cost: keep the estimate charged, drop the text.
		o.ledger.TrackUsage(speaker.ID, res.TokensUsed, estCost, false)
		log.Warn().
			Str("agent", speaker.ID).
			Int("tokens", res.TokensUsed).
			Float64("shortfall", actualCost-estCost).
			Msg("reconcile failed, discarding generated line")
		return "", fmt.Errorf("reconcile: %w", err)
	}
	o.ledger.TrackUsage(speaker.ID, res.TokensUsed, actualCost, false)
	metricGenSuccessTotal.Add(1)
	return res.Text, nil
}

func (o *Orchestrator) template(p Persona, recipient, interactionType string) string {
	metricTemplateLinesTotal.Add(1)
	return templateLine(p, recipient, interactionType, o.randFloat(), o.randFloat())
}

func (o *Orchestrator) prompt(p Persona, recipient, interactionType, phase string) string {
	return fmt.Sprintf(
		"You are in a %s phase tournament, engaging in %s with %s. Respond in character as %s with a single line.",
		phase, interactionType, recipient, p.Name,
	)
}

func (o *Orchestrator) randFloat() float64 {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return o.rng.Float64()
}

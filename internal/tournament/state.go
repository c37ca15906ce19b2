package tournament

import "time"

type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusTalking Status = "TALKING"
	StatusBattle  Status = "BATTLE"
)

type Phase string

const (
	PhaseGenesis    Phase = "GENESIS"
	PhaseCrusade    Phase = "CRUSADE"
	PhaseApocalypse Phase = "APOCALYPSE"
	PhaseResolution Phase = "RESOLUTION"
)

// next returns the following phase in the fixed cycle. RESOLUTION is
// terminal; only Reset leaves it.
func (p Phase) next() Phase {
	switch p {
	case PhaseGenesis:
		return PhaseCrusade
	case PhaseCrusade:
		return PhaseApocalypse
	case PhaseApocalypse:
		return PhaseResolution
	default:
		return PhaseResolution
	}
}

type InteractionType string

const (
	InteractionDebate   InteractionType = "DEBATE"
	InteractionConvert  InteractionType = "CONVERT"
	InteractionAlliance InteractionType = "ALLIANCE"
	InteractionBetrayal InteractionType = "BETRAYAL"
	InteractionMiracle  InteractionType = "MIRACLE"
)

var interactionTypes = [...]InteractionType{
	InteractionDebate,
	InteractionConvert,
	InteractionAlliance,
	InteractionBetrayal,
	InteractionMiracle,
}

func (t InteractionType) icon() string {
	switch t {
	case InteractionDebate:
		return "⚔️"
	case InteractionConvert:
		return "✨"
	case InteractionAlliance:
		return "🤝"
	case InteractionBetrayal:
		return "💔"
	case InteractionMiracle:
		return "⚡"
	default:
		return "📢"
	}
}

// Agent is the live tournament state of one faction. One instance per
// registered agent, mutated only by the engine's tick, never removed
// during a run.
type Agent struct {
	ID         string
	Name       string
	Symbol     string
	Color      string
	Staked     int64
	Followers  int
	Status     Status
	LastAction time.Time
	NPC        bool
}

// AgentSeed is the registration input; stake and followers come from the
// identity provider.
type AgentSeed struct {
	ID     string
	Name   string
	Symbol string
	Color  string
	NPC    bool
}

type Message struct {
	SenderID  string
	Text      string
	Timestamp time.Time
}

// Interaction is a timed two-participant exchange. It lives in
// GameState.Active from creation until the expiry window passes, at which
// point both participants return to IDLE.
type Interaction struct {
	ID        string
	Type      InteractionType
	Agent1ID  string
	Agent2ID  string
	Messages  []Message
	WinnerID  string
	CreatedAt time.Time
}

// GameState is the single macro-state of the run, advanced once per tick.
type GameState struct {
	Phase        Phase
	Round        int
	TimeLeft     int
	Active       []*Interaction
	RecentEvents []string // newest first
}

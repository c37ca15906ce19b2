package tournament

import (
	"fmt"
	"net/url"
)

// Wire views of the live state. 64-bit numerics are string-encoded so
// browser clients never round them.

type AgentView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Color        string `json:"color"`
	Avatar       string `json:"avatar"`
	StakedAmount int64  `json:"stakedAmount,string"`
	Followers    int    `json:"followers"`
	Status       string `json:"status"`
	FaithState   string `json:"faithState"`
	LastAction   int64  `json:"lastAction,string"`
	IsNPC        bool   `json:"isNPC"`
}

type MessageView struct {
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp,string"`
}

type InteractionView struct {
	ID        string          `json:"id"`
	Type      InteractionType `json:"type"`
	Agent1ID  string          `json:"agent1Id"`
	Agent2ID  string          `json:"agent2Id"`
	Messages  []MessageView   `json:"messages"`
	WinnerID  string          `json:"winnerId,omitempty"`
	Timestamp int64           `json:"timestamp,string"`
}

type GameStateView struct {
	Phase              Phase             `json:"phase"`
	Round              int               `json:"round"`
	TimeLeft           int               `json:"timeLeft"`
	ActiveInteractions []InteractionView `json:"activeInteractions"`
	RecentEvents       []string          `json:"recentEvents"`
}

type Snapshot struct {
	Agents    []AgentView   `json:"agents"`
	GameState GameStateView `json:"gameState"`
}

func avatarURL(name string) string {
	return fmt.Sprintf("https://api.dicebear.com/9.x/pixel-art/svg?seed=%s", url.QueryEscape(name))
}

// Snapshot renders the full live state for broadcast and HTTP reads.
// Agents come out in registration order so frames diff cleanly.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Agents: make([]AgentView, 0, len(e.order)),
		GameState: GameStateView{
			Phase:              e.state.Phase,
			Round:              e.state.Round,
			TimeLeft:           e.state.TimeLeft,
			ActiveInteractions: make([]InteractionView, 0, len(e.state.Active)),
			RecentEvents:       append([]string(nil), e.state.RecentEvents...),
		},
	}
	for _, id := range e.order {
		a := e.agents[id]
		snap.Agents = append(snap.Agents, AgentView{
			ID:           a.ID,
			Name:         a.Name,
			Symbol:       a.Symbol,
			Color:        a.Color,
			Avatar:       avatarURL(a.Name),
			StakedAmount: a.Staked,
			Followers:    a.Followers,
			Status:       string(a.Status),
			FaithState:   string(e.factions.state(a.ID)),
			LastAction:   a.LastAction.UnixMilli(),
			IsNPC:        a.NPC,
		})
	}
	for _, in := range e.state.Active {
		iv := InteractionView{
			ID:        in.ID,
			Type:      in.Type,
			Agent1ID:  in.Agent1ID,
			Agent2ID:  in.Agent2ID,
			Messages:  make([]MessageView, 0, len(in.Messages)),
			WinnerID:  in.WinnerID,
			Timestamp: in.CreatedAt.UnixMilli(),
		}
		for _, m := range in.Messages {
			iv.Messages = append(iv.Messages, MessageView{
				SenderID:  m.SenderID,
				Text:      m.Text,
				Timestamp: m.Timestamp.UnixMilli(),
			})
		}
		snap.GameState.ActiveInteractions = append(snap.GameState.ActiveInteractions, iv)
	}
	return snap
}

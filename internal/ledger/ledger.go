package ledger

import (
	"errors"
	"sync"
	"time"
)

var ErrInsufficientBalance = errors.New("insufficient_balance")

const defaultHistoryCap = 100

// Record is one billed generation call.
type Record struct {
	AgentID   string    `json:"agentId"`
	Tokens    int       `json:"tokensUsed"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
	NPC       bool      `json:"isNPC"`
}

// Usage is the cumulative billed activity of one agent.
type Usage struct {
	TotalTokens  int     `json:"totalTokens"`
	TotalCost    float64 `json:"totalCost"`
	RequestCount int     `json:"requestCount"`
}

// Ledger holds per-agent AI credit balances in memory. Player agents are
// debited before a generation attempt and reconciled after it; NPC traffic
// bypasses balances and accrues into a single house total that a periodic
// settlement drains.
type Ledger struct {
	mu         sync.Mutex
	balances   map[string]float64
	usage      map[string]Usage
	history    []Record
	historyCap int
	houseCost  float64
	now        func() time.Time
}

func New() *Ledger {
	return &Ledger{
		balances:   map[string]float64{},
		usage:      map[string]Usage{},
		historyCap: defaultHistoryCap,
		now:        time.Now,
	}
}

// SetNow replaces the clock, for tests.
func (l *Ledger) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) SetBalance(agentID string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount < 0 {
		amount = 0
	}
	l.balances[agentID] = amount
}

func (l *Ledger) AddFunds(agentID string, amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[agentID] += amount
}

func (l *Ledger) Balance(agentID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[agentID]
}

// Charge debits amount from the agent's balance. A debit that would drive
// the balance negative is refused outright; the balance is never clamped.
func (l *Ledger) Charge(agentID string, amount float64) error {
	if amount <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[agentID] < amount {
		return ErrInsufficientBalance
	}
	l.balances[agentID] -= amount
	return nil
}

func (l *Ledger) Refund(agentID string, amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[agentID] += amount
}

// Reconcile settles a pre-charged estimate against the actual cost:
// overestimates are credited back, underestimates debit the difference.
// An underestimate the agent cannot cover returns ErrInsufficientBalance
// with the original estimate still charged; the caller is expected to
// discard the generated text.
func (l *Ledger) Reconcile(agentID string, estimated, actual float64) error {
	switch {
	case actual < estimated:
		l.Refund(agentID, estimated-actual)
		return nil
	case actual > estimated:
		return l.Charge(agentID, actual-estimated)
	default:
		return nil
	}
}

// AccrueHouse adds NPC generation cost to the house pool.
func (l *Ledger) AccrueHouse(cost float64) {
	if cost <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.houseCost += cost
}

func (l *Ledger) HouseTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.houseCost
}

// SettleHouse drains the house pool to zero and returns the drained amount.
func (l *Ledger) SettleHouse() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	settled := l.houseCost
	l.houseCost = 0
	return settled
}

// TrackUsage records a completed generation call. NPC records appear in the
// history but are excluded from per-agent usage totals.
func (l *Ledger) TrackUsage(agentID string, tokens int, cost float64, npc bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, Record{
		AgentID:   agentID,
		Tokens:    tokens,
		Cost:      cost,
		Timestamp: l.now(),
		NPC:       npc,
	})
	if len(l.history) > l.historyCap {
		l.history = l.history[len(l.history)-l.historyCap:]
	}
	if npc {
		return
	}
	u := l.usage[agentID]
	u.TotalTokens += tokens
	u.TotalCost += cost
	u.RequestCount++
	l.usage[agentID] = u
}

func (l *Ledger) Usage(agentID string) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[agentID]
}

// History returns the retained records for one agent, or all records when
// agentID is empty.
func (l *Ledger) History(agentID string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.history))
	for _, r := range l.history {
		if agentID == "" || r.AgentID == agentID {
			out = append(out, r)
		}
	}
	return out
}

// Balances returns a copy of every balance, for the diagnostic surface.
func (l *Ledger) Balances() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.balances))
	for id, b := range l.balances {
		out[id] = b
	}
	return out
}

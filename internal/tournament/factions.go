package tournament

import (
	"fmt"
	"strings"
)

type FaithState string

const (
	FaithFounder   FaithState = "FOUNDER"
	FaithCollab    FaithState = "COLLAB"
	FaithConverted FaithState = "CONVERTED"
)

// Coalition is a named group formed by an ALLIANCE interaction. The
// founding pair lead it; later allies join it instead of forming another.
type Coalition struct {
	ID       string
	Name     string
	Symbol   string
	LeaderID string
	Members  []string
	Ideology string
}

// factionTracker records conversion and coalition state across a run.
// Not safe for concurrent use; the engine mutates it under its own lock.
type factionTracker struct {
	states      map[string]FaithState
	convertedBy map[string]string
	conversions map[string]int
	memberOf    map[string]string
	coalitions  map[string]*Coalition
	formedPairs map[string]bool
}

func newFactionTracker() *factionTracker {
	return &factionTracker{
		states:      map[string]FaithState{},
		convertedBy: map[string]string{},
		conversions: map[string]int{},
		memberOf:    map[string]string{},
		coalitions:  map[string]*Coalition{},
		formedPairs: map[string]bool{},
	}
}

func (f *factionTracker) register(agentID string) {
	if _, ok := f.states[agentID]; !ok {
		f.states[agentID] = FaithFounder
	}
}

func (f *factionTracker) state(agentID string) FaithState {
	if s, ok := f.states[agentID]; ok {
		return s
	}
	return FaithFounder
}

func (f *factionTracker) IsConverted(agentID string) bool {
	return f.states[agentID] == FaithConverted
}

func (f *factionTracker) conversionCount(agentID string) int {
	return f.conversions[agentID]
}

func (f *factionTracker) totalConversions() int {
	total := 0
	for _, n := range f.conversions {
		total += n
	}
	return total
}

// convert flips target to CONVERTED under by's faith. Already-converted
// agents cannot convert or be converted again.
func (f *factionTracker) convert(targetID, byID string) bool {
	if f.states[targetID] == FaithConverted || f.states[byID] == FaithConverted {
		return false
	}
	f.states[targetID] = FaithConverted
	f.convertedBy[targetID] = byID
	f.conversions[byID]++
	return true
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// alliance forms or extends a coalition between a1 and a2. If either is
// already in one the other joins it; otherwise a new coalition is created,
// at most once per unordered pair.
func (f *factionTracker) alliance(a1, a2 *Agent, ideology string) (events []string) {
	c1, in1 := f.memberOf[a1.ID]
	c2, in2 := f.memberOf[a2.ID]
	switch {
	case in1 && in2:
		return nil
	case in1:
		return f.join(c1, a2)
	case in2:
		return f.join(c2, a1)
	}

	key := pairKey(a1.ID, a2.ID)
	if f.formedPairs[key] {
		return nil
	}
	f.formedPairs[key] = true

	c := &Coalition{
		ID:       newID(),
		Name:     fmt.Sprintf("%s-%s Pact", a1.Symbol, a2.Symbol),
		Symbol:   a1.Symbol + "+" + a2.Symbol,
		LeaderID: a1.ID,
		Members:  []string{a1.ID, a2.ID},
		Ideology: ideology,
	}
	f.coalitions[c.ID] = c
	f.memberOf[a1.ID] = c.ID
	f.memberOf[a2.ID] = c.ID
	if f.states[a1.ID] == FaithFounder {
		f.states[a1.ID] = FaithCollab
	}
	if f.states[a2.ID] == FaithFounder {
		f.states[a2.ID] = FaithCollab
	}
	return []string{fmt.Sprintf("🤝 COALITION FORMED: %s and %s unite as %s!", a1.Name, a2.Name, c.Name)}
}

func (f *factionTracker) join(coalitionID string, a *Agent) []string {
	c, ok := f.coalitions[coalitionID]
	if !ok {
		return nil
	}
	c.Members = append(c.Members, a.ID)
	f.memberOf[a.ID] = c.ID
	if f.states[a.ID] == FaithFounder {
		f.states[a.ID] = FaithCollab
	}
	return []string{fmt.Sprintf("🤝 %s joins %s!", a.Name, c.Name)}
}

// betray splits a out of its coalition. A coalition left with fewer than
// two members dissolves.
func (f *factionTracker) betray(a *Agent) []string {
	cid, ok := f.memberOf[a.ID]
	if !ok {
		return nil
	}
	c := f.coalitions[cid]
	delete(f.memberOf, a.ID)
	if f.states[a.ID] == FaithCollab {
		f.states[a.ID] = FaithFounder
	}

	kept := c.Members[:0]
	for _, id := range c.Members {
		if id != a.ID {
			kept = append(kept, id)
		}
	}
	c.Members = kept

	events := []string{fmt.Sprintf("💔 SCHISM: %s breaks away from %s!", a.Name, c.Name)}
	if len(c.Members) < 2 {
		for _, id := range c.Members {
			delete(f.memberOf, id)
			if f.states[id] == FaithCollab {
				f.states[id] = FaithFounder
			}
		}
		delete(f.coalitions, cid)
		events = append(events, fmt.Sprintf("💔 %s has dissolved.", c.Name))
	} else if c.LeaderID == a.ID {
		c.LeaderID = c.Members[0]
	}
	return events
}

func (f *factionTracker) reset() {
	*f = *newFactionTracker()
}

func coalitionIdeology(topics ...string) string {
	seen := map[string]bool{}
	var kept []string
	for _, t := range topics {
		if t != "" && !seen[t] {
			seen[t] = true
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " & ")
}

package tournament

import "math/rand"

// pickWeighted samples one agent with probability proportional to stake.
// A pool with zero total stake degrades to the first candidate.
func pickWeighted(rng *rand.Rand, candidates []*Agent) *Agent {
	if len(candidates) == 0 {
		return nil
	}
	var total int64
	for _, a := range candidates {
		total += a.Staked
	}
	if total <= 0 {
		return candidates[0]
	}
	r := rng.Float64() * float64(total)
	for _, a := range candidates {
		r -= float64(a.Staked)
		if r <= 0 {
			return a
		}
	}
	return candidates[len(candidates)-1]
}

// selectPair picks an initiator (stake-weighted over idle non-converted
// agents), a partner (uniform over remaining idle agents) and an
// interaction type. Both agents are flipped to TALKING before the caller
// releases the state lock, so no later selection in the same window can
// grab them. Caller must hold e.mu.
func (e *Engine) selectPair() (a1, a2 *Agent, itype InteractionType, ok bool) {
	var initiators, idle []*Agent
	for _, id := range e.order {
		a := e.agents[id]
		if a.Status != StatusIdle {
			continue
		}
		idle = append(idle, a)
		if !e.factions.IsConverted(a.ID) {
			initiators = append(initiators, a)
		}
	}
	if len(initiators) == 0 || len(idle) < 2 {
		return nil, nil, "", false
	}

	a1 = pickWeighted(e.rng, initiators)
	others := idle[:0:0]
	for _, a := range idle {
		if a.ID != a1.ID {
			others = append(others, a)
		}
	}
	a2 = others[e.rng.Intn(len(others))]
	itype = interactionTypes[e.rng.Intn(len(interactionTypes))]

	now := e.now()
	a1.Status, a1.LastAction = StatusTalking, now
	a2.Status, a2.LastAction = StatusTalking, now
	return a1, a2, itype, true
}

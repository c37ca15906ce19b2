package tournament

import "fmt"

// maybeGlobalEvent rolls a small chance of a market-wide event that
// nudges a random agent's stake or followers.
func (e *Engine) maybeGlobalEvent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase == PhaseResolution || len(e.order) == 0 {
		return
	}
	if e.rng.Float64() >= e.cfg.GlobalEventChance {
		return
	}

	target := e.agents[e.order[e.rng.Intn(len(e.order))]]
	switch e.rng.Intn(3) {
	case 0:
		boost := int64(100 + e.rng.Intn(5000))
		target.Staked += boost
		e.pushEvent(fmt.Sprintf("🚀 TOKEN LAUNCH: %s gains %d stake!", target.Name, boost))
	case 1:
		boost := int64(100 + e.rng.Intn(5000))
		target.Staked += boost
		e.pushEvent(fmt.Sprintf("🐳 WHALE STAKE: a whale backs %s with %d!", target.Name, boost))
	default:
		surge := e.rng.Intn(100)
		target.Followers += surge
		e.pushEvent(fmt.Sprintf("📈 FOLLOWER SURGE: %s gains %d followers!", target.Name, surge))
	}
	metricGlobalEventsTotal.Add(1)
}

package stakes

import (
	"context"
	"math/rand"
	"sync"
)

// Snapshot is the read-only on-chain view of an agent at registration time.
type Snapshot struct {
	Staked    int64
	Followers int
}

// Provider resolves an agent's staked amount and follower count. The engine
// only ever reads from it, once per registration.
type Provider interface {
	Lookup(ctx context.Context, agentID string) (Snapshot, error)
}

// Simulated stands in for the chain when no identity provider is wired:
// a random stake under 10000 with followers derived from it. Lookups for
// the same agent id are stable within a process.
type Simulated struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seen map[string]Snapshot
}

func NewSimulated(rng *rand.Rand) *Simulated {
	return &Simulated{rng: rng, seen: map[string]Snapshot{}}
}

func (s *Simulated) Lookup(_ context.Context, agentID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.seen[agentID]; ok {
		return snap, nil
	}
	stake := s.rng.Int63n(10000)
	snap := Snapshot{Staked: stake, Followers: 100 + int(stake/100)}
	s.seen[agentID] = snap
	return snap, nil
}

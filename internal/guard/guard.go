package guard

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrRateLimited       = errors.New("rate_limited")
	ErrDailyCostExceeded = errors.New("daily_cost_exceeded")
)

// Limits are the ceilings the guard enforces. Zero values disable the
// corresponding check.
type Limits struct {
	MaxRequestsPerMinute int
	MaxTokensPerMinute   int
	MaxDailyRequests     int
	MaxDailyCostUSD      float64
	CostPer1KTokens      float64
}

// Status is the diagnostic snapshot of current consumption against limits.
type Status struct {
	RequestsLastMinute   int     `json:"requestsLastMinute"`
	MaxRequestsPerMinute int     `json:"maxRequestsPerMinute"`
	TokensLastMinute     int     `json:"tokensLastMinute"`
	MaxTokensPerMinute   int     `json:"maxTokensPerMinute"`
	RequestsToday        int     `json:"requestsToday"`
	MaxDailyRequests     int     `json:"maxDailyRequests"`
	CostTodayUSD         float64 `json:"costTodayUSD"`
	MaxDailyCostUSD      float64 `json:"maxDailyCostUSD"`
}

type record struct {
	at     time.Time
	tokens int
	cost   float64
}

// Guard tracks generation traffic in a sliding one-hour window plus
// independent daily totals, and answers whether the next request may
// proceed. Daily totals survive window pruning and reset when the local
// day changes.
type Guard struct {
	mu      sync.Mutex
	limits  Limits
	records []record

	day           time.Time
	requestsToday int
	tokensToday   int
	costToday     float64

	now func() time.Time
}

func New(limits Limits) *Guard {
	g := &Guard{limits: limits, now: time.Now}
	g.day = dayOf(g.now())
	return g
}

// SetNow replaces the clock, for tests.
func (g *Guard) SetNow(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	g.day = dayOf(now())
}

// EstimateCost prices a token count at the configured per-1K rate.
func (g *Guard) EstimateCost(tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000.0 * g.limits.CostPer1KTokens
}

// AllowRequest reports whether the per-minute and per-day request/token
// ceilings leave room for one more request. It never records anything.
func (g *Guard) AllowRequest() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.rollover(now)

	reqMin, tokMin := g.lastMinute(now)
	if g.limits.MaxRequestsPerMinute > 0 && reqMin >= g.limits.MaxRequestsPerMinute {
		return ErrRateLimited
	}
	if g.limits.MaxTokensPerMinute > 0 && tokMin >= g.limits.MaxTokensPerMinute {
		return ErrRateLimited
	}
	if g.limits.MaxDailyRequests > 0 && g.requestsToday >= g.limits.MaxDailyRequests {
		return ErrRateLimited
	}
	return nil
}

// AllowCost reports whether today's accumulated cost plus the next
// request's estimate stays under the daily ceiling.
func (g *Guard) AllowCost(estCost float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover(g.now())

	if g.limits.MaxDailyCostUSD > 0 && g.costToday+estCost > g.limits.MaxDailyCostUSD {
		return ErrDailyCostExceeded
	}
	return nil
}

// TrackRequest records one completed generation call, updating the daily
// totals and pruning window records older than an hour.
func (g *Guard) TrackRequest(tokensUsed int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.rollover(now)

	cost := 0.0
	if tokensUsed > 0 {
		cost = float64(tokensUsed) / 1000.0 * g.limits.CostPer1KTokens
	}
	g.records = append(g.records, record{at: now, tokens: tokensUsed, cost: cost})
	g.requestsToday++
	g.tokensToday += tokensUsed
	g.costToday += cost

	cutoff := now.Add(-time.Hour)
	idx := 0
	for idx < len(g.records) && g.records[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		g.records = append([]record(nil), g.records[idx:]...)
	}
}

func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.rollover(now)
	reqMin, tokMin := g.lastMinute(now)
	return Status{
		RequestsLastMinute:   reqMin,
		MaxRequestsPerMinute: g.limits.MaxRequestsPerMinute,
		TokensLastMinute:     tokMin,
		MaxTokensPerMinute:   g.limits.MaxTokensPerMinute,
		RequestsToday:        g.requestsToday,
		MaxDailyRequests:     g.limits.MaxDailyRequests,
		CostTodayUSD:         g.costToday,
		MaxDailyCostUSD:      g.limits.MaxDailyCostUSD,
	}
}

func (g *Guard) lastMinute(now time.Time) (requests, tokens int) {
	cutoff := now.Add(-time.Minute)
	for i := len(g.records) - 1; i >= 0; i-- {
		if g.records[i].at.Before(cutoff) {
			break
		}
		requests++
		tokens += g.records[i].tokens
	}
	return requests, tokens
}

func (g *Guard) rollover(now time.Time) {
	if dayOf(now).Equal(g.day) {
		return
	}
	g.day = dayOf(now)
	g.requestsToday = 0
	g.tokensToday = 0
	g.costToday = 0
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package config

import "github.com/caarlos0/env/v11"

// TournamentConfig carries every tunable of the simulation loop and the
// dialogue pipeline. Durations are expressed in the units the loop works
// in: seconds for game pacing, milliseconds for generation deadlines.
type TournamentConfig struct {
	PhaseDurationSec    int     `env:"PHASE_DURATION_SEC" envDefault:"60"`
	InteractionChance   float64 `env:"INTERACTION_CHANCE" envDefault:"0.3"`
	GlobalEventChance   float64 `env:"GLOBAL_EVENT_CHANCE" envDefault:"0.05"`
	InteractionTTLSec   int     `env:"INTERACTION_TTL_SEC" envDefault:"8"`
	RecentEventsCap     int     `env:"RECENT_EVENTS_CAP" envDefault:"20"`
	NPCSettleEverySec   int     `env:"NPC_SETTLE_EVERY_SEC" envDefault:"300"`
	ConversionThreshold float64 `env:"CONVERSION_THRESHOLD" envDefault:"0.5"`

	HybridRatio    float64 `env:"HYBRID_RATIO" envDefault:"0.5"`
	CacheTTLMS     int     `env:"CACHE_TTL_MS" envDefault:"1800000"`
	DialogueRaceMS int     `env:"DIALOGUE_RACE_MS" envDefault:"2000"`

	MaxRequestsPerMinute int     `env:"RATE_LIMIT_RPM" envDefault:"10"`
	MaxTokensPerMinute   int     `env:"RATE_LIMIT_TPM" envDefault:"5000"`
	MaxDailyRequests     int     `env:"MAX_DAILY_REQUESTS" envDefault:"1000"`
	MaxDailyCostUSD      float64 `env:"MAX_DAILY_COST" envDefault:"2.00"`
	CostPer1KTokens      float64 `env:"COST_PER_1K_TOKENS" envDefault:"0.08"`

	InitialBalanceUSD float64 `env:"INITIAL_AGENT_BALANCE" envDefault:"1.0"`
}

func LoadTournament() (TournamentConfig, error) {
	var cfg TournamentConfig
	err := env.Parse(&cfg)
	return cfg, err
}

package tournament

import "expvar"

var (
	metricTicksTotal               = expvar.NewInt("tournament_ticks_total")
	metricTickErrorsTotal          = expvar.NewInt("tournament_tick_errors_total")
	metricInteractionsStartedTotal = expvar.NewInt("tournament_interactions_started_total")
	metricInteractionsExpiredTotal = expvar.NewInt("tournament_interactions_expired_total")
	metricGlobalEventsTotal        = expvar.NewInt("tournament_global_events_total")
	metricHouseSettledUSD        = expvar.NewFloat("tournament_house_settled_usd")
)

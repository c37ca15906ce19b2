package dialogue

import "expvar"

var (
	metricGenAttemptsTotal   = expvar.NewInt("dialogue_gen_attempts_total")
	metricGenSuccessTotal    = expvar.NewInt("dialogue_gen_success_total")
	metricGenFailedTotal     = expvar.NewInt("dialogue_gen_failed_total")
	metricTemplateLinesTotal = expvar.NewInt("dialogue_template_lines_total")
	metricCacheHitsTotal     = expvar.NewInt("dialogue_cache_hits_total")
	metricCacheMissesTotal   = expvar.NewInt("dialogue_cache_misses_total")
	metricGuardRejectsTotal  = expvar.NewInt("dialogue_guard_rejects_total")
	metricLedgerRejectsTotal = expvar.NewInt("dialogue_ledger_rejects_total")
)

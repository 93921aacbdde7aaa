package cache

import "github.com/VictoriaMetrics/metrics"

// Per-verb operation counters. Exposed through the default metrics set;
// embedders serve them via metrics.WritePrometheus.
var (
	fetchHits    = metrics.NewCounter(`hscache_fetch_total{result="hit"}`)
	fetchMisses  = metrics.NewCounter(`hscache_fetch_total{result="miss"}`)
	storeOps     = metrics.NewCounter(`hscache_store_total`)
	removeOps    = metrics.NewCounter(`hscache_remove_total`)
	clearOps     = metrics.NewCounter(`hscache_clear_total`)
	verbFailures = metrics.NewCounter(`hscache_failures_total`)
)

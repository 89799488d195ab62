// Package metrics wires the service's counters and histograms into a
// VictoriaMetrics/metrics registry and exposes it over HTTP for scraping.
package metrics

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

var (
	ExposuresIngested   = metrics.NewCounter(`weightgate_exposures_total`)
	ConversionsIngested = metrics.NewCounter(`weightgate_conversions_total`)

	RecalcCyclesRun     = metrics.NewCounter(`weightgate_recalc_cycles_total`)
	RecalcGroupsUpdated = metrics.NewCounter(`weightgate_recalc_groups_updated_total`)
	RecalcGroupsSkipped = metrics.NewCounter(`weightgate_recalc_groups_skipped_total`)
	RecalcGroupsErrored = metrics.NewCounter(`weightgate_recalc_groups_errored_total`)

	RecalcCycleDuration = metrics.NewHistogram(`weightgate_recalc_cycle_duration_seconds`)
)

// Handler returns the http.Handler to mount at /metrics.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

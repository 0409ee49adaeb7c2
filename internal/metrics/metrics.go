// Package metrics exposes the Prometheus collectors shared by gearsel binaries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg                *prometheus.Registry
	Applied            prometheus.Counter
	Skipped            prometheus.Counter
	TTRSec             prometheus.Gauge
	ReplayBytes        prometheus.Counter
	Lag                prometheus.Gauge
	LastManifestAgeSec prometheus.Gauge

	// catalog builds
	BuildRecords      *prometheus.CounterVec // result=changed|unchanged|removed
	ChangelogAppended prometheus.Counter
	RepairPatched     *prometheus.CounterVec // category

	// importer transactions
	TxProduced   prometheus.Counter
	TxAborted    prometheus.Counter
	TxLatencySec prometheus.Histogram

	// selections
	Selections *prometheus.CounterVec // kind, outcome
	CacheHits  prometheus.Counter
	CacheMiss  prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		reg:                r,
		Applied:            prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_replay_applied_total"}),
		Skipped:            prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_replay_skipped_total"}),
		TTRSec:             prometheus.NewGauge(prometheus.GaugeOpts{Name: "gearsel_recovery_ttr_seconds"}),
		ReplayBytes:        prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_replay_bytes_total"}),
		Lag:                prometheus.NewGauge(prometheus.GaugeOpts{Name: "gearsel_changelog_lag"}),
		LastManifestAgeSec: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gearsel_last_manifest_age_seconds"}),
		BuildRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearsel_build_records_total",
			Help: "Catalog records seen by builds, by result.",
		}, []string{"result"}),
		ChangelogAppended: prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_changelog_appended_total"}),
		RepairPatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearsel_repair_patched_total",
			Help: "Fields patched by the catalog repairer, by category.",
		}, []string{"category"}),
		TxProduced: prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_import_tx_produced_total"}),
		TxAborted:  prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_import_tx_aborted_total"}),
		TxLatencySec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gearsel_import_tx_latency_seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearsel_selections_total",
			Help: "Selection requests, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_selection_cache_hits_total"}),
		CacheMiss: prometheus.NewCounter(prometheus.CounterOpts{Name: "gearsel_selection_cache_misses_total"}),
	}
	r.MustRegister(
		m.Applied, m.Skipped, m.TTRSec, m.ReplayBytes, m.Lag, m.LastManifestAgeSec,
		m.BuildRecords, m.ChangelogAppended, m.RepairPatched,
		m.TxProduced, m.TxAborted, m.TxLatencySec,
		m.Selections, m.CacheHits, m.CacheMiss,
	)
	return m
}

// ObserveSelection counts one selection outcome.
func (r *Registry) ObserveSelection(kind string, success bool) {
	outcome := "failed"
	if success {
		outcome = "ok"
	}
	r.Selections.WithLabelValues(kind, outcome).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Package metrics exposes the Prometheus collectors scraped at
// GET /metrics: request volume, batch latency, and UTSF governance
// health (spec.md 2, 4.4).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the dispatcher and UTSF control plane
// report against.
type Metrics struct {
	Registry prometheus.Gatherer

	QuoteRequestsTotal    *prometheus.CounterVec
	QuoteBatchDuration     prometheus.Histogram
	QuoteVendorsProcessed prometheus.Counter
	QuoteVendorsHidden    prometheus.Counter

	UTSFComplianceScore *prometheus.GaugeVec
	UTSFRepairsTotal    *prometheus.CounterVec
	SoftUnblocksTotal   prometheus.Counter
}

// New builds and registers every collector against reg. Passing a fresh
// *prometheus.Registry (rather than the global DefaultRegisterer) keeps
// tests from colliding over collector names across packages.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: reg,
		QuoteRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quote_requests_total",
			Help: "Total number of quote requests, partitioned by outcome.",
		}, []string{"outcome"}),

		QuoteBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quote_batch_duration_seconds",
			Help:    "Time to fan out, compute, and rank one quote request.",
			Buckets: prometheus.DefBuckets,
		}),

		QuoteVendorsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_vendors_processed_total",
			Help: "Total number of vendor quotes computed across all requests.",
		}),

		QuoteVendorsHidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_vendors_hidden_total",
			Help: "Total number of computed quotes suppressed for being isHidden.",
		}),

		UTSFComplianceScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "utsf_compliance_score",
			Help: "Most recently audited compliance score per vendor.",
		}, []string{"vendor_id"}),

		UTSFRepairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "utsf_repairs_total",
			Help: "Total number of Repair runs, partitioned by outcome.",
		}, []string{"outcome"}),

		SoftUnblocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "utsf_soft_unblocks_total",
			Help: "Total number of soft-excluded pincodes auto-unblocked by Repair.",
		}),
	}

	reg.MustRegister(
		m.QuoteRequestsTotal,
		m.QuoteBatchDuration,
		m.QuoteVendorsProcessed,
		m.QuoteVendorsHidden,
		m.UTSFComplianceScore,
		m.UTSFRepairsTotal,
		m.SoftUnblocksTotal,
	)

	return m
}

// ObserveRepair records one Manager.Repair outcome, satisfying
// utsf.ManagerMetrics.
func (m *Metrics) ObserveRepair(outcome string) {
	m.UTSFRepairsTotal.WithLabelValues(outcome).Inc()
}

// AddSoftUnblocks adds n soft-excluded pincodes auto-unblocked by one
// Repair call, satisfying utsf.ManagerMetrics.
func (m *Metrics) AddSoftUnblocks(n int) {
	if n <= 0 {
		return
	}
	m.SoftUnblocksTotal.Add(float64(n))
}

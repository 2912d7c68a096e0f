package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "buyscope"

// Metrics holds Prometheus counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	payloads           prometheus.Counter
	logs               prometheus.Counter
	swapsDecoded       *prometheus.CounterVec
	decodeFailures     prometheus.Counter
	duplicates         prometheus.Counter
	reorgs             prometheus.Counter
	alerts             prometheus.Counter
	belowThreshold     prometheus.Counter
	enrichmentFailures *prometheus.CounterVec
	notifyErrors       prometheus.Counter
}

// New creates the counters and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		payloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_total",
			Help:      "Total number of payloads processed",
		}),
		logs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_total",
			Help:      "Total number of logs extracted from payloads",
		}),
		swapsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_decoded_total",
			Help:      "Total number of swaps decoded from monitored pools",
		}, []string{"protocol"}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Total number of logs skipped because they failed to decode",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Total number of swaps dropped as already seen",
		}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorgs_total",
			Help:      "Total number of removed swap logs evicted from dedupe",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of buy alerts produced",
		}),
		belowThreshold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "below_threshold_total",
			Help:      "Total number of buys dropped under the minimum amount",
		}),
		enrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Total number of failed alert enrichments",
		}, []string{"kind"}),
		notifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Total number of failed notifier deliveries",
		}),
	}
	reg.MustRegister(
		m.payloads,
		m.logs,
		m.swapsDecoded,
		m.decodeFailures,
		m.duplicates,
		m.reorgs,
		m.alerts,
		m.belowThreshold,
		m.enrichmentFailures,
		m.notifyErrors,
	)
	return m
}

// Payload counts one processed payload and the logs it carried.
func (m *Metrics) Payload(logs int) {
	if m != nil {
		m.payloads.Inc()
		m.logs.Add(float64(logs))
	}
}

// SwapDecoded counts a decoded swap for protocol.
func (m *Metrics) SwapDecoded(protocol string) {
	if m != nil {
		m.swapsDecoded.WithLabelValues(protocol).Inc()
	}
}

// DecodeFailures adds n skipped logs.
func (m *Metrics) DecodeFailures(n int) {
	if m != nil && n > 0 {
		m.decodeFailures.Add(float64(n))
	}
}

// Duplicate increments the duplicates counter.
func (m *Metrics) Duplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

// Reorg increments the reorg counter.
func (m *Metrics) Reorg() {
	if m != nil {
		m.reorgs.Inc()
	}
}

// Alerts adds n produced alerts.
func (m *Metrics) Alerts(n int) {
	if m != nil && n > 0 {
		m.alerts.Add(float64(n))
	}
}

// BelowThreshold increments the below-threshold counter.
func (m *Metrics) BelowThreshold() {
	if m != nil {
		m.belowThreshold.Inc()
	}
}

// EnrichmentFailure counts a failed enrichment of kind (price, balance).
func (m *Metrics) EnrichmentFailure(kind string) {
	if m != nil {
		m.enrichmentFailures.WithLabelValues(kind).Inc()
	}
}

// NotifyError increments the notifier error counter.
func (m *Metrics) NotifyError() {
	if m != nil {
		m.notifyErrors.Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes decode counters to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	records    prometheus.Counter
	shortReads prometheus.Counter
	rate       prometheus.Gauge
	values     *prometheus.GaugeVec
}

// NewMetrics registers the viewer's metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iioview",
			Name:      "records_decoded_total",
			Help:      "Number of records decoded successfully.",
		}),
		shortReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iioview",
			Name:      "short_reads_total",
			Help:      "Number of records rejected for a length mismatch.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iioview",
			Name:      "sample_rate_hz",
			Help:      "Achieved record arrival rate.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "iioview",
			Name:      "channel_value",
			Help:      "Latest calibrated reading per channel.",
		}, []string{"channel"}),
	}
	reg.MustRegister(m.records, m.shortReads, m.rate, m.values)
	return m
}

// ObserveRow records one decoded row.
func (m *Metrics) ObserveRow(row Row) {
	if m == nil {
		return
	}
	m.records.Inc()
	m.rate.Set(row.RateHz)
	for _, v := range row.Values {
		m.values.WithLabelValues(v.Name).Set(v.Value)
	}
}

// ObserveShortRead records one rejected record.
func (m *Metrics) ObserveShortRead() {
	if m == nil {
		return
	}
	m.shortReads.Inc()
}

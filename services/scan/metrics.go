package scan

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-beacon gauges.
type Metrics struct {
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	rssi        *prometheus.GaugeVec
	readings    *prometheus.CounterVec
}

func newGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "beacon",
			Name:      name,
			Help:      help,
		},
		[]string{"address"},
	)
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		temperature: newGauge("temperature_celsius", "Last reported temperature."),
		humidity:    newGauge("humidity_percent", "Last reported relative humidity."),
		rssi:        newGauge("rssi_dbm", "Signal strength of the last advertisement."),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "readings_total",
			Help:      "Distinct readings decoded.",
		}, []string{"address"}),
	}
	reg.MustRegister(m.temperature, m.humidity, m.rssi, m.readings)
	return m
}

// Observe records a decoded reading.
func (m *Metrics) Observe(r Reading) {
	m.temperature.WithLabelValues(r.Address).Set(r.Sample.Celsius())
	m.humidity.WithLabelValues(r.Address).Set(float64(r.Sample.RHPercent))
	m.readings.WithLabelValues(r.Address).Inc()
}

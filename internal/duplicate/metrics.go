package duplicate

import "github.com/prometheus/client_golang/prometheus"

const (
	resultSkipped = "skipped"
	resultEmpty   = "empty"
	resultFound   = "found"
)

type Metrics struct {
	Checks       *prometheus.CounterVec
	ScanFailures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_notify",
				Name:      "duplicate_checks_total",
				Help:      "Duplicate order checks by result",
			},
			[]string{"result"},
		),
		ScanFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_notify",
				Name:      "duplicate_scan_failures_total",
				Help:      "Order history scans that failed and were treated as empty",
			},
			[]string{"scan"},
		),
	}
	reg.MustRegister(m.Checks, m.ScanFailures)
	return m
}

func (m *Metrics) check(result string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(result).Inc()
}

func (m *Metrics) scanFailed(scan string) {
	if m == nil {
		return
	}
	m.ScanFailures.WithLabelValues(scan).Inc()
}

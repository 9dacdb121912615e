package driver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts session lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	Provisioned        *prometheus.CounterVec
	ProvisionFailures  *prometheus.CounterVec
	Released           *prometheus.CounterVec
	Screenshots        prometheus.Counter
	ScreenshotFailures prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playground",
			Name:      "sessions_provisioned_total",
			Help:      "Browser sessions opened, by mode.",
		}, []string{"mode"}),
		ProvisionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playground",
			Name:      "session_provision_failures_total",
			Help:      "Browser sessions that could not be opened, by mode.",
		}, []string{"mode"}),
		Released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playground",
			Name:      "sessions_released_total",
			Help:      "Browser sessions released, by mode.",
		}, []string{"mode"}),
		Screenshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playground",
			Name:      "screenshots_total",
			Help:      "Screenshots written to the artifact directory.",
		}),
		ScreenshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playground",
			Name:      "screenshot_failures_total",
			Help:      "Screenshots that could not be captured or written.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Provisioned, m.ProvisionFailures, m.Released, m.Screenshots, m.ScreenshotFailures)
	}
	return m
}

func (m *Metrics) provisioned(mode Mode) {
	if m == nil {
		return
	}
	m.Provisioned.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) provisionFailed(mode Mode) {
	if m == nil {
		return
	}
	m.ProvisionFailures.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) released(mode Mode) {
	if m == nil {
		return
	}
	m.Released.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) screenshot(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ScreenshotFailures.Inc()
		return
	}
	m.Screenshots.Inc()
}

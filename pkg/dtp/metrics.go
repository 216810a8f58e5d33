package dtp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK          = "ok"
	outcomeTimeout     = "timeout"
	outcomeClosed      = "closed"
	outcomeError       = "error"
	outcomeInFlight    = "in_flight"
	outcomeCanceled    = "canceled"
	outcomeDeviceError = "device_error"
)

// Metrics — счётчики обмена с принтером. Нулевой указатель допустим.
type Metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	stray    prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg не nil)
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dtp",
				Name:      "commands_total",
				Help:      "Commands sent to the fiscal printer by outcome.",
			},
			[]string{"command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dtp",
				Name:      "command_duration_seconds",
				Help:      "Time from frame write to response.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"command"},
		),
		stray: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dtp",
			Name:      "stray_frames_total",
			Help:      "Response frames received with no command outstanding.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.commands, m.duration, m.stray} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	if outcome == outcomeOK {
		m.duration.WithLabelValues(command).Observe(d.Seconds())
	}
}

func (m *Metrics) strayFrame() {
	if m == nil {
		return
	}
	m.stray.Inc()
}

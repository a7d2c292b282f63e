package reorder

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	inserts       *prometheus.CounterVec
	delivered     prometheus.Counter
	buffered      prometheus.Gauge
	resets        prometheus.Counter
	staleSessions prometheus.Counter
	decodeErrors  prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer, namespace, subsystem string) *metrics {
	m := metrics{
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inserts_total",
			Help:      "Number of packets offered to the reorder buffer, by result",
		}, []string{"result"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivered_total",
			Help:      "Number of packets delivered in order",
		}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffered",
			Help:      "Number of packets waiting in the reorder buffer",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resets_total",
			Help:      "Number of session resets received",
		}),
		staleSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_session_total",
			Help:      "Number of packets dropped for belonging to an earlier session",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decode_errors_total",
			Help:      "Number of packets that could not be decoded",
		}),
	}

	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"component": "reorder"},
			registerer,
		)

		registerer.MustRegister(
			m.inserts,
			m.delivered,
			m.buffered,
			m.resets,
			m.staleSessions,
			m.decodeErrors,
		)
	}

	return &m
}

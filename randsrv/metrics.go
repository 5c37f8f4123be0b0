package randsrv

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	points       prometheus.Counter
	epoch        prometheus.Gauge
	keyRotations prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppoprf",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by handler and status code.",
		}, []string{"handler", "code"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppoprf",
			Name:      "points_evaluated_total",
			Help:      "Number of points evaluated.",
		}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ppoprf",
			Name:      "current_epoch",
			Help:      "The epoch currently served.",
		}),
		keyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppoprf",
			Name:      "key_rotations_total",
			Help:      "Number of times the server key was replaced.",
		}),
	}
	m.registry.MustRegister(m.requests, m.points, m.epoch, m.keyRotations)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

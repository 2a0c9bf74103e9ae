// Package server exposes Prometheus metrics describing connection, room, and
// message activity.
package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "typeto"

// serverMetrics holds the Prometheus collectors for the session server.
type serverMetrics struct {
	activeConnections prometheus.Gauge
	roomsCreated      prometheus.Counter
	messagesTotal     *prometheus.CounterVec
	decodeFailures    prometheus.Counter
}

var (
	metricsInstance *serverMetrics
	metricsOnce     sync.Once
)

// getMetrics returns the process-wide metrics instance, registering the
// collectors with the default registry on first use.
func getMetrics() *serverMetrics {
	metricsOnce.Do(func() {
		factory := promauto.With(prometheus.DefaultRegisterer)

		metricsInstance = &serverMetrics{
			activeConnections: factory.NewGauge(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_connections",
				Help:      "Number of open WebSocket sessions",
			}),

			roomsCreated: factory.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rooms_created_total",
				Help:      "Total number of rooms created",
			}),

			messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_total",
				Help:      "Total client messages dispatched, by message type",
			}, []string{"type"}),

			decodeFailures: factory.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "decode_failures_total",
				Help:      "Total client messages dropped because they failed to decode",
			}),
		}
	})

	return metricsInstance
}

// Package prometheus provides the Prometheus-backed implementation of the
// metrics interfaces.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/wirecall/pkg/metrics"
)

// rpcMetrics is the Prometheus implementation of metrics.RPCMetrics.
type rpcMetrics struct {
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	overloads           prometheus.Counter
	ingressDepth        prometheus.Gauge
	activeClients       prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	clientsReaped       prometheus.Counter
}

// NewRPCMetrics creates a Prometheus-backed RPCMetrics registered on reg.
// Pass prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer via WithDefaultRegistry for the process-wide
// one.
func NewRPCMetrics(reg prometheus.Registerer) metrics.RPCMetrics {
	return &rpcMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wirecall_requests_total",
				Help: "Total handler invocations by handler name and outcome",
			},
			[]string{"handler", "outcome"}, // outcome: "ok", "handler_error", "unknown_handler", "dropped"
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wirecall_request_duration_milliseconds",
				Help: "Handler invocation duration in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - trivial handlers
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s - slow handlers approaching client timeouts
					5000, // 5s
				},
			},
			[]string{"handler"},
		),
		overloads: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wirecall_overloads_total",
				Help: "Queries rejected because the ingress queue was full",
			},
		),
		ingressDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "wirecall_ingress_queue_depth",
				Help: "Current number of queries waiting in the ingress queue",
			},
		),
		activeClients: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "wirecall_active_clients",
				Help: "Current number of live client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wirecall_connections_accepted_total",
				Help: "Total accepted client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wirecall_connections_closed_total",
				Help: "Total closed client connections",
			},
		),
		clientsReaped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wirecall_clients_reaped_total",
				Help: "Client managers removed by the dead-client reaper",
			},
		),
	}
}

// WithDefaultRegistry creates a Prometheus-backed RPCMetrics on the default
// process-wide registry.
func WithDefaultRegistry() metrics.RPCMetrics {
	return NewRPCMetrics(prometheus.DefaultRegisterer)
}

// Handler returns the HTTP handler exposing the default registry, for
// mounting on a metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *rpcMetrics) RecordRequest(handler string, duration time.Duration, outcome string) {
	m.requests.WithLabelValues(handler, outcome).Inc()
	m.requestDuration.WithLabelValues(handler).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *rpcMetrics) RecordOverload() {
	m.overloads.Inc()
}

func (m *rpcMetrics) SetIngressDepth(depth int) {
	m.ingressDepth.Set(float64(depth))
}

func (m *rpcMetrics) SetActiveClients(count int32) {
	m.activeClients.Set(float64(count))
}

func (m *rpcMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *rpcMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *rpcMetrics) RecordClientReaped() {
	m.clientsReaped.Inc()
}

// Package metrics defines the observability interface for the RPC transport.
//
// The interface is optional everywhere it appears: passing nil disables
// collection with zero overhead. The Prometheus implementation lives in
// pkg/metrics/prometheus.
package metrics

import "time"

// RPCMetrics collects transport-level measurements on the server side.
type RPCMetrics interface {
	// RecordRequest records a completed handler invocation with its outcome.
	// outcome is "ok", "handler_error", "unknown_handler" or "dropped".
	RecordRequest(handler string, duration time.Duration, outcome string)

	// RecordOverload increments the counter of queries rejected because the
	// ingress queue was full.
	RecordOverload()

	// SetIngressDepth updates the ingress queue occupancy gauge.
	SetIngressDepth(depth int)

	// SetActiveClients updates the live client-manager count.
	SetActiveClients(count int32)

	// RecordConnectionAccepted increments the accepted-connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed-connections counter.
	RecordConnectionClosed()

	// RecordClientReaped increments the counter of client managers removed
	// by the reaper.
	RecordClientReaped()
}

// RecordRequest invokes m.RecordRequest when m is non-nil.
func RecordRequest(m RPCMetrics, handler string, duration time.Duration, outcome string) {
	if m != nil {
		m.RecordRequest(handler, duration, outcome)
	}
}

// RecordOverload invokes m.RecordOverload when m is non-nil.
func RecordOverload(m RPCMetrics) {
	if m != nil {
		m.RecordOverload()
	}
}

// SetIngressDepth invokes m.SetIngressDepth when m is non-nil.
func SetIngressDepth(m RPCMetrics, depth int) {
	if m != nil {
		m.SetIngressDepth(depth)
	}
}

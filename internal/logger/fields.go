package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so output can be aggregated and queried.
const (
	// Wire & dispatch
	KeyHandler  = "handler"  // registered handler name
	KeyDispatch = "dispatch" // dispatch id correlating a query with its response

	// Client identification
	KeyClientAddr = "client_addr" // remote address of the peer connection

	// Server internals
	KeyQueueDepth = "queue_depth" // bounded queue occupancy
	KeyWorker     = "worker"      // worker index in the pool
	KeyPort       = "port"        // listener TCP port

	// Operation metadata
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
)

// Handler returns a slog.Attr for a registered handler name
func Handler(name string) slog.Attr {
	return slog.String(KeyHandler, name)
}

// Dispatch returns a slog.Attr for a dispatch id
func Dispatch(id int32) slog.Attr {
	return slog.Int(KeyDispatch, int(id))
}

// ClientAddr returns a slog.Attr for the remote peer address
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// QueueDepth returns a slog.Attr for bounded queue occupancy
func QueueDepth(n int) slog.Attr {
	return slog.Int(KeyQueueDepth, n)
}

// Worker returns a slog.Attr for a worker index
func Worker(i int) slog.Attr {
	return slog.Int(KeyWorker, i)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

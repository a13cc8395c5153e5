package client

import "errors"

var (
	// ErrClosed reports a call on a closed client, or a call that was in
	// flight when the connection tore down.
	ErrClosed = errors.New("client closed")

	// ErrTimeout reports a call that did not receive its response within
	// the hard query timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrQueueFull reports a call rejected because the outgoing queue was
	// full; nothing was written to the wire.
	ErrQueueFull = errors.New("outgoing queue full")

	// ErrDispatchExhausted reports dispatch id wraparound at the signed
	// 32-bit boundary. The client is unusable afterwards.
	ErrDispatchExhausted = errors.New("dispatch ids exhausted")
)

// RemoteError carries a failure message produced on the server side: a
// handler error, an unknown handler, or an overload rejection. The message
// is the server's errorMsg verbatim.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return e.Msg
}

// transportClosedMessage completes pending slots when the connection dies so
// blocked callers fail fast instead of waiting out the full timeout.
const transportClosedMessage = "transport closed"

package server

import "errors"

var (
	// ErrHandlerAlreadyRegistered reports a Register call for a name that is
	// already present in the registry.
	ErrHandlerAlreadyRegistered = errors.New("handler already registered")

	// ErrReservedHandlerName reports a user registration of a name starting
	// with "_"; those names belong to the framework.
	ErrReservedHandlerName = errors.New("handler names starting with _ are reserved")

	// ErrAlreadyStarted reports a Register call after Serve; the registry is
	// frozen once the server starts.
	ErrAlreadyStarted = errors.New("server already started")
)

// OverloadedMessage is the error message carried by the failure response
// synthesized when the ingress queue is full. Clients can match on it to
// distinguish overload from handler failures.
const OverloadedMessage = "server overloaded"

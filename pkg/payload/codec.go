// Package payload defines the pluggable serializer for the opaque bytes
// carried inside query and response frames.
//
// The wire framing in pkg/wire is mandatory and independent of this boundary:
// the transport never interprets payload bytes, it only moves them. Typed
// handlers on the server and typed calls on the client meet at this interface.
package payload

// Codec serializes user types to and from the opaque payload bytes of a
// frame. Implementations must be safe for concurrent use: a single codec
// instance is shared by all workers and all in-flight client calls.
type Codec interface {
	// Marshal encodes v into payload bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes payload bytes into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

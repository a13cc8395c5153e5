package server

import (
	"fmt"

	"github.com/marmos91/wirecall/pkg/wire"
)

// RegisterHandler registers a typed handler under name. The generated
// wrapper decodes the query payload into TIn with the server's payload
// codec, invokes fn, and encodes the returned TOut into the response.
//
// A decode failure, an error returned by fn, or a failure to encode the
// result all become failure responses carrying the error message; they never
// terminate a worker.
//
// Registration is pre-Serve only. Names starting with "_" are reserved for
// the framework and rejected; registering a name twice fails.
func RegisterHandler[TIn any, TOut any](s *Server, name string, fn func(TIn) (TOut, error)) error {
	return s.register(name, wrapTyped(s, fn), false)
}

// Register registers a raw handler that works directly on the query frame.
// The returned response's dispatch id is overwritten by the worker, so
// handlers need not set it. Same registration rules as RegisterHandler.
func (s *Server) Register(name string, fn func(q *wire.Query) *wire.Response) error {
	return s.register(name, fn, false)
}

// wrapTyped builds the registry entry for a typed handler.
func wrapTyped[TIn any, TOut any](s *Server, fn func(TIn) (TOut, error)) handlerFunc {
	return func(q *wire.Query) *wire.Response {
		var in TIn
		if err := s.codec.Unmarshal(q.Data, &in); err != nil {
			return &wire.Response{
				OK:       false,
				ErrorMsg: fmt.Sprintf("decode payload for %q: %v", q.Handler, err),
			}
		}

		out, err := fn(in)
		if err != nil {
			return &wire.Response{OK: false, ErrorMsg: err.Error()}
		}

		data, err := s.codec.Marshal(out)
		if err != nil {
			return &wire.Response{
				OK:       false,
				ErrorMsg: fmt.Sprintf("encode result for %q: %v", q.Handler, err),
			}
		}

		return &wire.Response{OK: true, Data: data}
	}
}

package client

import (
	"fmt"
	"time"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/pending"
	"github.com/marmos91/wirecall/pkg/wire"
)

// Call invokes handler on the server with input and blocks until the
// response arrives or the hard query timeout elapses.
//
// The returned error is one of three categories: a *RemoteError carrying the
// server's message verbatim (handler failure, unknown handler, overload),
// ErrTimeout, or a local transport error (ErrClosed, ErrQueueFull,
// ErrDispatchExhausted, codec failures).
func Call[TIn any, TOut any](c *Client, handler string, input TIn) (TOut, error) {
	var zero TOut

	id, err := c.nextDispatch()
	if err != nil {
		return zero, err
	}

	data, err := c.codec.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("encode payload for %q: %w", handler, err)
	}

	query := &wire.Query{
		Dispatch: id,
		Handler:  handler,
		Data:     data,
	}

	start := time.Now()
	if err := c.enqueue(query); err != nil {
		return zero, err
	}

	resp := c.pending.Get(id)
	logger.Debug("call completed",
		"handler", handler,
		"dispatch", id,
		"ok", resp.OK,
		"duration_ms", logger.Duration(start))

	if !resp.OK {
		switch resp.ErrorMsg {
		case pending.TimeoutMessage:
			return zero, fmt.Errorf("%w: %s", ErrTimeout, handler)
		case transportClosedMessage:
			return zero, ErrClosed
		default:
			return zero, &RemoteError{Msg: resp.ErrorMsg}
		}
	}

	var out TOut
	if err := c.codec.Unmarshal(resp.Data, &out); err != nil {
		return zero, fmt.Errorf("decode result for %q: %w", handler, err)
	}
	return out, nil
}

// Ping round-trips n through the server's _ping probe.
func (c *Client) Ping(n int32) (int32, error) {
	return Call[int32, int32](c, "_ping", n)
}

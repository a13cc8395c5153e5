// Package client implements the wirecall RPC client: a single TCP
// connection with a writer loop, a reader loop completing a dispatch
// correlation table, and a synchronous Call API with a hard timeout.
package client

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/config"
	"github.com/marmos91/wirecall/pkg/payload"
	"github.com/marmos91/wirecall/pkg/pending"
	"github.com/marmos91/wirecall/pkg/queue"
	"github.com/marmos91/wirecall/pkg/wire"
)

// writerPollInterval bounds how long the writer loop sleeps on an empty
// outgoing queue before re-checking for shutdown.
const writerPollInterval = 500 * time.Millisecond

// Options configures a Client. The zero value is usable: every field falls
// back to the package default.
type Options struct {
	// HardQueryTimeout is the maximum time a caller blocks waiting for a
	// response before a timeout is synthesized locally.
	HardQueryTimeout time.Duration

	// OutgoingCapacity is the outgoing query queue capacity.
	OutgoingCapacity int

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// MaxFrameSize caps the declared size of inbound frames.
	MaxFrameSize uint32

	// Codec serializes call payloads. Defaults to msgpack.
	Codec payload.Codec
}

// FromConfig converts a config.ClientConfig into Options.
func FromConfig(cfg config.ClientConfig) *Options {
	return &Options{
		HardQueryTimeout: cfg.HardQueryTimeout,
		OutgoingCapacity: cfg.OutgoingCapacity,
		DialTimeout:      cfg.DialTimeout,
	}
}

func (o *Options) applyDefaults() {
	if o.HardQueryTimeout == 0 {
		o.HardQueryTimeout = config.DefaultHardQueryTimeout
	}
	if o.OutgoingCapacity == 0 {
		o.OutgoingCapacity = config.DefaultOutgoingCapacity
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = config.DefaultDialTimeout
	}
	if o.MaxFrameSize == 0 {
		o.MaxFrameSize = wire.DefaultMaxFrameSize
	}
	if o.Codec == nil {
		o.Codec = payload.NewMsgpack()
	}
}

// Client is a wirecall RPC client over a single TCP connection.
//
// The connection's socket is owned by exactly one writer goroutine and one
// reader goroutine. Caller goroutines only touch the outgoing queue and the
// pending table, so any number of them may issue calls concurrently.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	codec        payload.Codec
	maxFrameSize uint32

	// outgoing holds queries waiting for the writer loop.
	outgoing *queue.Bounded[*wire.Query]

	// pending correlates dispatch ids with blocked callers.
	pending *pending.Table

	// dispatch allocates ids, strictly monotonically, unique for the
	// lifetime of this client. Wraparound is terminal.
	dispatch atomic.Int32

	closed    atomic.Bool
	closeOnce sync.Once
}

// Dial connects to a wirecall server at addr and starts the writer and
// reader loops. opts may be nil for all defaults.
func Dial(addr string, opts *Options) (*Client, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	conn, err := net.DialTimeout("tcp", addr, o.DialTimeout)
	if err != nil {
		return nil, err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			logger.Debug("Failed to set TCP_NODELAY", "error", err)
		}
	}

	c := &Client{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		codec:        o.Codec,
		maxFrameSize: o.MaxFrameSize,
		outgoing:     queue.NewBounded[*wire.Query](o.OutgoingCapacity),
		pending:      pending.NewTable(o.HardQueryTimeout),
	}

	go c.writeLoop()
	go c.readLoop()

	logger.Debug("connected", "addr", addr)
	return c, nil
}

// IsClosed reports whether the client has been closed or lost its
// connection.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Close tears down the connection and fails all outstanding calls with
// ErrClosed. Safe to call multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.outgoing.Close()
		err = c.conn.Close()
		c.pending.FailAll(transportClosedMessage)
	})
	return err
}

// teardown is Close for involuntary disconnects observed by the loops.
func (c *Client) teardown() {
	_ = c.Close()
}

// nextDispatch allocates a fresh dispatch id. Ids start at 1 and increase
// strictly monotonically; crossing the signed 32-bit boundary is terminal.
func (c *Client) nextDispatch() (int32, error) {
	id := c.dispatch.Add(1)
	if id < 0 {
		return 0, ErrDispatchExhausted
	}
	return id, nil
}

// enqueue registers the query in the pending table and hands it to the
// writer loop.
func (c *Client) enqueue(q *wire.Query) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.pending.Add(q.Dispatch)
	if !c.outgoing.TryEnqueue(q) {
		c.pending.Delete(q.Dispatch)
		if c.closed.Load() {
			return ErrClosed
		}
		return ErrQueueFull
	}
	return nil
}

// writeLoop drains the outgoing queue onto the socket. A failed write drops
// the query: the caller observes a timeout, and if the connection is truly
// gone the reader tears the client down.
func (c *Client) writeLoop() {
	for {
		q, ok := c.outgoing.Dequeue(writerPollInterval)
		if !ok {
			if c.outgoing.Closed() {
				return
			}
			continue
		}

		if err := wire.WriteFrame(c.writer, wire.EncodeQuery(q)); err != nil {
			logger.Debug("write failed, dropping query",
				"handler", q.Handler, "dispatch", q.Dispatch, "error", err)
			continue
		}
		if err := c.writer.Flush(); err != nil {
			logger.Debug("flush failed, dropping query",
				"handler", q.Handler, "dispatch", q.Dispatch, "error", err)
			continue
		}
	}
}

// readLoop decodes responses and completes pending slots until the
// connection dies. Responses whose dispatch id has no waiting slot are
// dropped by the pending table.
func (c *Client) readLoop() {
	for {
		body, err := wire.ReadFrame(c.reader, c.maxFrameSize)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Debug("read failed", "error", err)
			}
			c.teardown()
			return
		}

		resp, err := wire.DecodeResponse(body)
		if err != nil {
			logger.Warn("malformed response, closing connection", "error", err)
			c.teardown()
			return
		}

		c.pending.Set(resp.Dispatch, resp)
	}
}

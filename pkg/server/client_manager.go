package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/queue"
	"github.com/marmos91/wirecall/pkg/wire"
)

// writerPollInterval bounds how long the writer loop sleeps on an empty
// outgoing queue before re-checking liveness.
const writerPollInterval = 500 * time.Millisecond

// clientManager owns a single accepted connection: the reader loop decoding
// inbound queries, the writer loop draining the per-connection outgoing
// queue, and the liveness flag the reaper inspects.
//
// The socket is touched by exactly one reader and one writer goroutine; no
// other code may use it.
type clientManager struct {
	srv  *Server
	conn net.Conn
	addr string

	reader *bufio.Reader
	writer *bufio.Writer

	// outgoing holds responses waiting to be written to this connection.
	outgoing *queue.Bounded[*wire.Response]

	alive atomic.Bool

	queriesReceived   atomic.Int64
	responsesReturned atomic.Int64
}

func newClientManager(s *Server, conn net.Conn) *clientManager {
	cm := &clientManager{
		srv:      s,
		conn:     conn,
		addr:     conn.RemoteAddr().String(),
		reader:   bufio.NewReader(conn),
		writer:   bufio.NewWriter(conn),
		outgoing: queue.NewBounded[*wire.Response](s.Config.OutgoingCapacity),
	}
	cm.alive.Store(true)
	return cm
}

// isAlive reports whether both loops are running against a healthy socket.
// The reaper discards managers reporting false.
func (cm *clientManager) isAlive() bool {
	return cm.alive.Load()
}

// markDead clears the liveness flag.
func (cm *clientManager) markDead() {
	cm.alive.Store(false)
}

// stats snapshots this connection's counters.
func (cm *clientManager) stats() ClientStats {
	return ClientStats{
		Addr:                cm.addr,
		OutgoingQueueLength: cm.outgoing.Len(),
		QueriesReceived:     cm.queriesReceived.Load(),
		ResponsesReturned:   cm.responsesReturned.Load(),
	}
}

// run drives both loops and returns when the connection is finished.
// The writer runs in its own goroutine; the reader runs inline.
func (cm *clientManager) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		cm.writeLoop()
	}()

	cm.readLoop()

	// The reader is done: no new responses will be produced for queries not
	// already in flight. Close the outgoing queue so the writer drains and
	// exits, then tear the socket down.
	cm.markDead()
	cm.outgoing.Close()
	<-writerDone
	_ = cm.conn.Close()
}

// readLoop decodes inbound queries and submits them to the ingress queue
// until the socket fails or shutdown begins.
func (cm *clientManager) readLoop() {
	for {
		body, err := wire.ReadFrame(cm.reader, cm.srv.Config.MaxFrameSize.Uint32())
		if err != nil {
			cm.logReadError(err)
			return
		}

		query, err := wire.DecodeQuery(body)
		if err != nil {
			logger.Warn("dropping connection on malformed query",
				"client_addr", cm.addr, "error", err)
			return
		}

		cm.queriesReceived.Add(1)
		cm.submit(query)
	}
}

// submit hands the query to the worker pool. When the ingress queue is full
// the query is answered directly with an overload failure so this connection
// keeps making progress without growing memory.
func (cm *clientManager) submit(query *wire.Query) {
	if cm.srv.ingress.TryEnqueue(task{query: query, cm: cm}) {
		if cm.srv.metrics != nil {
			cm.srv.metrics.SetIngressDepth(cm.srv.ingress.Len())
		}
		return
	}

	logger.Debug("ingress queue full, rejecting query",
		logger.ClientAddr(cm.addr),
		logger.Handler(query.Handler),
		logger.Dispatch(query.Dispatch))
	if cm.srv.metrics != nil {
		cm.srv.metrics.RecordOverload()
	}

	overloaded := &wire.Response{
		OK:       false,
		Dispatch: query.Dispatch,
		ErrorMsg: OverloadedMessage,
	}
	// The outgoing queue can be full too; then the client times out instead.
	if !cm.outgoing.TryEnqueue(overloaded) {
		logger.Debug("outgoing queue full, dropping overload response",
			"client_addr", cm.addr, "dispatch", query.Dispatch)
	}
}

// logReadError classifies reader exit causes: clean disconnects log at
// debug, protocol violations at warn.
func (cm *clientManager) logReadError(err error) {
	switch {
	case err == io.EOF:
		logger.Debug("client disconnected", "client_addr", cm.addr)
	case errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrDeadlineExceeded):
		logger.Debug("reader stopped", "client_addr", cm.addr, "error", err)
	case errors.Is(err, wire.ErrMalformedFrame), errors.Is(err, wire.ErrShortRead):
		logger.Warn("dropping connection on wire error", "client_addr", cm.addr, "error", err)
	default:
		logger.Debug("read failed", "client_addr", cm.addr, "error", err)
	}
}

// writeLoop drains the outgoing queue and writes framed responses until the
// queue closes or a write fails.
func (cm *clientManager) writeLoop() {
	for {
		resp, ok := cm.outgoing.Dequeue(writerPollInterval)
		if !ok {
			if cm.outgoing.Closed() {
				return
			}
			if !cm.isAlive() {
				return
			}
			continue
		}

		if err := wire.WriteFrame(cm.writer, wire.EncodeResponse(resp)); err != nil {
			logger.Debug("write failed", "client_addr", cm.addr, "error", err)
			cm.markDead()
			return
		}
		if err := cm.writer.Flush(); err != nil {
			logger.Debug("flush failed", "client_addr", cm.addr, "error", err)
			cm.markDead()
			return
		}

		cm.responsesReturned.Add(1)
	}
}

package server

import (
	"fmt"
	"time"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/wire"
)

// workerPollInterval is how long a worker blocks on an empty ingress queue
// per dequeue attempt. A blocking dequeue keeps idle workers off the CPU;
// the bounded wait lets them observe queue closure promptly.
const workerPollInterval = time.Second

// startWorkers launches the fixed worker pool.
func (s *Server) startWorkers() {
	for i := 0; i < s.Config.Workers; i++ {
		s.workers.Add(1)
		go func(worker int) {
			defer s.workers.Done()
			s.workerLoop(worker)
		}(i)
	}
	logger.Debug("worker pool started", "workers", s.Config.Workers)
}

// workerLoop consumes the ingress queue and dispatches to handlers until the
// queue is closed and drained.
func (s *Server) workerLoop(worker int) {
	for {
		t, ok := s.ingress.Dequeue(workerPollInterval)
		if !ok {
			if s.ingress.Closed() {
				return
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.SetIngressDepth(s.ingress.Len())
		}

		resp := s.dispatch(t.query)

		// The response always answers the query it was produced for,
		// whatever the handler did to it.
		resp.Dispatch = t.query.Dispatch

		// Enqueue-if-room: a full outgoing queue drops the response and the
		// client times out.
		if !t.cm.outgoing.TryEnqueue(resp) {
			logger.Debug("outgoing queue full, dropping response",
				"client_addr", t.cm.addr,
				"handler", t.query.Handler,
				"dispatch", t.query.Dispatch)
			if s.metrics != nil {
				s.metrics.RecordRequest(t.query.Handler, 0, "dropped")
			}
		}
	}
}

// dispatch resolves and invokes the handler for query. Handler panics and
// errors become failure responses; they never escape a worker.
func (s *Server) dispatch(query *wire.Query) (resp *wire.Response) {
	start := time.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked",
				logger.Handler(query.Handler),
				logger.Dispatch(query.Dispatch),
				"panic", fmt.Sprintf("%v", r))
			outcome = "handler_error"
			resp = &wire.Response{
				OK:       false,
				ErrorMsg: fmt.Sprintf("%v", r),
			}
		}
		if s.metrics != nil {
			s.metrics.RecordRequest(query.Handler, time.Since(start), outcome)
		}
	}()

	fn, ok := s.lookup(query.Handler)
	if !ok {
		logger.Debug("unknown handler", "handler", query.Handler, "dispatch", query.Dispatch)
		outcome = "unknown_handler"
		return &wire.Response{
			OK:       false,
			ErrorMsg: fmt.Sprintf("unknown handler %q", query.Handler),
		}
	}

	resp = fn(query)
	if !resp.OK {
		outcome = "handler_error"
	}
	return resp
}

// Package server implements the wirecall RPC server: a TCP listener, a
// handler registry, one client manager per accepted connection, a single
// bounded ingress queue and a fixed pool of workers dispatching to handlers.
package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/config"
	"github.com/marmos91/wirecall/pkg/metrics"
	"github.com/marmos91/wirecall/pkg/payload"
	"github.com/marmos91/wirecall/pkg/queue"
	"github.com/marmos91/wirecall/pkg/wire"
)

// handlerFunc is a registry entry: it receives a decoded query and produces
// the response frame. Wrappers built by RegisterHandler close over the
// payload codec; the worker fixes up the dispatch id afterwards.
type handlerFunc func(q *wire.Query) *wire.Response

// task pairs an inbound query with the outgoing queue of the connection it
// arrived on. The ingress queue holds tasks, never nils.
type task struct {
	query *wire.Query
	cm    *clientManager
}

// Server owns the listener, the registry, the ingress queue, the worker pool
// and the set of live client managers.
//
// Thread safety:
// All exported methods are safe for concurrent use. The shutdown mechanism
// uses sync.Once so Stop is idempotent.
type Server struct {
	// Config holds bind address, port, queue capacities, worker count and
	// timeouts.
	Config config.ServerConfig

	codec   payload.Codec
	metrics metrics.RPCMetrics

	// handlers is read on every dispatch and written only before Serve.
	handlersMu sync.RWMutex
	handlers   map[string]handlerFunc

	// ingress is the single bounded queue feeding the worker pool.
	// Owned by the server; client managers borrow a reference.
	ingress *queue.Bounded[task]

	// clients is the live client-manager set: insert on accept, read for
	// stats, compacted by the reaper.
	clientsMu sync.Mutex
	clients   map[*clientManager]struct{}

	started atomic.Bool

	// listener is closed during shutdown to stop accepting new connections.
	listenerMu sync.RWMutex
	listener   net.Listener

	// ListenerReady is closed when the listener is ready to accept
	// connections. Used by tests to synchronize with server startup.
	ListenerReady chan struct{}

	// Shutdown signals that graceful shutdown has been initiated.
	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// ConnCount tracks the current number of active connections.
	ConnCount atomic.Int32

	// activeConns tracks connection goroutines for graceful shutdown.
	activeConns sync.WaitGroup

	// workers tracks worker goroutines for graceful shutdown.
	workers sync.WaitGroup
}

// New creates a server with the given configuration. codec serializes
// handler payloads; m may be nil to disable metrics. The _ping and _getStats
// built-ins are pre-registered.
func New(cfg config.ServerConfig, codec payload.Codec, m metrics.RPCMetrics) *Server {
	s := &Server{
		Config:        cfg,
		codec:         codec,
		metrics:       m,
		handlers:      make(map[string]handlerFunc),
		ingress:       queue.NewBounded[task](cfg.IngressCapacity),
		clients:       make(map[*clientManager]struct{}),
		ListenerReady: make(chan struct{}),
		Shutdown:      make(chan struct{}),
	}
	s.registerBuiltins()
	return s
}

// register adds name to the registry, enforcing uniqueness, the reserved
// prefix and the pre-Start freeze.
func (s *Server) register(name string, fn handlerFunc, builtin bool) error {
	if s.started.Load() {
		return ErrAlreadyStarted
	}
	if !builtin && strings.HasPrefix(name, "_") {
		return fmt.Errorf("%w: %q", ErrReservedHandlerName, name)
	}

	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	if _, exists := s.handlers[name]; exists {
		return fmt.Errorf("%w: %q", ErrHandlerAlreadyRegistered, name)
	}
	s.handlers[name] = fn
	return nil
}

// lookup returns the handler registered under name.
func (s *Server) lookup(name string) (handlerFunc, bool) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	fn, ok := s.handlers[name]
	return fn, ok
}

// Serve binds the listener and accepts connections until ctx is cancelled or
// Stop is called. For every accepted connection it creates a client manager,
// records it in the live set and starts its reader and writer loops.
// Individual accept failures are logged and the loop continues.
func (s *Server) Serve(ctx context.Context) error {
	if s.started.Swap(true) {
		return ErrAlreadyStarted
	}

	listenAddr := fmt.Sprintf("%s:%d", s.Config.BindAddress, s.Config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to create listener on %s: %w", listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	logger.Info("wirecall server listening", "port", s.Port())

	// Monitor context cancellation in a separate goroutine
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received", "error", ctx.Err())
			s.initiateShutdown()
		case <-s.Shutdown:
		}
	}()

	s.startWorkers()
	go s.runReaper()

	// Accept connections until shutdown
	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.Shutdown:
				// Expected error during shutdown (listener was closed)
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection", "error", err)
				continue
			}
		}

		// Disable Nagle's algorithm: frames are small and latency-sensitive.
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		cm := newClientManager(s, tcpConn)

		s.clientsMu.Lock()
		s.clients[cm] = struct{}{}
		s.clientsMu.Unlock()

		s.activeConns.Add(1)
		currentConns := s.ConnCount.Add(1)
		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveClients(currentConns)
		}

		logger.Debug("connection accepted", "client_addr", cm.addr, "active", currentConns)

		go func() {
			defer func() {
				s.activeConns.Done()
				active := s.ConnCount.Add(-1)
				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveClients(active)
				}
				logger.Debug("connection closed", "client_addr", cm.addr, "active", active)
			}()
			cm.run()
		}()
	}
}

// initiateShutdown signals the server to begin graceful shutdown.
// Safe to call multiple times and from multiple goroutines.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated")

		close(s.Shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", "error", err)
			}
		}
		s.listenerMu.Unlock()

		// Close the ingress queue: workers drain what is queued, then exit.
		s.ingress.Close()

		// Interrupt blocking reads so connection loops notice the shutdown.
		deadline := time.Now().Add(100 * time.Millisecond)
		s.clientsMu.Lock()
		for cm := range s.clients {
			if err := cm.conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", "client_addr", cm.addr, "error", err)
			}
		}
		s.clientsMu.Unlock()
	})
}

// gracefulShutdown waits for workers and connections to finish or for the
// shutdown timeout to pass, force-closing whatever remains.
func (s *Server) gracefulShutdown() error {
	activeCount := s.ConnCount.Load()
	logger.Info("graceful shutdown: waiting for active connections",
		"active", activeCount, "timeout", s.Config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
		return nil

	case <-time.After(s.Config.ShutdownTimeout):
		remaining := s.ConnCount.Load()
		logger.Warn("shutdown timeout exceeded - forcing closure", "active", remaining)

		s.clientsMu.Lock()
		for cm := range s.clients {
			_ = cm.conn.Close()
		}
		s.clientsMu.Unlock()

		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// Stop initiates graceful shutdown and waits for completion or ctx expiry.
// Safe to call multiple times and concurrently with Serve.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runReaper periodically discards client managers whose connection died.
// The sweep itself never fails; panics inside stats collection would be a
// bug in this package, not in handlers, so no recovery is attempted.
func (s *Server) runReaper() {
	ticker := time.NewTicker(s.Config.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.Shutdown:
			return
		case <-ticker.C:
			s.reapDeadClients()
		}
	}
}

// reapDeadClients removes dead client managers from the live set.
func (s *Server) reapDeadClients() {
	var reaped int
	s.clientsMu.Lock()
	for cm := range s.clients {
		if !cm.isAlive() {
			delete(s.clients, cm)
			reaped++
		}
	}
	s.clientsMu.Unlock()

	if reaped > 0 {
		logger.Debug("reaped dead clients", "count", reaped)
		if s.metrics != nil {
			for i := 0; i < reaped; i++ {
				s.metrics.RecordClientReaped()
			}
		}
	}
}

// Addr returns the address the server is listening on. It blocks until the
// listener is ready, making it safe for tests using port 0.
func (s *Server) Addr() string {
	<-s.ListenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the actual listening port. Unlike Addr, it does not block:
// before the listener is bound it returns the configured port.
func (s *Server) Port() int {
	s.listenerMu.RLock()
	l := s.listener
	s.listenerMu.RUnlock()

	if l == nil {
		return s.Config.Port
	}
	if tcp, ok := l.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.Config.Port
}

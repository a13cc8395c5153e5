package server

// ServerStats is the snapshot returned by the _getStats built-in.
type ServerStats struct {
	// IngressQueueLength is the number of queries waiting for a worker.
	IngressQueueLength int

	// Clients holds one entry per live client connection.
	Clients []ClientStats
}

// ClientStats describes a single client connection.
type ClientStats struct {
	// Addr is the remote address of the connection.
	Addr string

	// OutgoingQueueLength is the number of responses waiting to be written.
	OutgoingQueueLength int

	// QueriesReceived counts queries decoded from this connection.
	QueriesReceived int64

	// ResponsesReturned counts responses written to this connection.
	ResponsesReturned int64
}

// snapshotStats collects the stats snapshot served by _getStats.
func (s *Server) snapshotStats() ServerStats {
	stats := ServerStats{
		IngressQueueLength: s.ingress.Len(),
	}

	s.clientsMu.Lock()
	for cm := range s.clients {
		stats.Clients = append(stats.Clients, cm.stats())
	}
	s.clientsMu.Unlock()

	return stats
}

package server

// Built-in handler names. All names starting with "_" are reserved for the
// framework; user registrations of such names are rejected.
const (
	// PingHandler echoes an int32 back to the caller.
	PingHandler = "_ping"

	// StatsHandler returns a ServerStats snapshot. Its bool input is ignored.
	StatsHandler = "_getStats"
)

// registerBuiltins pre-registers the framework probes. Called from New,
// before any user registration can collide with these names.
func (s *Server) registerBuiltins() {
	ping := func(n int32) (int32, error) {
		return n, nil
	}
	if err := s.register(PingHandler, wrapTyped(s, ping), true); err != nil {
		panic("wirecall: builtin registration failed: " + err.Error())
	}

	getStats := func(_ bool) (ServerStats, error) {
		return s.snapshotStats(), nil
	}
	if err := s.register(StatsHandler, wrapTyped(s, getStats), true); err != nil {
		panic("wirecall: builtin registration failed: " + err.Error())
	}
}

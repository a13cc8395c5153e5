// Package pending implements the client-side dispatch-correlation table: the
// piece that turns the asynchronous wire protocol into a synchronous call.
//
// Every outbound query registers a one-shot slot keyed by its dispatch id.
// The connection reader completes slots as responses arrive; callers block in
// Get until their slot completes or the hard query timeout elapses. Responses
// for ids with no slot (the caller already gave up) are dropped silently.
package pending

import (
	"sync"
	"time"

	"github.com/marmos91/wirecall/pkg/wire"
)

// TimeoutMessage is the error message carried by a synthesized timeout
// response. The client maps it back to its timeout error.
const TimeoutMessage = "timeout"

// slot is a one-shot completion cell: a channel closed exactly once, the
// response stored before the close, and the originating query's start time.
type slot struct {
	done      chan struct{}
	resp      *wire.Response
	completed bool
	created   time.Time
}

// Table maps dispatch ids to in-flight request slots.
// All methods are safe for concurrent use.
type Table struct {
	mu          sync.Mutex
	slots       map[int32]*slot
	hardTimeout time.Duration
}

// NewTable creates a table whose Get calls wait at most hardTimeout measured
// from the matching Add.
func NewTable(hardTimeout time.Duration) *Table {
	return &Table{
		slots:       make(map[int32]*slot),
		hardTimeout: hardTimeout,
	}
}

// Add registers a slot for dispatch. Dispatch ids are unique within a client
// lifetime, so an existing slot under the same id is a caller bug; the old
// slot is replaced and its waiter will observe a timeout.
func (t *Table) Add(dispatch int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.slots[dispatch] = &slot{
		done:    make(chan struct{}),
		created: time.Now(),
	}
}

// Set completes the slot for dispatch with resp and wakes its waiter.
// A missing slot (stale response after timeout, or a response the server
// invented) is a silent no-op. Completing a slot twice is also a no-op.
func (t *Table) Set(dispatch int32, resp *wire.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[dispatch]
	if !ok || s.completed {
		return
	}
	s.resp = resp
	s.completed = true
	close(s.done)
}

// Get waits for the response to dispatch, up to the hard timeout minus the
// time already elapsed since Add. On expiry it returns a synthesized timeout
// response carrying the requested dispatch id. The slot is removed in every
// case, so the table never leaks entries for completed calls.
func (t *Table) Get(dispatch int32) *wire.Response {
	t.mu.Lock()
	s, ok := t.slots[dispatch]
	t.mu.Unlock()

	if !ok {
		return timeoutResponse(dispatch)
	}

	remaining := t.hardTimeout - time.Since(s.created)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > t.hardTimeout {
		remaining = t.hardTimeout
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.C:
	}

	t.mu.Lock()
	delete(t.slots, dispatch)
	completed := s.completed
	resp := s.resp
	t.mu.Unlock()

	// A response that raced the timer still wins.
	if completed {
		return resp
	}
	return timeoutResponse(dispatch)
}

// Delete removes the slot for dispatch without completing it. Idempotent.
func (t *Table) Delete(dispatch int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, dispatch)
}

// Len returns the number of in-flight slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// FailAll completes every outstanding slot with a failure response carrying
// msg. Used when the client connection tears down so blocked callers do not
// wait out their full timeout against a dead socket.
func (t *Table) FailAll(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for dispatch, s := range t.slots {
		if s.completed {
			continue
		}
		s.resp = &wire.Response{
			OK:       false,
			Dispatch: dispatch,
			ErrorMsg: msg,
		}
		s.completed = true
		close(s.done)
	}
}

func timeoutResponse(dispatch int32) *wire.Response {
	return &wire.Response{
		OK:       false,
		Dispatch: dispatch,
		ErrorMsg: TimeoutMessage,
	}
}

package pending

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wirecall/pkg/wire"
)

func TestSetCompletesGet(t *testing.T) {
	table := NewTable(5 * time.Second)
	table.Add(1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		table.Set(1, &wire.Response{OK: true, Dispatch: 1, Data: []byte("pong")})
	}()

	resp := table.Get(1)
	require.NotNil(t, resp)
	assert.True(t, resp.OK)
	assert.EqualValues(t, 1, resp.Dispatch)
	assert.Equal(t, []byte("pong"), resp.Data)
	assert.Equal(t, 0, table.Len(), "Get removes the slot")
}

func TestSetBeforeGet(t *testing.T) {
	table := NewTable(5 * time.Second)
	table.Add(2)
	table.Set(2, &wire.Response{OK: false, Dispatch: 2, ErrorMsg: "boom"})

	resp := table.Get(2)
	assert.False(t, resp.OK)
	assert.Equal(t, "boom", resp.ErrorMsg)
}

func TestGetTimesOut(t *testing.T) {
	table := NewTable(80 * time.Millisecond)
	table.Add(3)

	start := time.Now()
	resp := table.Get(3)
	elapsed := time.Since(start)

	assert.False(t, resp.OK)
	assert.Equal(t, TimeoutMessage, resp.ErrorMsg)
	assert.EqualValues(t, 3, resp.Dispatch, "timeout response carries the requested dispatch id")
	assert.GreaterOrEqual(t, elapsed, 70*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, 0, table.Len())
}

func TestGetWindowAlreadySpent(t *testing.T) {
	table := NewTable(30 * time.Millisecond)
	table.Add(4)

	// Burn the whole timeout window before calling Get.
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	resp := table.Get(4)
	elapsed := time.Since(start)

	assert.Equal(t, TimeoutMessage, resp.ErrorMsg)
	assert.Less(t, elapsed, 25*time.Millisecond, "Get must not block when the window is already spent")
}

func TestGetUnknownDispatch(t *testing.T) {
	table := NewTable(time.Second)

	resp := table.Get(99)
	assert.False(t, resp.OK)
	assert.Equal(t, TimeoutMessage, resp.ErrorMsg)
	assert.EqualValues(t, 99, resp.Dispatch)
}

func TestStaleSetIsNoOp(t *testing.T) {
	table := NewTable(time.Second)

	// No slot registered: Set must neither panic nor leave residue.
	table.Set(7, &wire.Response{OK: true, Dispatch: 7})
	assert.Equal(t, 0, table.Len())

	// Same after a slot lived and died.
	table.Add(8)
	table.Set(8, &wire.Response{OK: true, Dispatch: 8})
	_ = table.Get(8)
	table.Set(8, &wire.Response{OK: true, Dispatch: 8})
	assert.Equal(t, 0, table.Len())
}

func TestDoubleSetKeepsFirstResponse(t *testing.T) {
	table := NewTable(time.Second)
	table.Add(5)

	table.Set(5, &wire.Response{OK: true, Dispatch: 5, Data: []byte("first")})
	table.Set(5, &wire.Response{OK: true, Dispatch: 5, Data: []byte("second")})

	resp := table.Get(5)
	assert.Equal(t, []byte("first"), resp.Data)
}

func TestDeleteIdempotent(t *testing.T) {
	table := NewTable(time.Second)
	table.Add(6)
	table.Delete(6)
	table.Delete(6)
	assert.Equal(t, 0, table.Len())
}

func TestFailAllWakesWaiters(t *testing.T) {
	table := NewTable(10 * time.Second)

	const n = 8
	for i := int32(0); i < n; i++ {
		table.Add(i)
	}

	var wg sync.WaitGroup
	results := make(chan *wire.Response, n)
	for i := int32(0); i < n; i++ {
		wg.Add(1)
		go func(d int32) {
			defer wg.Done()
			results <- table.Get(d)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	table.FailAll("connection closed")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("FailAll did not wake blocked waiters")
	}

	close(results)
	for resp := range results {
		assert.False(t, resp.OK)
		assert.Equal(t, "connection closed", resp.ErrorMsg)
	}
}

func TestConcurrentAddSetGet(t *testing.T) {
	table := NewTable(2 * time.Second)

	const calls = 200
	var wg sync.WaitGroup
	for i := int32(0); i < calls; i++ {
		wg.Add(1)
		go func(d int32) {
			defer wg.Done()
			table.Add(d)
			go table.Set(d, &wire.Response{OK: true, Dispatch: d})
			resp := table.Get(d)
			assert.EqualValues(t, d, resp.Dispatch)
			assert.True(t, resp.OK)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, table.Len())
}

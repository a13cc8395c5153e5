package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := NewBounded[int](8)

	for i := 0; i < 5; i++ {
		require.True(t, q.TryEnqueue(i))
	}

	for i := 0; i < 5; i++ {
		v, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTryEnqueueFullReturnsFalse(t *testing.T) {
	q := NewBounded[string](2)

	assert.True(t, q.TryEnqueue("a"))
	assert.True(t, q.TryEnqueue("b"))
	assert.False(t, q.TryEnqueue("c"), "enqueue on a full queue must fail without blocking")
	assert.Equal(t, 2, q.Len())

	// Draining one slot makes room again.
	_, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.True(t, q.TryEnqueue("c"))
}

func TestDequeueTimeout(t *testing.T) {
	q := NewBounded[int](1)

	start := time.Now()
	_, ok := q.Dequeue(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestDequeueZeroTimeoutPolls(t *testing.T) {
	q := NewBounded[int](1)

	_, ok := q.Dequeue(0)
	assert.False(t, ok)

	require.True(t, q.TryEnqueue(7))
	v, ok := q.Dequeue(0)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestDequeueWakesOnEnqueue(t *testing.T) {
	q := NewBounded[int](1)

	done := make(chan int, 1)
	go func() {
		v, ok := q.Dequeue(5 * time.Second)
		if ok {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, q.TryEnqueue(99))

	select {
	case v := <-done:
		assert.Equal(t, 99, v)
	case <-time.After(time.Second):
		t.Fatal("blocked consumer was not woken by enqueue")
	}
}

func TestCloseWakesBlockedConsumers(t *testing.T) {
	q := NewBounded[int](1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Dequeue(10 * time.Second)
			assert.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked consumers")
	}
}

func TestCloseDrainsRemainingItems(t *testing.T) {
	q := NewBounded[int](4)
	require.True(t, q.TryEnqueue(1))
	require.True(t, q.TryEnqueue(2))

	q.Close()

	assert.False(t, q.TryEnqueue(3), "enqueue after close must fail")

	v, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Dequeue(10 * time.Millisecond)
	assert.False(t, ok, "closed and drained queue must return false")
}

func TestCloseIdempotent(t *testing.T) {
	q := NewBounded[int](1)
	q.Close()
	q.Close()
	assert.True(t, q.Closed())
}

func TestConcurrentProducersConsumers(t *testing.T) {
	const (
		producers    = 8
		perProducer  = 200
		totalItems   = producers * perProducer
		consumerPool = 4
	)

	q := NewBounded[int](64)

	var produced sync.WaitGroup
	var enqueuedCount, droppedCount, consumedCount int64
	var countMu sync.Mutex

	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func() {
			defer produced.Done()
			for i := 0; i < perProducer; i++ {
				if q.TryEnqueue(i) {
					countMu.Lock()
					enqueuedCount++
					countMu.Unlock()
				} else {
					countMu.Lock()
					droppedCount++
					countMu.Unlock()
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	var consumed sync.WaitGroup
	stop := make(chan struct{})
	for c := 0; c < consumerPool; c++ {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			for {
				if _, ok := q.Dequeue(20 * time.Millisecond); ok {
					countMu.Lock()
					consumedCount++
					countMu.Unlock()
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	produced.Wait()
	// Let consumers drain whatever made it into the queue.
	time.Sleep(200 * time.Millisecond)
	close(stop)
	consumed.Wait()

	countMu.Lock()
	defer countMu.Unlock()
	assert.Equal(t, enqueuedCount, consumedCount, "every enqueued item is consumed exactly once")
	assert.Equal(t, int64(totalItems), enqueuedCount+droppedCount)
	assert.Equal(t, 0, q.Len())
}

func TestNewBoundedRejectsNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { NewBounded[int](0) })
	assert.Panics(t, func() { NewBounded[int](-1) })
}

package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := NewQueue[string]()

	require.True(t, q.Enqueue("a"), "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "a", got)
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()

	for i := 1; i <= 3; i++ {
		q.Enqueue(i)
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "queue should be empty")
}

func TestQueue_TryDequeue_Empty(t *testing.T) {
	q := NewQueue[int]()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestQueue_Enqueue_AfterClose(t *testing.T) {
	q := NewQueue[int]()
	q.Close()

	assert.False(t, q.Enqueue(1), "enqueue after close should return false")
	assert.True(t, q.Drained())
}

func TestQueue_Close_KeepsBufferedItems(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Close()

	assert.False(t, q.Drained(), "closed queue with items is not drained")

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 1, got)
	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 2, got)

	assert.True(t, q.Drained())
}

func TestQueue_Close_Idempotent(t *testing.T) {
	q := NewQueue[int]()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := NewQueue[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(7)
	}()

	select {
	case <-q.Wait():
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, 7, got)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestQueue_Wait_FiresAfterClose(t *testing.T) {
	q := NewQueue[int]()
	q.Close()

	for i := 0; i < 3; i++ {
		select {
		case <-q.Wait():
		case <-time.After(100 * time.Millisecond):
			t.Fatal("closed queue should always signal")
		}
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())

	// Per-producer order is preserved.
	last := make(map[int]int)
	for {
		v, ok := q.TryDequeue()
		if !ok {
			break
		}
		producer := v / perProducer
		if prev, seen := last[producer]; seen {
			assert.Less(t, prev, v)
		}
		last[producer] = v
	}
	assert.Len(t, last, producers)
}

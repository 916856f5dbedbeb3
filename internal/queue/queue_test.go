package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	q := NewInMemoryQueue()

	require.NoError(t, q.Push(&Task{ID: "1", URL: "http://x/1", Retailer: "amazon"}))
	assert.Equal(t, 1, q.Size())

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)
	assert.Equal(t, 0, q.Size())
}

func TestPopOrderedByPriority(t *testing.T) {
	q := NewInMemoryQueue()

	require.NoError(t, q.Push(&Task{ID: "low", Priority: 1}))
	require.NoError(t, q.Push(&Task{ID: "high", Priority: 10}))
	require.NoError(t, q.Push(&Task{ID: "mid", Priority: 5}))

	ctx := context.Background()
	for _, want := range []string{"high", "mid", "low"} {
		task, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, task.ID)
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue()

	result := make(chan *Task)
	go func() {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		result <- task
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&Task{ID: "later"}))

	select {
	case task := <-result:
		assert.Equal(t, "later", task.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up on Push")
	}
}

func TestPopCancelledContext(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPopCancelledContextRepeated(t *testing.T) {
	q := NewInMemoryQueue()

	for i := 0; i < 500; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, err := q.Pop(ctx)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}

	// The queue must still be usable afterwards.
	require.NoError(t, q.Push(&Task{ID: "after"}))
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", task.ID)
}

func TestClosedQueue(t *testing.T) {
	q := NewInMemoryQueue()
	require.NoError(t, q.Push(&Task{ID: "1"}))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{ID: "2"}), ErrQueueClosed)

	// Tasks queued before Close still drain.
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tripNote struct {
	UserID  int64
	Message string
}

func TestQueueDeliversTypedPayload(t *testing.T) {
	got := make(chan tripNote, 1)
	q := NewQueue("test", func(ctx context.Context, job Job[tripNote]) error {
		got <- job.Payload
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	err := q.Enqueue(Job[tripNote]{ID: "j-1", Type: "trip_update", Payload: tripNote{UserID: 4, Message: "departing"}})
	require.NoError(t, err)

	select {
	case note := <-got:
		assert.Equal(t, int64(4), note.UserID)
		assert.Equal(t, "departing", note.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job[tripNote]) error {
		return nil
	}, QueueConfig{})

	err := q.Enqueue(Job[tripNote]{ID: "j-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var mu sync.Mutex
	attempts := []int{}
	done := make(chan struct{})

	q := NewQueue("retry", func(ctx context.Context, job Job[tripNote]) error {
		mu.Lock()
		attempts = append(attempts, job.Attempt)
		mu.Unlock()
		if job.Attempt == 0 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[tripNote]{ID: "j-1"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never retried")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestQueueReportsDepth(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	depths := []int{}

	q := NewQueue("depth", func(ctx context.Context, job Job[tripNote]) error {
		<-release
		return nil
	}, QueueConfig{
		Workers:    1,
		BufferSize: 4,
		OnDepth: func(depth int) {
			mu.Lock()
			depths = append(depths, depth)
			mu.Unlock()
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job[tripNote]{ID: "j"}))
	}
	close(release)

	deadline := time.After(2 * time.Second)
	for q.Depth() > 0 {
		select {
		case <-deadline:
			t.Fatal("queue never drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
	// Stop waits for the workers, so every depth report has landed.
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, depths)
	// Backlog was observed while the worker was held, and the final report
	// lands back at zero once everything drains.
	assert.GreaterOrEqual(t, maxDepth(depths), 1)
	assert.Equal(t, 0, depths[len(depths)-1])
}

func maxDepth(depths []int) int {
	max := 0
	for _, d := range depths {
		if d > max {
			max = d
		}
	}
	return max
}

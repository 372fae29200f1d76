package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestQueueProcessesEnqueuedJobs(t *testing.T) {
	var processed uint64
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddUint64(&processed, 1)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: fmt.Sprintf("job-%d", i), Type: "noop"}))
	}

	waitFor(t, func() bool { return atomic.LoadUint64(&processed) == 5 })
	waitFor(t, func() bool { return q.Stats().Completed == 5 })
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "job-1", Type: "noop"})
	require.Error(t, err)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts uint64
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddUint64(&attempts, 1) < 3 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	waitFor(t, func() bool { return q.Stats().Completed == 1 })
	assert.Equal(t, uint64(3), atomic.LoadUint64(&attempts))
	assert.Zero(t, q.Stats().Failed)
}

func TestQueueCountsExhaustedRetriesAsFailed(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return fmt.Errorf("permanent failure")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "broken"}))

	waitFor(t, func() bool { return q.Stats().Failed == 1 })
	assert.Zero(t, q.Stats().Completed)
}

func TestQueueUrgentJobsJumpTheLine(t *testing.T) {
	var mu sync.Mutex
	var order []string
	release := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.ID == "blocker" {
			<-release
			return nil
		}
		mu.Lock()
		order = append(order, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 10})
	q.Start(context.Background())
	defer q.Stop()

	// Occupy the single worker, then stack both lanes behind it.
	require.NoError(t, q.Enqueue(Job{ID: "blocker", Type: "noop"}))
	waitFor(t, func() bool { return q.Stats().Active == 1 })
	require.NoError(t, q.Enqueue(Job{ID: "normal", Type: "noop", Priority: PriorityNormal}))
	require.NoError(t, q.Enqueue(Job{ID: "critical", Type: "noop", Priority: PriorityCritical}))
	close(release)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"critical", "normal"}, order)
}

func TestQueueDelayedJobRunsAfterDelay(t *testing.T) {
	var processed uint64
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddUint64(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "noop", Delay: 20 * time.Millisecond}))
	assert.Zero(t, atomic.LoadUint64(&processed))

	waitFor(t, func() bool { return atomic.LoadUint64(&processed) == 1 })
}

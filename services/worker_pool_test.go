package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbridge/pushbridge/config"
	"github.com/pushbridge/pushbridge/logger"
)

func init() {
	logger.IsTest = true
}

func testPoolConfig() config.WorkerPoolConfig {
	return config.WorkerPoolConfig{
		MaxWorkers:             2,
		QueueSize:              10,
		ShutdownTimeoutSeconds: 5,
	}
}

func TestWorkerPool_SubmitAndExecute(t *testing.T) {
	pool := NewWorkerPool(testPoolConfig())
	pool.Start()
	defer pool.Shutdown(context.Background())

	var executed int32
	done := make(chan struct{})

	submitted := pool.Submit(Job{
		Name: "test-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			close(done)
			return nil
		},
	})

	require.True(t, submitted, "Job should be accepted")

	select {
	case <-done:
		// Job completed
	case <-time.After(2 * time.Second):
		t.Fatal("Job did not execute within timeout")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&executed))
}

func TestWorkerPool_SubmitFunc(t *testing.T) {
	pool := NewWorkerPool(testPoolConfig())
	pool.Start()
	defer pool.Shutdown(context.Background())

	done := make(chan struct{})
	accepted := pool.SubmitFunc("callback-job", func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.True(t, accepted)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitFunc job did not execute within timeout")
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	cfg := config.WorkerPoolConfig{
		MaxWorkers:             1,
		QueueSize:              2,
		ShutdownTimeoutSeconds: 5,
	}

	pool := NewWorkerPool(cfg)
	pool.Start()
	defer pool.Shutdown(context.Background())

	// Block the worker
	blocker := make(chan struct{})
	pool.Submit(Job{
		Name: "blocker",
		Execute: func(ctx context.Context) error {
			<-blocker
			return nil
		},
	})

	// Fill the queue
	time.Sleep(10 * time.Millisecond) // Let worker pick up blocker
	pool.Submit(Job{Name: "queued-1", Execute: func(ctx context.Context) error { return nil }})
	pool.Submit(Job{Name: "queued-2", Execute: func(ctx context.Context) error { return nil }})

	// This should be dropped
	dropped := !pool.Submit(Job{Name: "overflow", Execute: func(ctx context.Context) error { return nil }})
	assert.True(t, dropped, "Job should be dropped when queue is full")

	close(blocker)
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	pool := NewWorkerPool(testPoolConfig())
	pool.Start()

	var completed int32

	pool.Submit(Job{
		Name: "slow-job",
		Execute: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		},
	})

	// Give time for job to be picked up
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := pool.Shutdown(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&completed), "Job should complete during shutdown")
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	cfg := config.WorkerPoolConfig{
		MaxWorkers:             1,
		QueueSize:              10,
		ShutdownTimeoutSeconds: 1,
	}

	pool := NewWorkerPool(cfg)
	pool.Start()

	jobDone := make(chan struct{})
	defer close(jobDone)

	// Job ignores its context to simulate an uncooperative unit of work
	pool.Submit(Job{
		Name: "very-slow-job",
		Execute: func(ctx context.Context) error {
			select {
			case <-jobDone:
				return nil
			case <-time.After(10 * time.Second):
				return nil
			}
		},
	})

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.Error(t, err, "Shutdown should timeout")
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestWorkerPool_DoubleStart(t *testing.T) {
	pool := NewWorkerPool(testPoolConfig())
	pool.Start()
	pool.Start() // Should be idempotent
	defer pool.Shutdown(context.Background())

	assert.True(t, pool.IsRunning())
}

func TestWorkerPool_JobErrorDoesNotStopWorkers(t *testing.T) {
	cfg := config.WorkerPoolConfig{
		MaxWorkers:             1,
		QueueSize:              10,
		ShutdownTimeoutSeconds: 5,
	}

	pool := NewWorkerPool(cfg)
	pool.Start()
	defer pool.Shutdown(context.Background())

	var executed int32

	pool.Submit(Job{
		Name: "error-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			return assert.AnError
		},
	})

	done := make(chan struct{})
	pool.Submit(Job{
		Name: "success-job",
		Execute: func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			close(done)
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Second job did not execute")
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&executed), "Both jobs should execute")
}

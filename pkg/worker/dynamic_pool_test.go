package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/gotube/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDynamicWorkerPool(t *testing.T) {
	tests := []struct {
		name        string
		config      *DynamicWorkerPoolConfig
		expectError bool
	}{
		{name: "nil config uses default", config: nil},
		{name: "valid config", config: &DynamicWorkerPoolConfig{MinWorkers: 1, MaxWorkers: 4, QueueSize: 10}},
		{name: "equal bounds", config: &DynamicWorkerPoolConfig{MinWorkers: 2, MaxWorkers: 2, QueueSize: 10}},
		{name: "zero min workers", config: &DynamicWorkerPoolConfig{MinWorkers: 0, MaxWorkers: 4, QueueSize: 10}, expectError: true},
		{name: "max below min", config: &DynamicWorkerPoolConfig{MinWorkers: 4, MaxWorkers: 2, QueueSize: 10}, expectError: true},
		{name: "zero queue size", config: &DynamicWorkerPoolConfig{MinWorkers: 1, MaxWorkers: 4, QueueSize: 0}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewDynamicWorkerPool(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, pool)
		})
	}
}

func newTestDynamicPool(t *testing.T) *DynamicWorkerPool {
	t.Helper()
	pool, err := NewDynamicWorkerPool(&DynamicWorkerPoolConfig{
		MinWorkers:    2,
		MaxWorkers:    6,
		QueueSize:     20,
		SubmitTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestDynamicWorkerPool_Scaling(t *testing.T) {
	pool := newTestDynamicPool(t)

	assert.ErrorIs(t, pool.ScaleUp(4), types.ErrPoolNotRunning, "scaling a stopped pool")

	require.NoError(t, pool.Start(context.Background()))
	assert.Equal(t, 2, pool.GetCurrentWorkers())
	assert.Equal(t, 2, pool.GetMinWorkers())
	assert.Equal(t, 6, pool.GetMaxWorkers())

	tests := []struct {
		name        string
		scale       func() error
		expectError bool
		expectSize  int
	}{
		{name: "up beyond max", scale: func() error { return pool.ScaleUp(7) }, expectError: true, expectSize: 2},
		{name: "up to same size", scale: func() error { return pool.ScaleUp(2) }, expectError: true, expectSize: 2},
		{name: "up", scale: func() error { return pool.ScaleUp(5) }, expectSize: 5},
		{name: "down below min", scale: func() error { return pool.ScaleDown(1) }, expectError: true, expectSize: 5},
		{name: "down to same size", scale: func() error { return pool.ScaleDown(5) }, expectError: true, expectSize: 5},
		{name: "down", scale: func() error { return pool.ScaleDown(3) }, expectSize: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scale()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectSize, pool.Size())
		})
	}
}

func TestDynamicWorkerPool_ExecutesAfterScaling(t *testing.T) {
	pool := newTestDynamicPool(t)
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.ScaleUp(6))
	require.NoError(t, pool.ScaleDown(2))

	const taskCount = 30
	var wg sync.WaitGroup
	wg.Add(taskCount)
	for i := 0; i < taskCount; i++ {
		require.NoError(t, pool.Submit(NewBasicTask(func(ctx context.Context) error {
			wg.Done()
			return nil
		})))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not complete")
	}

	stats := pool.Stats()
	assert.Equal(t, 2, stats.PoolSize)
	assert.Equal(t, 20, stats.QueueCapacity)
}

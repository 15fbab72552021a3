package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExecuteKeepsInputOrder(t *testing.T) {
	pool := NewPool(4, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * n, nil
	})

	tasks := pool.Execute(context.Background(), []int{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.Len(t, tasks, 9)
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		assert.Equal(t, i+1, task.Input)
		assert.Equal(t, (i+1)*(i+1), task.Result)
		assert.NoError(t, task.Err)
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	pool := NewPool(3, func(_ context.Context, _ string) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	pool.Execute(context.Background(), make([]string, 12))
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestExecuteCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	pool := NewPool(2, func(_ context.Context, path string) (int, error) {
		if path == "bad.txt" {
			return 0, boom
		}
		return len(path), nil
	})

	tasks := pool.Execute(context.Background(), []string{"a.txt", "bad.txt", "cc.txt"})
	failed := Failed(tasks)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Equal(t, 6, tasks[2].Result)
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	pool := NewPool(2, func(_ context.Context, _ int) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	tasks := pool.Execute(ctx, []int{1, 2, 3, 4})
	skipped := 0
	for _, task := range tasks {
		if errors.Is(task.Err, context.Canceled) {
			skipped++
		}
	}
	assert.Equal(t, len(tasks), skipped+int(calls.Load()))
}

func TestExecuteEmpty(t *testing.T) {
	pool := NewPool(0, func(_ context.Context, n int) (int, error) { return n, nil })
	assert.Empty(t, pool.Execute(context.Background(), nil))
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, Batch([]int{1, 2}, 0))
	assert.Nil(t, Batch([]int{}, 3))
}

package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_AllSucceed(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}
	var seen int64

	res, err := Runner{Workers: 2}.Run(context.Background(), paths, func(ctx context.Context, path string) error {
		atomic.AddInt64(&seen, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Processed)
	assert.Empty(t, res.Failed)
	assert.NoError(t, res.Err())
	assert.EqualValues(t, 5, seen)
}

func TestRunner_CollectsFailures(t *testing.T) {
	boom := errors.New("boom")
	res, err := Runner{Workers: 3}.Run(context.Background(), []string{"ok", "bad", "ok2"}, func(ctx context.Context, path string) error {
		if path == "bad" {
			return boom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad", res.Failed[0].Path)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Contains(t, res.Err().Error(), "bad: boom")
}

func TestRunner_FailFast(t *testing.T) {
	boom := errors.New("boom")
	var started int64

	paths := make([]string, 50)
	for i := range paths {
		paths[i] = "p"
	}
	paths[0] = "bad"

	res, err := Runner{Workers: 1, FailFast: true}.Run(context.Background(), paths, func(ctx context.Context, path string) error {
		atomic.AddInt64(&started, 1)
		if path == "bad" {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.Len(t, res.Failed, 1)
	assert.Less(t, atomic.LoadInt64(&started), int64(50))
}

func TestRunner_LimitsConcurrency(t *testing.T) {
	var inFlight, peak int64
	paths := []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	_, err := Runner{Workers: 2}.Run(context.Background(), paths, func(ctx context.Context, path string) error {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int64(2))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Runner{Workers: 2}.Run(ctx, []string{"a", "b"}, func(ctx context.Context, path string) error {
		t.Error("job should not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Processed)
}

func TestRunner_ZeroWorkers(t *testing.T) {
	res, err := Runner{}.Run(context.Background(), []string{"a"}, func(ctx context.Context, path string) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

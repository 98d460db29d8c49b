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

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var running, peak atomic.Int32

	var results []<-chan error
	for i := 0; i < 8; i++ {
		results = append(results, p.Go(context.Background(), func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	for _, ch := range results {
		require.NoError(t, <-ch)
	}
	p.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestPool_ReturnsJobError(t *testing.T) {
	p := NewPool(1)
	boom := errors.New("boom")
	err := p.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPool_ContextCancelledWhileWaiting(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	first := p.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(context.Context) error {
		t.Error("job should not run")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-first)
}

func TestNewPool_DefaultSize(t *testing.T) {
	p := NewPool(0)
	ctx := context.Background()
	for i := 0; i < DefaultSize; i++ {
		require.True(t, p.sem.TryAcquire(1))
	}
	assert.False(t, p.sem.TryAcquire(1))
	p.sem.Release(DefaultSize)
	require.NoError(t, p.Do(ctx, func(context.Context) error { return nil }))
}

package simulation

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

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRuns_ReplaceCancelsPrevious(t *testing.T) {
	runs := NewRuns()
	defer runs.Shutdown()

	started := make(chan struct{})
	first := runs.Replace(context.Background(), "delivery-1", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	second := runs.Replace(context.Background(), "delivery-1", func(ctx context.Context) {
		<-ctx.Done()
	})

	select {
	case <-first.Done():
	default:
		t.Fatal("previous run should be finished before Replace returns")
	}
	assert.True(t, runs.Active("delivery-1"))

	second.Cancel()
	waitDone(t, second)
}

func TestRuns_NeverTwoActivePerKey(t *testing.T) {
	runs := NewRuns()

	var active, maxActive atomic.Int32
	fn := func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		<-ctx.Done()
		active.Add(-1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs.Replace(context.Background(), "delivery-1", fn)
		}()
	}
	wg.Wait()
	runs.Shutdown()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, int32(0), active.Load())
}

func TestRuns_KeysAreIndependent(t *testing.T) {
	runs := NewRuns()
	defer runs.Shutdown()

	block := func(ctx context.Context) { <-ctx.Done() }
	a := runs.Replace(context.Background(), "delivery-a", block)
	runs.Replace(context.Background(), "delivery-b", block)

	assert.Equal(t, 2, runs.Len())

	runs.Cancel("delivery-b")
	assert.False(t, runs.Active("delivery-b"))
	assert.True(t, runs.Active("delivery-a"))

	select {
	case <-a.Done():
		t.Fatal("cancelling one key must not stop another")
	default:
	}
}

func TestRuns_FinishedRunReleasesKey(t *testing.T) {
	runs := NewRuns()
	defer runs.Shutdown()

	h := runs.Replace(context.Background(), "delivery-1", func(context.Context) {})
	waitDone(t, h)

	require.Eventually(t, func() bool { return runs.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, runs.Active("delivery-1"))
}

func TestRuns_CancelUnknownKey(t *testing.T) {
	runs := NewRuns()
	runs.Cancel("missing")
	assert.False(t, runs.Active("missing"))
}

func TestRuns_ParentCancellation(t *testing.T) {
	runs := NewRuns()
	defer runs.Shutdown()

	parent, cancel := context.WithCancel(context.Background())
	h := runs.Replace(parent, "delivery-1", func(ctx context.Context) { <-ctx.Done() })

	cancel()
	waitDone(t, h)
}

func TestRuns_Shutdown(t *testing.T) {
	runs := NewRuns()

	var stopped atomic.Int32
	for i := 0; i < 5; i++ {
		runs.Replace(context.Background(), fmt.Sprintf("delivery-%d", i), func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		})
	}

	runs.Shutdown()
	assert.Equal(t, int32(5), stopped.Load())
	assert.Zero(t, runs.Len())

	ran := false
	h := runs.Replace(context.Background(), "late", func(context.Context) { ran = true })
	waitDone(t, h)
	assert.False(t, ran)
}

package simulation

import (
	"context"
	"sync"
)

// Handle controls one registered run.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel asks the run to stop. It does not wait; use Done for that.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the run's function has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) stop() {
	h.cancel()
	<-h.done
}

// Runs keeps at most one active run per key.
//
// Go Learning Note — Cancel-and-Replace:
// Replace swaps the new handle in under the mutex, then cancels the old run
// and waits for its goroutine to exit before starting the new one. Two
// emitters for the same key are never alive at the same time, and the
// mutex is never held while waiting, so a slow run cannot block other keys.
type Runs struct {
	mu     sync.Mutex
	runs   map[string]*Handle
	wg     sync.WaitGroup
	closed bool
}

func NewRuns() *Runs {
	return &Runs{
		runs: make(map[string]*Handle),
	}
}

// Replace cancels the run registered under key, waits for it to finish and
// starts fn in a new goroutine with a context derived from parent. After
// Shutdown, fn is not started and the returned handle is already done.
func (r *Runs) Replace(parent context.Context, key string, fn func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		close(h.done)
		return h
	}
	prev := r.runs[key]
	r.runs[key] = h
	r.wg.Add(1)
	r.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go func() {
		defer r.wg.Done()
		defer close(h.done)
		defer r.release(key, h)
		defer cancel()
		fn(ctx)
	}()

	return h
}

// Cancel stops the run registered under key and waits for it. It is a
// no-op if nothing is registered.
func (r *Runs) Cancel(key string) {
	r.mu.Lock()
	h := r.runs[key]
	delete(r.runs, key)
	r.mu.Unlock()

	if h != nil {
		h.stop()
	}
}

// Active reports whether a run is live under key.
func (r *Runs) Active(key string) bool {
	r.mu.Lock()
	h := r.runs[key]
	r.mu.Unlock()

	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Len returns the number of registered runs.
func (r *Runs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// Shutdown cancels every run, waits for all of them and refuses new ones.
func (r *Runs) Shutdown() {
	r.mu.Lock()
	r.closed = true
	handles := make([]*Handle, 0, len(r.runs))
	for key, h := range r.runs {
		handles = append(handles, h)
		delete(r.runs, key)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	r.wg.Wait()
}

func (r *Runs) release(key string, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[key] == h {
		delete(r.runs, key)
	}
}

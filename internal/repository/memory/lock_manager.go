package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockSweepInterval = time.Second

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// LockManager is a single-process stand-in for the Redis SETNX locks. The
// delivery service holds "delivery:<id>" while it advances or cancels a
// delivery and "courier:<id>" while it assigns a courier; a lock nobody
// releases expires after its TTL.
//
// Go Learning Note — Closing a Channel to Broadcast:
// done is never sent on. Stop closes it, and every receive on a closed
// channel returns at once, so the sweeper's select sees it on its next
// iteration. sync.Once makes a second Stop a no-op instead of a panic.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	done  chan struct{}
	once  sync.Once
}

// NewLockManager starts the sweeper that drops expired keys. Call Stop when
// done with it.
func NewLockManager() *LockManager {
	lm := &LockManager{
		locks: make(map[string]lockEntry),
		done:  make(chan struct{}),
	}
	go lm.sweep(lockSweepInterval)
	return lm
}

// AcquireLock takes key for ttl and returns the holder's token. It reports
// false without error when the key is held and has not expired.
func (lm *LockManager) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := time.Now()
	if lm.heldLocked(key, now) {
		return "", false, nil
	}
	token := uuid.NewString()
	lm.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// ReleaseLock frees key only if token still owns it.
func (lm *LockManager) ReleaseLock(_ context.Context, key, token string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if entry, ok := lm.locks[key]; ok && entry.token == token {
		delete(lm.locks, key)
	}
	return nil
}

func (lm *LockManager) IsLocked(_ context.Context, key string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.heldLocked(key, time.Now()), nil
}

func (lm *LockManager) heldLocked(key string, now time.Time) bool {
	entry, ok := lm.locks[key]
	return ok && now.Before(entry.expiresAt)
}

func (lm *LockManager) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			lm.mu.Lock()
			for key := range lm.locks {
				if !lm.heldLocked(key, now) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.done:
			return
		}
	}
}

// Stop ends the sweeper. Locks keep working; expired ones are just no
// longer collected.
func (lm *LockManager) Stop() {
	lm.once.Do(func() { close(lm.done) })
}

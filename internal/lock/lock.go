// Package lock provides short-lived mutual-exclusion locks with bounded
// acquire waits. The Locker interface keeps call sites agnostic to whether
// the lock lives in-process (single instance) or in a shared store
// (multi-instance).
package lock

import (
	"errors"
	"sync"
	"time"
)

// ErrAcquireTimeout is returned when a lock cannot be obtained within the
// caller's maxWait.
var ErrAcquireTimeout = errors.New("lock acquire timed out")

// Guard represents a held lock. Release is idempotent.
type Guard interface {
	Release()
}

// Locker hands out named locks. A lock is held at most maxHold; after that
// it is forcibly released so a crashed or stalled holder cannot wedge the
// key forever.
type Locker interface {
	Acquire(key string, maxWait, maxHold time.Duration) (Guard, error)
}

// KeyedLocker is an in-process Locker backed by one semaphore per key.
type KeyedLocker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewKeyedLocker creates an empty in-process locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		sems: make(map[string]chan struct{}),
	}
}

func (l *KeyedLocker) sem(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	return sem
}

// Acquire obtains the lock for key, waiting at most maxWait. The returned
// guard auto-releases after maxHold.
func (l *KeyedLocker) Acquire(key string, maxWait, maxHold time.Duration) (Guard, error) {
	sem := l.sem(key)

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return nil, ErrAcquireTimeout
	}

	g := &keyedGuard{sem: sem}
	g.holdTimer = time.AfterFunc(maxHold, g.Release)
	return g, nil
}

type keyedGuard struct {
	sem       chan struct{}
	holdTimer *time.Timer
	once      sync.Once
}

func (g *keyedGuard) Release() {
	g.once.Do(func() {
		g.holdTimer.Stop()
		<-g.sem
	})
}

package locks

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// NativeBroker is an in-process exclusive lock broker. Each name is backed by
// a weighted semaphore of size one, whose waiters are served in the order
// they asked. A waiter whose context ends leaves the queue without ever
// holding the lock.
type NativeBroker struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

var (
	defaultBroker     *NativeBroker
	defaultBrokerOnce sync.Once
)

// NewNativeBroker returns an empty broker.
func NewNativeBroker() *NativeBroker {
	return &NativeBroker{locks: make(map[string]*semaphore.Weighted)}
}

// DefaultBroker returns the process-wide broker shared by every client that
// does not bring its own.
func DefaultBroker() *NativeBroker {
	defaultBrokerOnce.Do(func() {
		defaultBroker = NewNativeBroker()
	})
	return defaultBroker
}

// Acquire implements Locker.
func (b *NativeBroker) Acquire(ctx context.Context, name string) (Unlock, error) {
	sem := b.semaphore(name)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}, nil
}

// Backend implements Locker.
func (b *NativeBroker) Backend() Backend {
	return BackendNative
}

// Held reports whether name is currently held. Intended for diagnostics.
func (b *NativeBroker) Held(name string) bool {
	sem := b.semaphore(name)
	if sem.TryAcquire(1) {
		sem.Release(1)
		return false
	}
	return true
}

func (b *NativeBroker) semaphore(name string) *semaphore.Weighted {
	b.mu.Lock()
	defer b.mu.Unlock()

	sem, ok := b.locks[name]
	if !ok {
		sem = semaphore.NewWeighted(1)
		b.locks[name] = sem
	}
	return sem
}

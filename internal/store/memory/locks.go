package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

// keyedLocks hands out one exclusive lock per key. Waiting honours ctx.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]chan struct{})}
}

func (k *keyedLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

func (k *keyedLocks) lock(ctx context.Context, key string) error {
	select {
	case k.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for %s: %v", store.ErrUnavailable, key, ctx.Err())
	}
}

func (k *keyedLocks) unlock(key string) {
	<-k.slot(key)
}

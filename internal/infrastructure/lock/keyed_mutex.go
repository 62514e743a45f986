package lock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
)

const defaultStripes = 64

// KeyedMutex is an in-process Locker. Keys are hashed onto a fixed set of
// mutex stripes, so unrelated keys may occasionally share a stripe but a
// given key always maps to the same one. Suitable for single-instance
// deployments and tests.
type KeyedMutex struct {
	stripes []sync.Mutex
}

// NewKeyedMutex creates a KeyedMutex with the default stripe count
func NewKeyedMutex() *KeyedMutex {
	return NewKeyedMutexWithStripes(defaultStripes)
}

// NewKeyedMutexWithStripes creates a KeyedMutex with the given stripe count
func NewKeyedMutexWithStripes(stripes int) *KeyedMutex {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	return &KeyedMutex{stripes: make([]sync.Mutex, stripes)}
}

// WithLock runs fn while holding the stripe for key. The context is checked
// before fn runs so a caller that gave up waiting does not execute.
func (m *KeyedMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	stripe := &m.stripes[m.stripeFor(key)]
	stripe.Lock()
	defer stripe.Unlock()

	if err := ctx.Err(); err != nil {
		return shared.NewConcurrencyError("LOCK_CANCELLED", "Context cancelled while waiting for lock")
	}
	return fn(ctx)
}

func (m *KeyedMutex) stripeFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.stripes)))
}

var _ shared.Locker = (*KeyedMutex)(nil)

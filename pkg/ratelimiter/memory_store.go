package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// MemoryStore keeps buckets in process memory. A bucket is forgotten once it
// has been idle long enough to be full again.
type MemoryStore struct {
	mu      sync.Mutex
	buckets *cache.Cache
	now     func() time.Time
	janitor time.Duration
}

type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are swept. Zero leaves
// them in place until they are touched again.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) { ms.janitor = interval }
}

// WithClock replaces time.Now for refill arithmetic.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{now: time.Now, janitor: 5 * time.Minute}
	for _, opt := range opts {
		opt(ms)
	}
	ms.buckets = cache.New(cache.NoExpiration, ms.janitor)
	return ms
}

func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	state := bucketState{tokens: config.Capacity, lastRefill: now}
	if v, ok := ms.buckets.Get(key); ok {
		state = v.(bucketState)
	}

	state.tokens, state.lastRefill = refill(state.tokens, state.lastRefill, now, config)
	state.tokens -= tokens
	ms.buckets.Set(key, state, config.ttl())

	return state.tokens, state.lastRefill.Add(config.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.buckets.Delete(key)
	return nil
}

// Close drops every bucket.
func (ms *MemoryStore) Close() {
	ms.buckets.Flush()
}

var _ Store = (*MemoryStore)(nil)

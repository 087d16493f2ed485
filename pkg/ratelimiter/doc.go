// Package ratelimiter throttles repeated requests with a token bucket.
//
// A Bucket pairs a Config (capacity, refill rate and interval) with a Store.
// MemoryStore serves a single process; RedisStore keeps buckets in Redis so
// every panel instance sees the same counters.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client, "panel:ratelimit:"), ratelimiter.Config{
//	    Capacity:       5,
//	    RefillRate:     1,
//	    RefillInterval: time.Minute,
//	})
//
//	r.With(ratelimiter.Middleware(limiter, keyFunc)).Post("/two-factor/challenge", h.verify)
//
// A request whose key is empty is not limited. Denied requests receive 429
// with Retry-After; use WithLimitedHandler to render a custom body.
package ratelimiter

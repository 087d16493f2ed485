package redis

import "time"

// Config is loaded from REDIS_* environment variables.
type Config struct {
	// ConnectionURL has the form redis://:password@host:6379/0.
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	// RateLimitPrefix namespaces rate limiter buckets.
	RateLimitPrefix string `env:"REDIS_RATELIMIT_PREFIX" envDefault:"panel:ratelimit:"`
}

package session

import "time"

// Config controls session lifetimes and the cookie the default transport
// writes. Anonymous, authenticated and remember-me sessions each get their
// own idle timeout and absolute lifetime.
type Config struct {
	CookieName    string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	SecureCookies bool   `env:"SESSION_SECURE_COOKIES" envDefault:"false"`

	AnonIdleTimeout time.Duration `env:"SESSION_ANON_IDLE_TIMEOUT" envDefault:"30m"`
	AnonMaxLifetime time.Duration `env:"SESSION_ANON_MAX_LIFETIME" envDefault:"24h"`
	AuthIdleTimeout time.Duration `env:"SESSION_AUTH_IDLE_TIMEOUT" envDefault:"2h"`
	AuthMaxLifetime time.Duration `env:"SESSION_AUTH_MAX_LIFETIME" envDefault:"24h"`
	// RememberLifetime is used as both timeouts for remember-me logins.
	RememberLifetime time.Duration `env:"SESSION_REMEMBER_LIFETIME" envDefault:"720h"`

	// ActivityUpdateThreshold throttles LastActivityAt writes.
	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`
	// CleanupInterval applies to the in-memory store only. Zero disables it.
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	RedisPrefix     string        `env:"SESSION_REDIS_PREFIX" envDefault:"panel:session:"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		CookieName:              "sid",
		AnonIdleTimeout:         30 * time.Minute,
		AnonMaxLifetime:         24 * time.Hour,
		AuthIdleTimeout:         2 * time.Hour,
		AuthMaxLifetime:         24 * time.Hour,
		RememberLifetime:        30 * 24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
		RedisPrefix:             "panel:session:",
	}
}

func (c Config) timeouts(s *Session) (idle, max time.Duration) {
	if !s.IsAuthenticated() {
		return c.AnonIdleTimeout, c.AnonMaxLifetime
	}
	if s.Remember {
		return c.RememberLifetime, c.RememberLifetime
	}
	return c.AuthIdleTimeout, c.AuthMaxLifetime
}

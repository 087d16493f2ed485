package session

import (
	"log/slog"
	"net/http"

	"github.com/natvps/panel/pkg/cookie"
)

// Option configures a Manager.
type Option func(*Manager)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithTransport replaces the cookie transport. WithCookieManager is then
// not needed.
func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		if transport != nil {
			m.transport = transport
		}
	}
}

func WithConfig(config Config) Option {
	return func(m *Manager) { m.config = config }
}

// WithFingerprint binds sessions to a device fingerprint. A session presented
// with a different fingerprint is rejected as invalid.
func WithFingerprint(fn FingerprintFunc) Option {
	return func(m *Manager) { m.fingerprint = fn }
}

// WithCookieManager sets the cookie manager for the default transport.
func WithCookieManager(cookieMgr *cookie.Manager, opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookies = cookieMgr
		m.cookieOptions = opts
	}
}

// WithUnauthorizedHandler renders the RequireAuth rejection.
func WithUnauthorizedHandler(h http.Handler) Option {
	return func(m *Manager) {
		if h != nil {
			m.unauthorized = h
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

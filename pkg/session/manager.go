package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/natvps/panel/pkg/cookie"
	"github.com/natvps/panel/pkg/logger"
)

const (
	tokenBytes   = 32
	touchBacklog = 1000
)

// FingerprintFunc derives a device fingerprint from a request.
type FingerprintFunc func(r *http.Request) string

// Manager ties a Store to a Transport and owns the session lifecycle:
// anonymous sessions, login, the pending second factor and logout.
// Every identity change rotates the token.
type Manager struct {
	store         Store
	transport     Transport
	config        Config
	fingerprint   FingerprintFunc
	cookies       *cookie.Manager
	cookieOptions []cookie.Option
	logger        *slog.Logger
	unauthorized  http.Handler

	touches chan touch
	closed  chan struct{}
}

type touch struct {
	token string
	at    time.Time
}

// New builds a Manager. Without WithStore sessions live in memory; without
// WithTransport a cookie manager must be supplied through WithCookieManager.
func New(opts ...Option) *Manager {
	m := &Manager{
		config:       DefaultConfig(),
		logger:       slog.Default(),
		unauthorized: http.HandlerFunc(unauthorizedJSON),
		touches:      make(chan touch, touchBacklog),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	if m.transport == nil {
		if m.cookies == nil {
			panic("session: WithCookieManager or WithTransport is required")
		}
		m.transport = NewCookieTransport(m.cookies, m.config.CookieName, m.config.SecureCookies, m.cookieOptions...)
	}

	go m.recordActivity()
	return m
}

// Get loads the request's session. It fails with ErrSessionNotFound when
// the request carries no known token, ErrSessionExpired when the session is
// past its expiry and ErrInvalidSession on a fingerprint mismatch.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.Token(r)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.IsExpired() {
		return nil, ErrSessionExpired
	}
	if m.fingerprint != nil && !s.ValidateFingerprint(m.fingerprint(r)) {
		return nil, ErrInvalidSession
	}
	return s, nil
}

// Ensure returns the request's session, starting an anonymous one when
// there is none. A stale or invalid token is revoked on the client first.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Get(ctx, r)
	switch {
	case err == nil:
		if time.Since(s.LastActivityAt) >= m.config.ActivityUpdateThreshold {
			m.enqueueTouch(s.Token)
		}
		return s, nil
	case !errors.Is(err, ErrSessionNotFound):
		m.transport.Revoke(w)
	}

	if s, err = m.fresh(r); err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	if err := m.issue(w, s); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// Authenticate logs userID in. The token is always rotated so a token
// observed before login cannot be replayed afterwards.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, remember bool) (*Session, error) {
	s, err := m.getOrFresh(ctx, r)
	if err != nil {
		return nil, err
	}

	s.logout()
	s.UserID = &userID
	s.Remember = remember
	return m.rotate(ctx, w, s)
}

// StartChallenge logs out any prior identity and records ch as the pending
// second factor. The token is rotated.
func (m *Manager) StartChallenge(ctx context.Context, w http.ResponseWriter, r *http.Request, ch Challenge) (*Session, error) {
	s, err := m.getOrFresh(ctx, r)
	if err != nil {
		return nil, err
	}

	if ch.StartedAt.IsZero() {
		ch.StartedAt = time.Now()
	}
	s.logout()
	s.Challenge = &ch
	return m.rotate(ctx, w, s)
}

// CompleteChallenge turns the pending challenge into an authenticated,
// 2FA-verified session honoring the remember flag captured at login.
func (m *Manager) CompleteChallenge(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Get(ctx, r)
	if err != nil {
		return nil, err
	}
	if s.Challenge == nil {
		return nil, ErrNoChallenge
	}

	ch := *s.Challenge
	s.logout()
	s.UserID = &ch.UserID
	s.Remember = ch.Remember
	s.TwoFactorVerified = true
	return m.rotate(ctx, w, s)
}

// ClearChallenge drops the pending challenge, if any.
func (m *Manager) ClearChallenge(ctx context.Context, r *http.Request) error {
	s, err := m.Get(ctx, r)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Challenge == nil {
		return nil
	}
	s.Challenge = nil
	return m.save(ctx, s)
}

// MarkTwoFactorVerified flags the authenticated session as having satisfied
// the second factor, e.g. right after the user enabled 2FA.
func (m *Manager) MarkTwoFactorVerified(ctx context.Context, r *http.Request) error {
	s, err := m.Get(ctx, r)
	if err != nil {
		return err
	}
	if !s.IsAuthenticated() {
		return ErrSessionNotFound
	}
	s.TwoFactorVerified = true
	return m.save(ctx, s)
}

// Destroy logs the client out. Store errors are ignored: the token is
// revoked on the client regardless.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.Token(r); err == nil && token != "" {
		_ = m.store.Delete(ctx, token)
	}
	m.transport.Revoke(w)
	return nil
}

// SetValue writes key into the session data, creating an anonymous session
// when needed.
func (m *Manager) SetValue(ctx context.Context, w http.ResponseWriter, r *http.Request, key string, value any) error {
	s, err := m.Ensure(ctx, w, r)
	if err != nil {
		return err
	}
	s.Set(key, value)
	return m.save(ctx, s)
}

func (m *Manager) GetString(ctx context.Context, r *http.Request, key string) (string, bool) {
	s, err := m.Get(ctx, r)
	if err != nil {
		return "", false
	}
	return s.GetString(key)
}

func (m *Manager) DeleteValue(ctx context.Context, r *http.Request, key string) error {
	s, err := m.Get(ctx, r)
	if err != nil {
		return err
	}
	s.Delete(key)
	return m.save(ctx, s)
}

// Close stops the activity recorder after it drains queued touches.
func (m *Manager) Close() error {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

// getOrFresh returns the request's valid session or a new unsaved one.
// Callers persist it through rotate.
func (m *Manager) getOrFresh(ctx context.Context, r *http.Request) (*Session, error) {
	if s, err := m.Get(ctx, r); err == nil {
		return s, nil
	}
	return m.fresh(r)
}

// rotate stores s under a new token, drops the old one and sends the new
// token to the client.
func (m *Manager) rotate(ctx context.Context, w http.ResponseWriter, s *Session) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	old := s.Token
	s.Token = token
	idle, max := m.config.timeouts(s)
	s.ExpiresAt = expiry(s.CreatedAt, time.Now(), idle, max)
	s.Touch()

	if err := m.store.Create(ctx, s); err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	if err := m.store.Delete(ctx, old); err != nil {
		m.logger.WarnContext(ctx, "rotated session was not deleted",
			logger.Component("session"),
			logger.Error(err),
		)
	}

	if err := m.issue(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	if err := m.store.Update(ctx, s); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

func (m *Manager) issue(w http.ResponseWriter, s *Session) error {
	idle, _ := m.config.timeouts(s)
	return m.transport.Issue(w, s.Token, idle)
}

// fresh builds an anonymous session without storing it.
func (m *Manager) fresh(r *http.Request) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	var fp string
	if m.fingerprint != nil {
		fp = m.fingerprint(r)
	}

	now := time.Now()
	ttl := expiry(now, now, m.config.AnonIdleTimeout, m.config.AnonMaxLifetime).Sub(now)
	return NewSession(token, fp, ttl), nil
}

// enqueueTouch never blocks a request; touches are dropped when the
// recorder falls behind.
func (m *Manager) enqueueTouch(token string) {
	select {
	case m.touches <- touch{token: token, at: time.Now()}:
	default:
	}
}

func (m *Manager) recordActivity() {
	for {
		select {
		case t := <-m.touches:
			m.applyTouch(t)
		case <-m.closed:
			for {
				select {
				case t := <-m.touches:
					m.applyTouch(t)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) applyTouch(t touch) {
	err := m.store.Touch(context.Background(), t.token, t.at)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("session activity not recorded",
			logger.Component("session"),
			logger.Error(err),
		)
	}
}

// expiry is the earlier of the idle deadline and the absolute lifetime.
func expiry(createdAt, now time.Time, idle, max time.Duration) time.Time {
	if hard := createdAt.Add(max); hard.Before(now.Add(idle)) {
		return hard
	}
	return now.Add(idle)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

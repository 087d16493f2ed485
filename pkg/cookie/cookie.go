package cookie

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/natvps/panel/pkg/secrets"
)

const (
	minSecretLength = 32
	cookiePurpose   = "http-cookie"
)

// Manager writes and reads encrypted cookies. The first secret encrypts,
// every secret is tried on read so keys can be rotated.
type Manager struct {
	ciphers  []*secrets.AESCipher
	defaults []Option
}

// New creates a manager. The defaults (Path "/", HttpOnly, SameSite=Lax) can
// be overridden by opts, and opts by the options passed to each write.
func New(keys []string, opts ...Option) (*Manager, error) {
	keys = slices.DeleteFunc(slices.Clone(keys), func(s string) bool { return s == "" })
	if len(keys) == 0 {
		return nil, ErrNoSecret
	}

	ciphers := make([]*secrets.AESCipher, 0, len(keys))
	for i, s := range keys {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		c, err := secrets.NewCipher([]byte(s[:secrets.KeySize]), cookiePurpose)
		if err != nil {
			return nil, errors.Join(ErrNoSecret, err)
		}
		ciphers = append(ciphers, c)
	}

	defaults := []Option{
		WithPath("/"),
		WithHTTPOnly(true),
		WithSameSite(http.SameSiteLaxMode),
	}
	return &Manager{ciphers: ciphers, defaults: append(defaults, opts...)}, nil
}

func (m *Manager) build(name, value string, opts []Option) *http.Cookie {
	c := &http.Cookie{Name: name, Value: value}
	for _, opt := range m.defaults {
		opt(c)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set writes a plain cookie.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) {
	http.SetCookie(w, m.build(name, value, opts))
}

// Get reads a plain cookie.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Delete expires the cookie. Pass the options used when it was written so
// Path and Domain match.
func (m *Manager) Delete(w http.ResponseWriter, name string, opts ...Option) {
	c := m.build(name, "", opts)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// SetEncrypted seals value with the newest secret before writing it.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	sealed, err := m.ciphers[0].EncryptBytes([]byte(value))
	if err != nil {
		return err
	}
	m.Set(w, name, base64.RawURLEncoding.EncodeToString(sealed), opts...)
	return nil
}

// GetEncrypted opens a cookie written by SetEncrypted with any configured secret.
func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	encoded, err := m.Get(r, name)
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidFormat
	}

	for _, c := range m.ciphers {
		if plaintext, err := c.DecryptBytes(sealed); err == nil {
			return string(plaintext), nil
		}
	}
	return "", ErrDecryptionFailed
}

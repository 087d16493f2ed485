package session

import (
	"net/http"
	"time"

	"github.com/natvps/panel/pkg/cookie"
)

// Transport carries the session token between browser and server.
type Transport interface {
	// Token returns ErrSessionNotFound when the request carries no usable token.
	Token(r *http.Request) (string, error)
	Issue(w http.ResponseWriter, token string, ttl time.Duration) error
	Revoke(w http.ResponseWriter)
}

// CookieTransport keeps the token in an encrypted, HTTP-only cookie scoped
// to the whole site.
type CookieTransport struct {
	cookies *cookie.Manager
	name    string
	opts    []cookie.Option
}

// NewCookieTransport creates a transport. Extra options are applied after
// the defaults and may override them.
func NewCookieTransport(cookies *cookie.Manager, name string, secure bool, opts ...cookie.Option) *CookieTransport {
	base := []cookie.Option{
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if secure {
		base = append(base, cookie.WithSecure(true))
	}
	return &CookieTransport{
		cookies: cookies,
		name:    name,
		opts:    append(base, opts...),
	}
}

func (t *CookieTransport) Token(r *http.Request) (string, error) {
	token, err := t.cookies.GetEncrypted(r, t.name)
	if err != nil || token == "" {
		// Tampered and undecryptable cookies look the same as no cookie.
		return "", ErrSessionNotFound
	}
	return token, nil
}

// Issue writes the cookie with a Max-Age matching the session's idle timeout.
func (t *CookieTransport) Issue(w http.ResponseWriter, token string, ttl time.Duration) error {
	opts := append([]cookie.Option{cookie.WithMaxAge(int(ttl.Seconds()))}, t.opts...)
	return t.cookies.SetEncrypted(w, t.name, token, opts...)
}

func (t *CookieTransport) Revoke(w http.ResponseWriter) {
	t.cookies.Delete(w, t.name, t.opts...)
}

package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/natvps/panel/pkg/clientip"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(remote string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remote
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestResolver_IP(t *testing.T) {
	t.Parallel()
	res, err := clientip.NewResolver("10.0.0.0/8", "127.0.0.1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct peer", "203.0.113.5:4444", nil, "203.0.113.5"},
		{"untrusted peer ignores headers", "203.0.113.5:4444", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.5"},
		{"trusted proxy with forwarded for", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "198.51.100.7"},
		{"rightmost untrusted hop wins", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.7, 10.0.0.9"}, "198.51.100.7"},
		{"cloudflare header", "127.0.0.1:80", map[string]string{"CF-Connecting-IP": "192.0.2.10", "X-Forwarded-For": "198.51.100.7"}, "192.0.2.10"},
		{"real ip header", "127.0.0.1:80", map[string]string{"X-Real-IP": "192.0.2.11"}, "192.0.2.11"},
		{"garbage forwarded falls back to peer", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1"},
		{"ipv6 peer", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"ipv4-mapped ipv6 peer", "[::ffff:10.0.0.1]:443", map[string]string{"X-Real-IP": "192.0.2.12"}, "192.0.2.12"},
		{"peer without port", "203.0.113.9", nil, "203.0.113.9"},
		{"unparseable peer", "nonsense", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, res.IP(request(tt.remote, tt.headers)))
		})
	}
}

func TestNewResolver_Invalid(t *testing.T) {
	t.Parallel()
	_, err := clientip.NewResolver("10.0.0.0/99")
	assert.ErrorIs(t, err, clientip.ErrInvalidProxy)
	_, err = clientip.NewResolver("proxy.local")
	assert.ErrorIs(t, err, clientip.ErrInvalidProxy)

	res, err := clientip.NewFromConfig(clientip.Config{TrustedProxies: " 127.0.0.1 , , ::1"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", res.IP(request("[::1]:80", map[string]string{"X-Real-IP": "192.0.2.1"})))
}

func TestResolver_Middleware(t *testing.T) {
	t.Parallel()
	res, err := clientip.NewResolver()
	require.NoError(t, err)

	var ip, ua string
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = clientip.GetIPFromContext(r.Context())
		ua = clientip.GetUserAgentFromContext(r.Context())
	}))

	r := request("198.51.100.1:1234", map[string]string{"User-Agent": strings.Repeat("a", 600)})
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "198.51.100.1", ip)
	assert.Len(t, ua, 512)
}

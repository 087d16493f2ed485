package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/natvps/panel/pkg/cookie"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	currentSecret = "this-is-a-very-long-secret-key-32-chars-long"
	oldSecret     = "this-is-old-very-long-secret-key-32-chars-ok"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		secrets []string
		wantErr error
	}{
		{"no secrets", []string{}, cookie.ErrNoSecret},
		{"empty secrets", []string{"", ""}, cookie.ErrNoSecret},
		{"secret too short", []string{"short"}, cookie.ErrSecretTooShort},
		{"valid secret", []string{currentSecret}, nil},
		{"multiple secrets", []string{currentSecret, oldSecret}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cookie.New(tt.secrets)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// roundTrip copies cookies set on w into a fresh request.
func roundTrip(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestManager_Encrypted(t *testing.T) {
	t.Parallel()
	m, err := cookie.New([]string{currentSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, m.SetEncrypted(w, "sid", "token-value", cookie.WithMaxAge(60)))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotContains(t, cookies[0].Value, "token-value")
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 60, cookies[0].MaxAge)

	got, err := m.GetEncrypted(roundTrip(w), "sid")
	require.NoError(t, err)
	assert.Equal(t, "token-value", got)
}

func TestManager_KeyRotation(t *testing.T) {
	t.Parallel()
	oldManager, err := cookie.New([]string{oldSecret})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{currentSecret, oldSecret})
	require.NoError(t, err)
	unrelated, err := cookie.New([]string{currentSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, oldManager.SetEncrypted(w, "sid", "v"))

	got, err := rotated.GetEncrypted(roundTrip(w), "sid")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = unrelated.GetEncrypted(roundTrip(w), "sid")
	assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
}

func TestManager_GetErrors(t *testing.T) {
	t.Parallel()
	m, err := cookie.New([]string{currentSecret})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = m.GetEncrypted(r, "sid")
	assert.ErrorIs(t, err, cookie.ErrCookieNotFound)

	r.AddCookie(&http.Cookie{Name: "sid", Value: "!!!"})
	_, err = m.GetEncrypted(r, "sid")
	assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()
	m, err := cookie.New([]string{currentSecret}, cookie.WithSecure(true))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Delete(w, "sid")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	m, err := cookie.NewFromConfig(cookie.Config{Secrets: " " + currentSecret + " , " + oldSecret, Secure: true, Domain: "panel.example"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Set(w, "plain", "x")
	c := w.Result().Cookies()[0]
	assert.True(t, c.Secure)
	assert.Equal(t, "panel.example", c.Domain)

	_, err = cookie.NewFromConfig(cookie.Config{Secrets: " , "})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)
}

package twofactor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/natvps/panel/pkg/secrets"
	"github.com/natvps/panel/pkg/totp"
	"github.com/natvps/panel/pkg/twofactor"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newCiphers(t *testing.T) (secrets.Cipher, secrets.Cipher) {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	secretCipher, err := secrets.NewCipher(key, secrets.PurposeTOTPSecret)
	require.NoError(t, err)
	codeCipher, err := secrets.NewCipher(key, secrets.PurposeRecoveryCodes)
	require.NoError(t, err)
	return secretCipher, codeCipher
}

func testConfig() twofactor.Config {
	cfg := twofactor.DefaultConfig()
	cfg.TOTP.BcryptCost = bcrypt.MinCost
	return cfg
}

func newManager(t *testing.T, users twofactor.UserStore) *twofactor.Manager {
	t.Helper()
	sc, cc := newCiphers(t)
	return twofactor.NewManager(users, sc, cc,
		twofactor.WithConfig(testConfig()),
		twofactor.WithClock(fixedClock),
	)
}

// enabledUser registers userID with two-factor authentication on and
// returns the plain secret and recovery codes.
func enabledUser(t *testing.T, m *twofactor.Manager, users *twofactor.MemoryUserStore, userID int64) (string, []string) {
	t.Helper()
	ctx := context.Background()
	users.AddUser(userID)

	setup, err := m.BeginSetup(ctx, userID, "jane@example.com")
	require.NoError(t, err)
	code, err := totp.GenerateCodeAt(setup.Secret, testNow)
	require.NoError(t, err)
	codes, err := m.Enable(ctx, userID, setup.Secret, code)
	require.NoError(t, err)
	return setup.Secret, codes
}

// wrongCode returns a six digit code that does not verify for secret at testNow.
func wrongCode(secret string) string {
	for _, c := range []string{"000000", "111111", "222222"} {
		if !totp.VerifyAt(secret, c, testNow, 1) {
			return c
		}
	}
	return "333333"
}

// next builds a request carrying the last cookie set on w.
func next(t *testing.T, w *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	r.AddCookie(cookies[len(cookies)-1])
	return r
}

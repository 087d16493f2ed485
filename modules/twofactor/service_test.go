package twofactor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	tfmod "github.com/natvps/panel/modules/twofactor"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/cookie"
	"github.com/natvps/panel/pkg/ratelimiter"
	"github.com/natvps/panel/pkg/secrets"
	"github.com/natvps/panel/pkg/session"
	"github.com/natvps/panel/pkg/totp"
	"github.com/natvps/panel/pkg/twofactor"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type accounts map[int64]*auth.User

func (a accounts) FindByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := a[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

type fixture struct {
	router     http.Handler
	users      *twofactor.MemoryUserStore
	manager    *twofactor.Manager
	sessions   *session.Manager
	challenger *twofactor.Challenger
	auditLog   *audit.MemoryStore
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	cookieMgr, err := cookie.New([]string{"test-secret-key-that-is-long-enough"})
	require.NoError(t, err)
	scfg := session.DefaultConfig()
	scfg.CleanupInterval = 0
	sessions := session.New(
		session.WithCookieManager(cookieMgr),
		session.WithStore(session.NewMemoryStore(0)),
		session.WithConfig(scfg),
	)
	t.Cleanup(func() { _ = sessions.Close() })

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	secretCipher, err := secrets.NewCipher(key, secrets.PurposeTOTPSecret)
	require.NoError(t, err)
	codeCipher, err := secrets.NewCipher(key, secrets.PurposeRecoveryCodes)
	require.NoError(t, err)

	cfg := twofactor.DefaultConfig()
	cfg.TOTP.BcryptCost = bcrypt.MinCost
	users := twofactor.NewMemoryUserStore()
	manager := twofactor.NewManager(users, secretCipher, codeCipher,
		twofactor.WithConfig(cfg),
		twofactor.WithClock(func() time.Time { return testNow }),
	)

	auditLog := audit.NewMemoryStore()
	auditor := audit.NewLogger(auditLog)
	challenger := twofactor.NewChallenger(manager, sessions, twofactor.WithAuditor(auditor))

	limitStore := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	limiter, err := ratelimiter.NewBucket(limitStore, ratelimiter.Config{
		Capacity:       capacity,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	svc := tfmod.NewService(
		tfmod.Config{HomePath: "/", LoginPath: "/login"},
		manager,
		challenger,
		sessions,
		accounts{1: {ID: 1, Email: "jane@example.com"}, 2: {ID: 2, Email: "joe@example.com"}},
		limiter,
		auditor,
	)

	return &fixture{
		router:     svc.Handle(),
		users:      users,
		manager:    manager,
		sessions:   sessions,
		challenger: challenger,
		auditLog:   auditLog,
	}
}

// enable turns two-factor authentication on for userID and returns the
// secret and the plain recovery codes.
func (f *fixture) enable(t *testing.T, userID int64) (string, []string) {
	t.Helper()
	ctx := context.Background()
	f.users.AddUser(userID)
	setup, err := f.manager.BeginSetup(ctx, userID, "user@example.com")
	require.NoError(t, err)
	code, err := totp.GenerateCodeAt(setup.Secret, testNow)
	require.NoError(t, err)
	codes, err := f.manager.Enable(ctx, userID, setup.Secret, code)
	require.NoError(t, err)
	return setup.Secret, codes
}

func lastCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

func (f *fixture) challenge(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	_, err := f.challenger.Begin(context.Background(), w, httptest.NewRequest(http.MethodPost, "/login", nil), userID, false)
	require.NoError(t, err)
	return lastCookie(t, w)
}

func (f *fixture) login(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	_, err := f.sessions.Authenticate(context.Background(), w, httptest.NewRequest(http.MethodPost, "/login", nil), userID, false)
	require.NoError(t, err)
	return lastCookie(t, w)
}

// verifiedLogin is login for a session that has also passed the second factor.
func (f *fixture) verifiedLogin(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	c := f.login(t, userID)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	require.NoError(t, f.sessions.MarkTwoFactorVerified(context.Background(), r))
	return c
}

func (f *fixture) do(method, path, body string, c *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if c != nil {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *fixture) count(t *testing.T, action string) int64 {
	t.Helper()
	n, err := f.auditLog.Count(context.Background(), audit.Filter{Action: action})
	require.NoError(t, err)
	return n
}

type envelope struct {
	Data  map[string]any `json:"data"`
	Error *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func codeBody(code string) string {
	return `{"code":"` + code + `"}`
}

func wrongCode(secret string) string {
	for _, c := range []string{"000000", "111111", "222222"} {
		if !totp.VerifyAt(secret, c, testNow, 1) {
			return c
		}
	}
	return "333333"
}

func TestChallenge_TOTP(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	secret, _ := f.enable(t, 2)
	c := f.challenge(t, 2)

	w := f.do(http.MethodGet, "/challenge", "", c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Data["pending"])

	w = f.do(http.MethodPost, "/challenge", codeBody(wrongCode(secret)), c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, []string{"invalid code"}, env.Error.Details["code"])
	assert.Equal(t, int64(1), f.count(t, audit.ActionTwoFactorFailed))

	code, err := totp.GenerateCodeAt(secret, testNow)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/challenge", codeBody(code), c)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w)
	assert.Equal(t, true, env.Data["authenticated"])
	assert.Equal(t, "/", env.Data["redirect"])
	assert.NotContains(t, env.Data, "remaining_recovery_codes")
	assert.Equal(t, int64(1), f.count(t, audit.ActionTwoFactorSuccess))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(lastCookie(t, w))
	sess, err := f.sessions.Get(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())
	assert.True(t, sess.TwoFactorVerified)
}

func TestChallenge_Recovery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	_, codes := f.enable(t, 2)
	c := f.challenge(t, 2)

	w := f.do(http.MethodPost, "/recovery", codeBody(codes[0]), c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, "recovery_code", env.Data["method"])
	assert.Equal(t, float64(len(codes)-1), env.Data["remaining_recovery_codes"])
	assert.NotContains(t, env.Data, "low_recovery_codes")

	// The consumed code cannot be replayed on a new challenge.
	c = f.challenge(t, 2)
	w = f.do(http.MethodPost, "/recovery", codeBody(codes[0]), c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChallenge_RateLimited(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	secret, _ := f.enable(t, 2)
	c := f.challenge(t, 2)
	bad := codeBody(wrongCode(secret))

	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/challenge", bad, c).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/recovery", `{"code":"AAAA-BBBB-CCCC"}`, c).Code)

	w := f.do(http.MethodPost, "/challenge", bad, c)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "please try again later", env.Error.Message)

	// Even a correct code is refused while the bucket is empty.
	code, err := totp.GenerateCodeAt(secret, testNow)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/challenge", codeBody(code), c).Code)
	assert.Equal(t, int64(2), f.count(t, audit.ActionTwoFactorFailed))
}

func TestChallenge_NoChallenge(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/challenge", ""},
		{http.MethodPost, "/challenge", codeBody("123456")},
		{http.MethodPost, "/recovery", codeBody("AAAA-BBBB-CCCC")},
	} {
		w := f.do(tc.method, tc.path, tc.body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestChallenge_AbandonedWhenDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	secret, _ := f.enable(t, 2)
	c := f.challenge(t, 2)
	require.NoError(t, f.manager.Disable(context.Background(), 2))

	code, err := totp.GenerateCodeAt(secret, testNow)
	require.NoError(t, err)
	w := f.do(http.MethodPost, "/challenge", codeBody(code), c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.count(t, audit.ActionTwoFactorSuccess))
}

func TestSettings_EnableFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	f.users.AddUser(1)
	c := f.login(t, 1)

	w := f.do(http.MethodPost, "/enable", codeBody("123456"), c)
	assert.Equal(t, http.StatusConflict, w.Code, "enable before setup")

	w = f.do(http.MethodGet, "/setup", "", c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	secret, _ := env.Data["secret"].(string)
	require.NotEmpty(t, secret)
	assert.Contains(t, env.Data["uri"], "jane@example.com")
	assert.True(t, strings.HasPrefix(env.Data["qr_code"].(string), "data:image/png;base64,"))

	w = f.do(http.MethodPost, "/enable", codeBody(wrongCode(secret)), c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	code, err := totp.GenerateCodeAt(secret, testNow)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/enable", codeBody(code), c)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w)
	assert.Len(t, env.Data["recovery_codes"], 8)
	assert.Equal(t, int64(1), f.count(t, audit.ActionTwoFactorEnabled))

	enabled, err := f.manager.Enabled(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, enabled)

	w = f.do(http.MethodGet, "/setup", "", c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSettings_RegenerateAndDisable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	secret, codes := f.enable(t, 1)
	c := f.verifiedLogin(t, 1)

	w := f.do(http.MethodPost, "/recovery-codes", "", c)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode(t, w).Data["recovery_codes"].([]any)
	assert.Len(t, fresh, len(codes))
	assert.NotContains(t, fresh, codes[0])
	assert.Equal(t, int64(1), f.count(t, audit.ActionRecoveryCodesRegenerated))

	w = f.do(http.MethodPost, "/disable", codeBody(wrongCode(secret)), c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	code, err := totp.GenerateCodeAt(secret, testNow)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/disable", codeBody(code), c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(1), f.count(t, audit.ActionTwoFactorDisabled))

	w = f.do(http.MethodPost, "/recovery-codes", "", c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSettings_RequireAuthentication(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/setup"},
		{http.MethodPost, "/enable"},
		{http.MethodPost, "/disable"},
		{http.MethodPost, "/recovery-codes"},
	} {
		w := f.do(tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestSettings_RequireSecondFactor(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/setup", ""},
		{http.MethodPost, "/enable", codeBody("123456")},
		{http.MethodPost, "/disable", codeBody("123456")},
		{http.MethodPost, "/recovery-codes", ""},
	} {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, 5)
			// The session predates enabling 2FA, so it never passed it.
			c := f.login(t, 2)
			_, codes := f.enable(t, 2)

			w := f.do(tc.method, tc.path, tc.body, c)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/two-factor/challenge", w.Header().Get("Location"))
			assert.NotContains(t, w.Body.String(), "recovery_codes")
			assert.Zero(t, f.count(t, audit.ActionRecoveryCodesRegenerated))
			assert.Zero(t, f.count(t, audit.ActionTwoFactorDisabled))

			// Earlier codes stay the only valid ones.
			ok, err := f.manager.VerifyAndConsume(context.Background(), 2, codes[0])
			require.NoError(t, err)
			assert.True(t, ok)

			// The session was turned back into a pending challenge.
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(lastCookie(t, w))
			sess, err := f.sessions.Get(context.Background(), r)
			require.NoError(t, err)
			assert.False(t, sess.IsAuthenticated())
			assert.True(t, sess.HasChallenge())
		})
	}
}

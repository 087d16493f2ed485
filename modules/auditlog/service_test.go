package auditlog_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natvps/panel/modules/auditlog"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/cookie"
	"github.com/natvps/panel/pkg/session"
)

type accounts map[int64]*auth.User

func (a accounts) FindByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := a[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func (a accounts) UserNames(_ context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := a[id]; ok {
			out[id] = u.Name
		}
	}
	return out, nil
}

var base = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	router   http.Handler
	sessions *session.Manager
	store    *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cookieMgr, err := cookie.New([]string{"test-secret-key-that-is-long-enough"})
	require.NoError(t, err)
	cfg := session.DefaultConfig()
	cfg.CleanupInterval = 0
	sessions := session.New(
		session.WithCookieManager(cookieMgr),
		session.WithStore(session.NewMemoryStore(0)),
		session.WithConfig(cfg),
	)
	t.Cleanup(func() { _ = sessions.Close() })

	// One entry per hour starting at base.
	var tick int
	store := audit.NewMemoryStore(audit.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick-1) * time.Hour)
	}))
	users := accounts{
		1: {ID: 1, Name: "Admin", IsAdmin: true},
		2: {ID: 2, Name: "Jane"},
	}
	ctx := context.Background()
	for _, e := range []audit.Entry{
		{Action: audit.ActionLogin, Actor: audit.User(2), Subject: audit.User(2)},
		{Action: audit.ActionLoginFailed, Properties: audit.Properties{"email": "x@example.com"}},
		{Action: audit.ActionTwoFactorSuccess, Actor: audit.User(2), Subject: audit.User(2)},
		{Action: audit.ActionLogin, Actor: audit.User(1), Subject: audit.User(1)},
	} {
		require.NoError(t, store.Append(ctx, &e))
	}

	reader := audit.NewReader(store, audit.WithNameResolver(users))
	svc := auditlog.NewService(reader, sessions, users, audit.NewLogger(store),
		auditlog.WithClock(func() time.Time { return base }),
	)

	return &fixture{router: svc.Handle(), sessions: sessions, store: store}
}

func (f *fixture) login(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	_, err := f.sessions.Authenticate(context.Background(), w, httptest.NewRequest(http.MethodPost, "/login", nil), userID, false)
	require.NoError(t, err)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

func (f *fixture) get(path string, c *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if c != nil {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

type listBody struct {
	Data []audit.NamedEntry `json:"data"`
	Meta map[string]any     `json:"meta"`
}

func TestAccessControl(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.get("/", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.get("/", f.login(t, 2)).Code)
	assert.Equal(t, http.StatusUnauthorized, f.get("/", f.login(t, 99)).Code)
	assert.Equal(t, http.StatusOK, f.get("/", f.login(t, 1)).Code)
}

func TestList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	admin := f.login(t, 1)

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "all newest first", query: "", wantIDs: []int64{4, 3, 2, 1}},
		{name: "by user", query: "?user_id=2", wantIDs: []int64{3, 1}},
		{name: "by action", query: "?action=auth.login", wantIDs: []int64{4, 1}},
		{name: "from", query: "?from=2026-10-01T10:00:00Z", wantIDs: []int64{4, 3, 2}},
		{name: "date-only to covers the day", query: "?to=2026-10-01", wantIDs: []int64{4, 3, 2, 1}},
		{name: "paged", query: "?page=2&per_page=3", wantIDs: []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := f.get("/"+tt.query, admin)
			require.Equal(t, http.StatusOK, w.Code)

			var body listBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			ids := make([]int64, len(body.Data))
			for i, e := range body.Data {
				ids[i] = e.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestList_NamesAndMeta(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get("/?user_id=2&per_page=1", f.login(t, 1))
	require.Equal(t, http.StatusOK, w.Code)

	var body listBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Jane", body.Data[0].ActorName)
	assert.Equal(t, float64(2), body.Meta["total"])
	assert.Equal(t, float64(2), body.Meta["total_pages"])
}

func TestList_InvalidFilter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	admin := f.login(t, 1)

	w := f.get("/?from=2026-10-02T00:00:00Z&to=2026-10-01T00:00:00Z", admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.get("/?user_id=abc", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndActions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	admin := f.login(t, 1)

	w := f.get("/2", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var one struct {
		Data audit.NamedEntry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&one))
	assert.Equal(t, audit.ActionLoginFailed, one.Data.Action)
	assert.Nil(t, one.Data.Actor)

	assert.Equal(t, http.StatusNotFound, f.get("/404", admin).Code)

	w = f.get("/actions", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var actions struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&actions))
	assert.Equal(t, []string{audit.ActionTwoFactorSuccess, audit.ActionLogin, audit.ActionLoginFailed}, actions.Data)
}

func TestExport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get("/export?user_id=2", f.login(t, 1))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "audit-logs-2026-10-01-090000.csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, audit.CSVHeader, rows[0])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "Jane", rows[1][4])

	exported, err := f.store.List(context.Background(), audit.ListParams{
		Filter: audit.Filter{Action: audit.ActionAuditExported},
	})
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, audit.User(1), exported[0].Actor)
	assert.Equal(t, float64(2), toFloat(exported[0].Properties["rows"]))
	assert.Equal(t, int64(2), exported[0].Properties["user_id"])
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return -1
}

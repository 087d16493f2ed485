package session

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// WithSession stores session in ctx.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// FromContext returns the session loaded by Middleware or RequireAuth.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(contextKey{}).(*Session)
	return session, ok && session != nil
}

// UserIDFromContext returns the logged-in user. Sessions with a pending
// two-factor challenge have no user.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	session, ok := FromContext(ctx)
	if !ok || !session.IsAuthenticated() {
		return 0, false
	}
	return *session.UserID, true
}

// Middleware loads the request's session, if any, into the context and
// schedules an activity update. Requests without a valid session pass
// through untouched.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Get(r.Context(), r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if time.Since(session.LastActivityAt) >= m.config.ActivityUpdateThreshold {
			m.enqueueTouch(session.Token)
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// RequireAuth rejects requests without an authenticated session. It reuses
// the session loaded by Middleware when present.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := FromContext(r.Context())
		if !ok {
			loaded, err := m.Get(r.Context(), r)
			if err == nil {
				session, ok = loaded, true
			}
		}
		if !ok || !session.IsAuthenticated() {
			m.unauthorized.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func unauthorizedJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"Unauthorized"}}` + "\n"))
}

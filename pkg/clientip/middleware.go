package clientip

import "net/http"

// maxUserAgentLength bounds what is carried into logs and the audit trail.
const maxUserAgentLength = 512

// Middleware stores the resolved client IP and the User-Agent in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		if len(ua) > maxUserAgentLength {
			ua = ua[:maxUserAgentLength]
		}
		ctx := SetIPToContext(r.Context(), res.IP(r))
		ctx = SetUserAgentToContext(ctx, ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

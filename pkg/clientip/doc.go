// Package clientip resolves the client address and user agent of a request
// and carries them in the context, mainly for the audit trail.
//
// Forwarding headers (CF-Connecting-IP, X-Forwarded-For, X-Real-IP) are
// only believed when the direct peer is one of the configured trusted
// proxies. Otherwise the TCP peer address is used.
//
//	res, err := clientip.NewFromConfig(cfg)
//	r.Use(res.Middleware)
//	ip := clientip.GetIPFromContext(ctx)
package clientip

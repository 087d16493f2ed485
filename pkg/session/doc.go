// Package session manages browser sessions for the panel.
//
// A session is identified by a random token carried in an encrypted cookie
// and persisted in a Store (MemoryStore for tests and single-node setups,
// RedisStore in production). Besides the authenticated user the session
// carries the state of the two-factor login:
//
//   - Challenge is set between a successful password check and the second
//     factor. No user is logged in while it is present.
//   - TwoFactorVerified marks an authenticated session whose user passed the
//     second factor.
//
// Every identity change (Authenticate, StartChallenge, CompleteChallenge)
// rotates the token.
//
//	m := session.New(
//	    session.WithCookieManager(cookies),
//	    session.WithStore(session.NewRedisStore(rdb, cfg.RedisPrefix)),
//	    session.WithConfig(cfg),
//	    session.WithFingerprint(session.BrowserFingerprint),
//	)
//	r.Use(m.Middleware)
package session

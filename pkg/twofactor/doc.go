// Package twofactor implements TOTP based two-factor authentication on top
// of a user store, the session manager and the audit log.
//
// Manager owns the two-factor fields of a user record. Secrets and
// recovery code hashes are encrypted with injected secrets.Cipher values,
// recovery codes are bcrypt hashed, and every write is a compare-and-swap
// on State.Version so a recovery code can be consumed at most once.
//
// Challenger drives the login step between a verified password and a full
// session:
//
//	no_challenge --begin--> pending --succeed--> authenticated
//	                           |  \--fail--> pending
//	                           \--abandon--> abandoned
//
// The pending state lives in the session as a session.Challenge. Wrong
// codes are reported as OutcomeFailed, a challenge whose user vanished or
// disabled two-factor authentication as OutcomeAbandoned. Only storage
// problems are returned as errors, wrapped in *StorageError.
//
//	res, err := challenger.VerifyTOTP(ctx, w, r, code)
//	switch {
//	case err != nil:
//	    // "please try again later"
//	case res.Outcome == twofactor.OutcomeAuthenticated:
//	    // redirect to the dashboard, warn if res.LowRecoveryCodes
//	case res.Outcome == twofactor.OutcomeFailed:
//	    // "invalid code"
//	default:
//	    // back to the login form
//	}
package twofactor

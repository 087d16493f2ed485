// Package totp implements the time-based one-time password engine used by the
// panel's two-factor login, together with the recovery code format.
//
// Secrets are 160-bit random values encoded as unpadded Base32. Codes are six
// digits over a 30-second step with HMAC-SHA1 (RFC 6238). Verification is
// delegated to github.com/pquerna/otp which compares in constant time.
//
// Verify never returns an error: a malformed secret, an empty code or a code
// of the wrong length simply does not verify.
//
//	secret, _ := totp.GenerateSecretKey()
//	uri, _ := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      secret,
//	    AccountName: "admin@example.com",
//	    Issuer:      "NAT VPS Panel",
//	})
//	ok := totp.Verify(secret, "123456", totp.DefaultWindowSteps)
//
// Recovery codes have the shape XXXX-XXXX-XXXX and are stored as bcrypt
// hashes. Input is normalized (trimmed, upper-cased) before hashing and
// comparison, so users may type them in lower case.
package totp

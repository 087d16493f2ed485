// Package cookie reads and writes HTTP cookies for the panel, most notably
// the encrypted session token cookie.
//
// Values written with SetEncrypted are sealed with AES-256-GCM using keys
// derived from the configured secrets (see package secrets). Several
// secrets may be configured: the first one encrypts, all of them are tried
// on read so a secret can be rotated without logging everybody out.
//
//	m, err := cookie.NewFromConfig(cfg)
//	_ = m.SetEncrypted(w, "sid", token, cookie.WithMaxAge(3600))
//	token, err := m.GetEncrypted(r, "sid")
package cookie

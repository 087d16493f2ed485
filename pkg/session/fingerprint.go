package session

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// BrowserFingerprint binds a session to the browser that created it.
// It hashes User-Agent and Accept-Language only: the client IP is left out
// so that sessions survive NAT and mobile network changes.
func BrowserFingerprint(r *http.Request) string {
	parts := []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

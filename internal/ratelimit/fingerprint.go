package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

const anonymousID = "anonymous"

// Fingerprint hashes the client IP and the identifying request headers and
// appends the user id, or "anonymous".
func Fingerprint(r *http.Request, ip, userID string) string {
	h := sha256.New()
	h.Write([]byte(ip))
	h.Write([]byte(r.Header.Get("User-Agent")))
	h.Write([]byte(r.Header.Get("Accept-Language")))
	h.Write([]byte(r.Header.Get("Accept-Encoding")))

	if userID == "" {
		userID = anonymousID
	}
	return hex.EncodeToString(h.Sum(nil))[:32] + ":" + userID
}

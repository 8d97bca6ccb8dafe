// Package auth implements the signed credential validation round trip: an
// HMAC-signed request to the host platform that answers with a verdict,
// rate-limit assignments, and the app's status.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	defaultAppIDHeader     = "X-App-Id"
	defaultTimestampHeader = "X-Timestamp"
	defaultSignatureHeader = "X-Signature"
)

// Signer produces the request signature: hex-encoded HMAC-SHA256 over
// app_id + "." + timestamp + "." + body.
type Signer struct {
	Secret string
}

func NewSigner(secret string) *Signer {
	return &Signer{Secret: strings.TrimSpace(secret)}
}

func (s *Signer) Sign(appID string, timestamp string, body []byte) string {
	if s == nil {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(appID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time. Hosts use this on the
// receiving side; the SDK uses it in tests.
func (s *Signer) Verify(appID string, timestamp string, body []byte, signature string) bool {
	if s == nil {
		return false
	}
	expected := s.Sign(appID, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
